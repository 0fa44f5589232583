package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcal/core/config"
	"chatcal/modules/calendar/dto"
	"chatcal/modules/calendar/entity"
	"chatcal/modules/calendar/repository"
)

const ownerEmail = "owner@example.com"

type fakeTokenClient struct {
	mu            sync.Mutex
	exchangeResp  *dto.TokenResponse
	exchangeErr   error
	refreshResp   *dto.TokenResponse
	refreshErr    error
	exchangeCalls int
	refreshCalls  int
}

func (f *fakeTokenClient) ExchangeCode(_ context.Context, _ string) (*dto.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls++
	return f.exchangeResp, f.exchangeErr
}

func (f *fakeTokenClient) RefreshAccessToken(_ context.Context, _ string) (*dto.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshResp, f.refreshErr
}

type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: map[string]time.Time{}}
}

func (f *fakeStateRepo) Save(_ context.Context, state string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = expiresAt
	return nil
}

func (f *fakeStateRepo) Consume(_ context.Context, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	expiry, ok := f.states[state]
	if !ok || time.Now().After(expiry) {
		return repository.ErrStateNotFound
	}
	delete(f.states, state)
	return nil
}

func (f *fakeStateRepo) CleanupExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func newTestSession(t *testing.T, apiBase string, tokens TokenExchangeClient) (*CalendarSession, repository.CredentialStore) {
	t.Helper()
	store := repository.NewMemoryCredentialStore()
	session := NewCalendarSession(store, tokens, newFakeStateRepo(), config.GoogleAPIConfig{
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		RedirectURI:     "http://localhost:5173/callback",
		CalendarAPIBase: apiBase,
	})
	return session, store
}

func saveCredential(t *testing.T, store repository.CredentialStore, accessToken string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), &entity.Credential{
		AccessToken:  accessToken,
		RefreshToken: "stored-refresh",
		ExpiresAt:    expiresAt,
		OwnerEmail:   ownerEmail,
	}))
}

func eventListBody(ids ...string) map[string]any {
	items := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]any{
			"id":      id,
			"summary": "Standup",
			"start":   map[string]string{"dateTime": "2024-01-01T09:00:00+0000"},
			"end":     map[string]string{"dateTime": "2024-01-01T09:30:00+0000"},
		})
	}
	return map[string]any{"items": items}
}

func TestListEvents_ExpiredTokenTriggersSingleRefresh(t *testing.T) {
	tokens := &fakeTokenClient{
		refreshResp: &dto.TokenResponse{AccessToken: "fresh-access", ExpiresIn: 3600},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh-access", r.Header.Get("Authorization"))
		assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		json.NewEncoder(w).Encode(eventListBody("e1"))
	}))
	defer server.Close()

	session, store := newTestSession(t, server.URL, tokens)
	saveCredential(t, store, "stale-access", time.Now().Add(-time.Hour))

	events, err := session.ListEvents(context.Background(), ownerEmail, "", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "Standup", events[0].Title)

	assert.Equal(t, 1, tokens.refreshCalls)
	assert.Equal(t, StateConnected, session.State())

	cred, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cred.ExpiresAt.After(time.Now()))
	assert.Equal(t, "fresh-access", cred.AccessToken)
	assert.Equal(t, "stored-refresh", cred.RefreshToken)
}

func TestListEvents_RefreshRejectionDisconnects(t *testing.T) {
	tokens := &fakeTokenClient{
		refreshErr: &RefreshError{StatusCode: http.StatusBadRequest, Body: `{"error":"invalid_grant"}`},
	}

	session, store := newTestSession(t, "http://calendar.invalid", tokens)
	saveCredential(t, store, "stale-access", time.Now().Add(-time.Hour))

	_, err := session.ListEvents(context.Background(), ownerEmail, "", 0)
	require.Error(t, err)

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, http.StatusBadRequest, refreshErr.StatusCode)

	assert.Equal(t, StateDisconnected, session.State())
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoCredential)
}

func TestListEvents_UnauthorizedRetriesExactlyOnce(t *testing.T) {
	tokens := &fakeTokenClient{
		refreshResp: &dto.TokenResponse{AccessToken: "fresh-access", ExpiresIn: 3600},
	}

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
			return
		}
		json.NewEncoder(w).Encode(eventListBody("e1"))
	}))
	defer server.Close()

	session, store := newTestSession(t, server.URL, tokens)
	// Not clock-expired, but the provider considers it invalid.
	saveCredential(t, store, "revoked-access", time.Now().Add(time.Hour))

	events, err := session.ListEvents(context.Background(), ownerEmail, "", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, tokens.refreshCalls)
}

func TestListEvents_PersistentUnauthorizedSurfacesAfterOneRetry(t *testing.T) {
	tokens := &fakeTokenClient{
		refreshResp: &dto.TokenResponse{AccessToken: "fresh-access", ExpiresIn: 3600},
	}

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer server.Close()

	session, store := newTestSession(t, server.URL, tokens)
	saveCredential(t, store, "bad-access", time.Now().Add(time.Hour))

	_, err := session.ListEvents(context.Background(), ownerEmail, "", 0)
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusUnauthorized, transportErr.StatusCode)
	assert.Contains(t, transportErr.Body, "Invalid Credentials")

	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, tokens.refreshCalls)
}

func TestListEvents_ProviderRejectionSurfacedVerbatim(t *testing.T) {
	tokens := &fakeTokenClient{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"Rate Limit Exceeded"}}`))
	}))
	defer server.Close()

	session, store := newTestSession(t, server.URL, tokens)
	saveCredential(t, store, "good-access", time.Now().Add(time.Hour))

	_, err := session.ListEvents(context.Background(), ownerEmail, "", 0)
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusForbidden, transportErr.StatusCode)
	assert.Contains(t, transportErr.Body, "Rate Limit Exceeded")
	assert.Zero(t, tokens.refreshCalls)
}

func TestCreateEvent_ValidationFailsBeforeNetwork(t *testing.T) {
	tokens := &fakeTokenClient{}

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	session, store := newTestSession(t, server.URL, tokens)
	saveCredential(t, store, "good-access", time.Now().Add(time.Hour))

	cases := []struct {
		name  string
		input dto.EventInput
	}{
		{"empty title", dto.EventInput{
			Title: "  ", StartDate: "2024-01-01", StartTime: "09:00", EndDate: "2024-01-01", EndTime: "10:00",
		}},
		{"missing start date", dto.EventInput{
			Title: "Meeting", StartTime: "09:00", EndDate: "2024-01-01", EndTime: "10:00",
		}},
		{"end before start", dto.EventInput{
			Title: "Meeting", StartDate: "2024-01-01", StartTime: "10:00", EndDate: "2024-01-01", EndTime: "09:00",
		}},
		{"end equals start", dto.EventInput{
			Title: "Meeting", StartDate: "2024-01-01", StartTime: "09:00", EndDate: "2024-01-01", EndTime: "09:00",
		}},
		{"all-day end before start", dto.EventInput{
			Title: "Trip", AllDay: true, StartDate: "2024-01-05", EndDate: "2024-01-03",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := session.CreateEvent(context.Background(), ownerEmail, tc.input)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}

	assert.Zero(t, hits)
	assert.Zero(t, tokens.refreshCalls)
}

func TestCreateEvent_SingleAllDayDayIsValid(t *testing.T) {
	tokens := &fakeTokenClient{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload dto.GoogleEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "2024-01-05", payload.Start.Date)
		assert.Equal(t, "2024-01-05", payload.End.Date)

		payload.ID = "created-1"
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	session, store := newTestSession(t, server.URL, tokens)
	saveCredential(t, store, "good-access", time.Now().Add(time.Hour))

	// A one-day all-day event spans 00:00 to 23:59 and passes validation.
	event, err := session.CreateEvent(context.Background(), ownerEmail, dto.EventInput{
		Title: "Offsite", AllDay: true, StartDate: "2024-01-05", EndDate: "2024-01-05",
	})
	require.NoError(t, err)
	assert.Equal(t, "created-1", event.ID)
	assert.Contains(t, session.CachedEvents(), *event)
}

func TestOperations_OwnerMismatch(t *testing.T) {
	tokens := &fakeTokenClient{}
	session, store := newTestSession(t, "http://calendar.invalid", tokens)
	saveCredential(t, store, "good-access", time.Now().Add(time.Hour))

	_, err := session.ListEvents(context.Background(), "someone-else@example.com", "", 0)
	assert.ErrorIs(t, err, ErrOwnerMismatch)

	// The mismatched credential is left in place.
	_, err = store.Load(context.Background())
	require.NoError(t, err)
}

func TestListEvents_NotConnected(t *testing.T) {
	session, _ := newTestSession(t, "http://calendar.invalid", &fakeTokenClient{})

	_, err := session.ListEvents(context.Background(), ownerEmail, "", 0)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnect_StoresCredentialBoundToOwner(t *testing.T) {
	tokens := &fakeTokenClient{
		exchangeResp: &dto.TokenResponse{
			AccessToken:  "granted-access",
			RefreshToken: "granted-refresh",
			ExpiresIn:    3600,
		},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer granted-access", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(eventListBody("e1"))
	}))
	defer server.Close()

	states := newFakeStateRepo()
	store := repository.NewMemoryCredentialStore()
	session := NewCalendarSession(store, tokens, states, config.GoogleAPIConfig{
		ClientID: "client-id", ClientSecret: "client-secret", RedirectURI: "http://localhost:5173/callback",
		CalendarAPIBase: server.URL,
	})

	require.NoError(t, states.Save(context.Background(), "valid-state", time.Now().Add(time.Minute)))

	err := session.Connect(context.Background(), dto.ConnectRequest{Code: "the-code", State: "valid-state"}, ownerEmail)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, session.State())
	assert.Equal(t, 1, tokens.exchangeCalls)

	cred, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "granted-access", cred.AccessToken)
	assert.Equal(t, "granted-refresh", cred.RefreshToken)
	assert.Equal(t, ownerEmail, cred.OwnerEmail)
	assert.True(t, cred.ExpiresAt.After(time.Now()))

	// Connect warms the event cache with an initial fetch.
	require.Len(t, session.CachedEvents(), 1)

	// The state is single-use.
	err = session.Connect(context.Background(), dto.ConnectRequest{Code: "the-code", State: "valid-state"}, ownerEmail)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConnect_UnknownState(t *testing.T) {
	session, _ := newTestSession(t, "http://calendar.invalid", &fakeTokenClient{})

	err := session.Connect(context.Background(), dto.ConnectRequest{Code: "the-code", State: "forged"}, ownerEmail)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConnectURL_ContainsOfflineConsent(t *testing.T) {
	session, _ := newTestSession(t, "http://calendar.invalid", &fakeTokenClient{})

	resp, err := session.ConnectURL(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.State)
	assert.Contains(t, resp.URL, "access_type=offline")
	assert.Contains(t, resp.URL, "approval_prompt=force")
	assert.Contains(t, resp.URL, "state="+resp.State)
	assert.Contains(t, resp.URL, "client_id=client-id")
}

func TestDisconnect_ClearsEverything(t *testing.T) {
	tokens := &fakeTokenClient{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(eventListBody("e1", "e2"))
	}))
	defer server.Close()

	session, store := newTestSession(t, server.URL, tokens)
	saveCredential(t, store, "good-access", time.Now().Add(time.Hour))

	_, err := session.ListEvents(context.Background(), ownerEmail, "", 0)
	require.NoError(t, err)
	require.Len(t, session.CachedEvents(), 2)

	session.Disconnect(context.Background())
	assert.Equal(t, StateDisconnected, session.State())
	assert.Empty(t, session.CachedEvents())

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoCredential)
}

func TestStatus(t *testing.T) {
	session, store := newTestSession(t, "http://calendar.invalid", &fakeTokenClient{})

	status, err := session.Status(context.Background(), ownerEmail)
	require.NoError(t, err)
	assert.Equal(t, StateDisconnected, status.State)
	assert.False(t, status.Connected)
	assert.False(t, status.OwnerMismatch)

	saveCredential(t, store, "good-access", time.Now().Add(time.Hour))

	status, err = session.Status(context.Background(), ownerEmail)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, status.State)
	assert.True(t, status.Connected)
	assert.Equal(t, ownerEmail, status.OwnerEmail)

	// A viewer signed in as someone else sees the slot as disconnected even
	// while the session itself stays connected for the owner.
	status, err = session.Status(context.Background(), "someone-else@example.com")
	require.NoError(t, err)
	assert.Equal(t, StateDisconnected, status.State)
	assert.False(t, status.Connected)
	assert.True(t, status.OwnerMismatch)
	assert.Equal(t, ownerEmail, status.OwnerEmail)
	assert.Equal(t, StateConnected, session.State())

	status, err = session.Status(context.Background(), ownerEmail)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, status.State)
}

func TestUpdateAndDeleteEvent_ReconcileCache(t *testing.T) {
	tokens := &fakeTokenClient{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(eventListBody("e1", "e2"))
		case http.MethodPatch:
			assert.Equal(t, "/calendars/primary/events/e1", r.URL.Path)
			var payload dto.GoogleEvent
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			payload.ID = "e1"
			json.NewEncoder(w).Encode(payload)
		case http.MethodDelete:
			assert.Equal(t, "/calendars/primary/events/e2", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	session, store := newTestSession(t, server.URL, tokens)
	saveCredential(t, store, "good-access", time.Now().Add(time.Hour))

	_, err := session.ListEvents(context.Background(), ownerEmail, "", 0)
	require.NoError(t, err)

	updated, err := session.UpdateEvent(context.Background(), ownerEmail, "e1", dto.EventInput{
		Title: "Renamed", StartDate: "2024-01-01", StartTime: "09:00", EndDate: "2024-01-01", EndTime: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	require.NoError(t, session.DeleteEvent(context.Background(), ownerEmail, "e2"))

	cached := session.CachedEvents()
	require.Len(t, cached, 1)
	assert.Equal(t, "e1", cached[0].ID)
	assert.Equal(t, "Renamed", cached[0].Title)
}

func TestSubscribe_ObservesTransitions(t *testing.T) {
	tokens := &fakeTokenClient{
		refreshErr: &RefreshError{StatusCode: http.StatusBadRequest, Body: `{"error":"invalid_grant"}`},
	}
	session, store := newTestSession(t, "http://calendar.invalid", tokens)
	saveCredential(t, store, "stale-access", time.Now().Add(-time.Hour))

	ch := session.Subscribe()
	defer session.Unsubscribe(ch)

	_, err := session.ListEvents(context.Background(), ownerEmail, "", 0)
	require.Error(t, err)

	var seen []string
	for len(ch) > 0 {
		seen = append(seen, <-ch)
	}
	// Connected (resumed from the stored slot), Refreshing, then the failed
	// refresh lands on Disconnected.
	assert.Equal(t, []string{StateConnected, StateRefreshing, StateDisconnected}, seen)
	assert.Equal(t, StateDisconnected, session.State())
}

func TestRefreshIfExpiring(t *testing.T) {
	tokens := &fakeTokenClient{
		refreshResp: &dto.TokenResponse{AccessToken: "fresh-access", ExpiresIn: 3600},
	}
	session, store := newTestSession(t, "http://calendar.invalid", tokens)

	// Disconnected sessions are skipped silently.
	require.NoError(t, session.RefreshIfExpiring(context.Background(), 5*time.Minute))
	assert.Zero(t, tokens.refreshCalls)

	// Plenty of lifetime left: no refresh.
	saveCredential(t, store, "good-access", time.Now().Add(time.Hour))
	require.NoError(t, session.RefreshIfExpiring(context.Background(), 5*time.Minute))
	assert.Zero(t, tokens.refreshCalls)

	// Inside the grace window: refreshed.
	saveCredential(t, store, "aging-access", time.Now().Add(2*time.Minute))
	require.NoError(t, session.RefreshIfExpiring(context.Background(), 5*time.Minute))
	assert.Equal(t, 1, tokens.refreshCalls)
}
