package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"chatcal/core/config"
	"chatcal/core/constants"
	"chatcal/core/logger"
	"chatcal/core/utils"
	"chatcal/modules/calendar/dto"
	"chatcal/modules/calendar/entity"
	"chatcal/modules/calendar/mapper"
	"chatcal/modules/calendar/repository"
)

// Session states. Refreshing is transient and collapses back to Connected or
// Disconnected before any operation returns.
const (
	StateDisconnected = "disconnected"
	StateConnected    = "connected"
	StateRefreshing   = "refreshing"
)

const defaultMaxResults = 50

// CalendarSession owns the calendar connection lifecycle: it decides when to
// use the cached token, when to refresh it, and when the session is gone. It
// is the only writer of the credential slot and of the local event cache.
type CalendarSession struct {
	store    repository.CredentialStore
	tokens   TokenExchangeClient
	states   repository.OAuthStateRepository
	oauthCfg *oauth2.Config
	apiBase  string
	client   *http.Client

	mu          sync.Mutex
	state       string
	events      []dto.CalendarEvent
	subscribers map[chan string]struct{}
}

func NewCalendarSession(
	store repository.CredentialStore,
	tokens TokenExchangeClient,
	states repository.OAuthStateRepository,
	cfg config.GoogleAPIConfig,
) *CalendarSession {
	apiBase := cfg.CalendarAPIBase
	if apiBase == "" {
		apiBase = constants.GoogleCalendarAPIBase
	}
	return &CalendarSession{
		store:  store,
		tokens: tokens,
		states: states,
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
		},
		apiBase:     apiBase,
		client:      &http.Client{Timeout: constants.GoogleHTTPTimeout},
		state:       StateDisconnected,
		subscribers: make(map[chan string]struct{}),
	}
}

// Resume promotes the session to Connected when a credential survived a
// restart. Called once at boot; any load failure leaves it Disconnected.
func (s *CalendarSession) Resume(ctx context.Context) {
	if _, err := s.store.Load(ctx); err == nil {
		s.setState(StateConnected)
	}
}

func (s *CalendarSession) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *CalendarSession) setState(state string) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	if state == StateDisconnected {
		s.events = nil
	}
	if changed {
		for ch := range s.subscribers {
			select {
			case ch <- state:
			default: // slow subscriber, drop rather than block the session
			}
		}
	}
	s.mu.Unlock()
}

// Subscribe returns a channel that receives every state transition. Slow
// receivers miss intermediate transitions rather than blocking operations.
func (s *CalendarSession) Subscribe() chan string {
	ch := make(chan string, 4)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *CalendarSession) Unsubscribe(ch chan string) {
	s.mu.Lock()
	delete(s.subscribers, ch)
	s.mu.Unlock()
}

// CachedEvents returns a copy of the last reconciled event list.
func (s *CalendarSession) CachedEvents() []dto.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dto.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ========== Connect / Disconnect ==========

// ConnectURL issues a one-time state value and builds the provider consent
// URL. AccessTypeOffline plus ApprovalForce makes the provider return a
// refresh token on every grant, not just the first.
func (s *CalendarSession) ConnectURL(ctx context.Context) (*dto.ConnectURLResponse, error) {
	state := utils.GenerateRandomString(32)
	if err := s.states.Save(ctx, state, time.Now().Add(constants.OAuthStateLifetime)); err != nil {
		return nil, err
	}

	authURL := s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return &dto.ConnectURLResponse{URL: authURL, State: state}, nil
}

// Connect finishes the consent flow: consumes the state, exchanges the code
// and stores the resulting credential bound to ownerEmail.
func (s *CalendarSession) Connect(ctx context.Context, req dto.ConnectRequest, ownerEmail string) error {
	if strings.TrimSpace(req.Code) == "" {
		return &ValidationError{Field: "code", Message: "must not be empty"}
	}

	if err := s.states.Consume(ctx, req.State); err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			return ErrInvalidState
		}
		return err
	}

	token, err := s.tokens.ExchangeCode(ctx, req.Code)
	if err != nil {
		return err
	}

	cred := &entity.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
		OwnerEmail:   ownerEmail,
	}
	if err := s.store.Save(ctx, cred); err != nil {
		logger.Error("CalendarSession:Connect:Save:Error", "error", err)
		return err
	}

	s.setState(StateConnected)
	logger.Info("Calendar connected", "owner", ownerEmail)

	// Warm the event cache right away; a fetch failure does not undo the
	// connection.
	if _, err := s.ListEvents(ctx, ownerEmail, "", 0); err != nil {
		logger.Warn("CalendarSession:Connect:InitialFetch:Error", "error", err)
	}
	return nil
}

// Disconnect clears the credential slot and the event cache. It never fails;
// a store error is logged and the session still ends up Disconnected.
func (s *CalendarSession) Disconnect(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		logger.Error("CalendarSession:Disconnect:Clear:Error", "error", err)
	}
	s.setState(StateDisconnected)
}

// Status reports the connection as seen by the given signed-in account. A
// credential owned by a different account is reported as a mismatch, not as
// never-connected, and is left in place.
func (s *CalendarSession) Status(ctx context.Context, userEmail string) (*dto.ConnectionStatusResponse, error) {
	cred, err := s.store.Load(ctx)
	if errors.Is(err, repository.ErrNoCredential) {
		return &dto.ConnectionStatusResponse{State: StateDisconnected}, nil
	}
	if err != nil {
		return nil, err
	}

	// A credential bound to someone else must never be reported as connected
	// to this viewer, whatever the process-wide state is.
	if !cred.OwnedBy(userEmail) {
		return &dto.ConnectionStatusResponse{
			State:         StateDisconnected,
			OwnerEmail:    cred.OwnerEmail,
			OwnerMismatch: true,
		}, nil
	}

	if s.State() == StateDisconnected {
		s.setState(StateConnected)
	}
	return &dto.ConnectionStatusResponse{
		State:      s.State(),
		Connected:  true,
		OwnerEmail: cred.OwnerEmail,
	}, nil
}

// ========== Token freshness ==========

// EnsureFreshToken refreshes the stored access token when it has expired.
// Also used by the background keep-fresh task with its own grace window.
func (s *CalendarSession) EnsureFreshToken(ctx context.Context) error {
	cred, err := s.loadCredential(ctx)
	if err != nil {
		return err
	}
	if !cred.Expired() {
		return nil
	}
	_, err = s.refreshNow(ctx, cred)
	return err
}

// RefreshIfExpiring is the keep-fresh variant: it refreshes ahead of expiry
// so interactive calls rarely pay the refresh round trip.
func (s *CalendarSession) RefreshIfExpiring(ctx context.Context, window time.Duration) error {
	cred, err := s.loadCredential(ctx)
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	if err != nil {
		return err
	}
	if !cred.ExpiresSoon(window) {
		return nil
	}
	_, err = s.refreshNow(ctx, cred)
	return err
}

func (s *CalendarSession) loadCredential(ctx context.Context) (*entity.Credential, error) {
	cred, err := s.store.Load(ctx)
	if errors.Is(err, repository.ErrNoCredential) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// refreshNow performs exactly one refresh grant. Success updates the slot in
// place; the refresh token is never rotated by the provider, so the stored
// one is kept. Any failure clears the slot and disconnects.
func (s *CalendarSession) refreshNow(ctx context.Context, cred *entity.Credential) (*entity.Credential, error) {
	s.setState(StateRefreshing)

	token, err := s.tokens.RefreshAccessToken(ctx, cred.RefreshToken)
	if err != nil {
		logger.Error("CalendarSession:RefreshNow:Refresh:Error", "error", err)
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			logger.Error("CalendarSession:RefreshNow:Clear:Error", "error", clearErr)
		}
		s.setState(StateDisconnected)
		return nil, err
	}

	cred.AccessToken = token.AccessToken
	cred.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if err := s.store.Save(ctx, cred); err != nil {
		logger.Error("CalendarSession:RefreshNow:Save:Error", "error", err)
		s.setState(StateDisconnected)
		return nil, err
	}

	s.setState(StateConnected)
	return cred, nil
}

// activeCredential loads the slot, enforces ownership and expiry, and hands
// back a credential ready for a calendar call.
func (s *CalendarSession) activeCredential(ctx context.Context, userEmail string) (*entity.Credential, error) {
	cred, err := s.loadCredential(ctx)
	if err != nil {
		return nil, err
	}
	if !cred.OwnedBy(userEmail) {
		return nil, ErrOwnerMismatch
	}
	if s.State() == StateDisconnected {
		s.setState(StateConnected)
	}
	if cred.Expired() {
		return s.refreshNow(ctx, cred)
	}
	return cred, nil
}

// ========== Calendar operations ==========

// ListEvents fetches upcoming events in provider order (ascending start
// time, recurring events expanded) and replaces the local cache with the
// result.
func (s *CalendarSession) ListEvents(ctx context.Context, userEmail string, timeMin string, maxResults int) ([]dto.CalendarEvent, error) {
	if timeMin == "" {
		timeMin = time.Now().UTC().Format(time.RFC3339)
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	query := url.Values{
		"timeMin":      {timeMin},
		"maxResults":   {strconv.Itoa(maxResults)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
	}
	body, err := s.doRequest(ctx, userEmail, http.MethodGet, s.eventsURL("")+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var list dto.GoogleEventList
	if err := json.Unmarshal(body, &list); err != nil {
		logger.Error("CalendarSession:ListEvents:Decode:Error", "error", err)
		return nil, &TransportError{Err: fmt.Errorf("decode event list: %w", err)}
	}

	events := mapper.FromGoogleEvents(list.Items)
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
	return events, nil
}

// CreateEvent validates the input locally, then round-trips to the provider,
// which assigns the id. The created event is appended to the cache.
func (s *CalendarSession) CreateEvent(ctx context.Context, userEmail string, input dto.EventInput) (*dto.CalendarEvent, error) {
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	payload := mapper.BuildEventPayload(input, mapper.LocalUTCOffset(time.Now()))
	body, err := s.doRequest(ctx, userEmail, http.MethodPost, s.eventsURL(""), payload)
	if err != nil {
		return nil, err
	}

	var created dto.GoogleEvent
	if err := json.Unmarshal(body, &created); err != nil {
		logger.Error("CalendarSession:CreateEvent:Decode:Error", "error", err)
		return nil, &TransportError{Err: fmt.Errorf("decode created event: %w", err)}
	}

	event := mapper.FromGoogleEvent(created)
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return &event, nil
}

// UpdateEvent validates, PATCHes the provider copy, and reconciles the cache
// entry with the provider's response.
func (s *CalendarSession) UpdateEvent(ctx context.Context, userEmail string, id string, input dto.EventInput) (*dto.CalendarEvent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "id", Message: "must not be empty"}
	}
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	payload := mapper.BuildEventPayload(input, mapper.LocalUTCOffset(time.Now()))
	body, err := s.doRequest(ctx, userEmail, http.MethodPatch, s.eventsURL(id), payload)
	if err != nil {
		return nil, err
	}

	var updated dto.GoogleEvent
	if err := json.Unmarshal(body, &updated); err != nil {
		logger.Error("CalendarSession:UpdateEvent:Decode:Error", "error", err)
		return nil, &TransportError{Err: fmt.Errorf("decode updated event: %w", err)}
	}

	event := mapper.FromGoogleEvent(updated)
	s.mu.Lock()
	for i := range s.events {
		if s.events[i].ID == event.ID {
			s.events[i] = event
			break
		}
	}
	s.mu.Unlock()
	return &event, nil
}

// DeleteEvent removes the provider copy, then the cache entry.
func (s *CalendarSession) DeleteEvent(ctx context.Context, userEmail string, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Message: "must not be empty"}
	}

	if _, err := s.doRequest(ctx, userEmail, http.MethodDelete, s.eventsURL(id), nil); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *CalendarSession) eventsURL(id string) string {
	base := s.apiBase + "/calendars/primary/events"
	if id == "" {
		return base
	}
	return base + "/" + url.PathEscape(id)
}

// doRequest performs one authenticated calendar call with a bounded
// refresh-and-retry: on a 401 the token is refreshed exactly once and the
// call repeated; a second 401, or any other non-2xx, is surfaced verbatim.
func (s *CalendarSession) doRequest(ctx context.Context, userEmail string, method, requestURL string, payload any) ([]byte, error) {
	cred, err := s.activeCredential(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= 2; attempt++ {
		var reqBody io.Reader
		if payload != nil {
			encoded, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			reqBody = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.client.Do(req)
		if err != nil {
			logger.Error("CalendarSession:DoRequest:Transport:Error", "method", method, "error", err)
			return nil, &TransportError{Err: err}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &TransportError{Err: err}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 1 {
			logger.Warn("CalendarSession:DoRequest:Unauthorized", "method", method)
			cred, err = s.refreshNow(ctx, cred)
			if err != nil {
				return nil, err
			}
			continue
		}

		logger.Warn("CalendarSession:DoRequest:Rejected", "method", method, "status", resp.StatusCode)
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// Unreachable: the loop always returns.
	return nil, &TransportError{Err: errors.New("request retries exhausted")}
}

// validateEventInput enforces the local preconditions before any network
// call: non-empty title, both dates present, end strictly after start. An
// all-day event spans 00:00 on its start date to 23:59 on its end date for
// the comparison.
func validateEventInput(input dto.EventInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if input.StartDate == "" {
		return &ValidationError{Field: "start_date", Message: "must be set"}
	}
	if input.EndDate == "" {
		return &ValidationError{Field: "end_date", Message: "must be set"}
	}

	startTime, endTime := input.StartTime, input.EndTime
	if input.AllDay {
		startTime, endTime = "00:00", "23:59"
	} else {
		if startTime == "" {
			return &ValidationError{Field: "start_time", Message: "must be set"}
		}
		if endTime == "" {
			return &ValidationError{Field: "end_time", Message: "must be set"}
		}
	}

	start, err := time.Parse("2006-01-02T15:04", input.StartDate+"T"+startTime)
	if err != nil {
		return &ValidationError{Field: "start_date", Message: "invalid date or time"}
	}
	end, err := time.Parse("2006-01-02T15:04", input.EndDate+"T"+endTime)
	if err != nil {
		return &ValidationError{Field: "end_date", Message: "invalid date or time"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "end_date", Message: "must be after start"}
	}
	return nil
}
