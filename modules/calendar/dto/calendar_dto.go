package dto

// ========== Google wire schema ==========

// GoogleEventTime is Google's event boundary: exactly one of Date (all-day)
// or DateTime (timed, with offset) is set.
type GoogleEventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type GoogleEvent struct {
	ID          string          `json:"id,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	Location    string          `json:"location,omitempty"`
	Description string          `json:"description,omitempty"`
	Start       GoogleEventTime `json:"start"`
	End         GoogleEventTime `json:"end"`
	HTMLLink    string          `json:"htmlLink,omitempty"`
	Status      string          `json:"status,omitempty"`
}

type GoogleEventList struct {
	Items []GoogleEvent `json:"items"`
}

// GoogleErrorBody is the error envelope Google returns on non-2xx.
type GoogleErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ========== Token endpoint ==========

// TokenResponse is the provider token endpoint's reply. RefreshToken is only
// present on the authorization-code grant; the refresh grant never rotates
// it.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

// ========== Internal event representation ==========

// CalendarEvent is the application's event shape. Start and End are either
// both bare dates (all-day) or both date-times with offset, exactly as the
// provider sent them.
type CalendarEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	HTMLLink    string `json:"html_link,omitempty"`
}

// EventInput is the create/update form. StartTime/EndTime are ignored for
// all-day events.
type EventInput struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Description string `json:"description"`
	AllDay      bool   `json:"all_day"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD
	StartTime   string `json:"start_time"` // HH:MM
	EndDate     string `json:"end_date"`
	EndTime     string `json:"end_time"`
}

// ========== API responses ==========

type ConnectURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type ConnectRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type ConnectionStatusResponse struct {
	State         string `json:"state"`
	Connected     bool   `json:"connected"`
	OwnerEmail    string `json:"owner_email,omitempty"`
	OwnerMismatch bool   `json:"owner_mismatch"`
}

type EventListResponse struct {
	Events []CalendarEvent `json:"events"`
}
