package entity

import "time"

// Credential is the stored Google Calendar OAuth credential. One slot exists
// per deployment; OwnerEmail records which signed-in account the tokens were
// granted for, and callers must check it before trusting the slot.
type Credential struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	OwnerEmail   string    `json:"owner_email"`
}

// Expired reports whether the access token's expiry has passed.
func (c *Credential) Expired() bool {
	return time.Now().After(c.ExpiresAt)
}

// ExpiresSoon reports whether the access token expires within the grace
// window, used by the background keep-fresh task.
func (c *Credential) ExpiresSoon(window time.Duration) bool {
	return time.Now().After(c.ExpiresAt.Add(-window))
}

// OwnedBy reports whether the credential belongs to the given account.
func (c *Credential) OwnedBy(email string) bool {
	return c.OwnerEmail == email
}
