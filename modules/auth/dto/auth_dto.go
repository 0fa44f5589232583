package dto

// GoogleLoginRequest carries the ID token obtained by the frontend from
// Google Identity Services.
type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// GoogleTokenInfo is the subset of Google's tokeninfo response we consume.
type GoogleTokenInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Audience      string `json:"aud"`
	Expiry        string `json:"exp"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	User        UserProfile `json:"user"`
}

type UserProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}
