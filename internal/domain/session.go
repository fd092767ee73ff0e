package domain

import "time"

// SessionClaims are the verified claims of a session access token.
type SessionClaims struct {
	Subject  string `json:"sub"`
	Username string `json:"username"`
	Email    string `json:"email"`
	AuthTime int64  `json:"auth_time"`
	Exp      int64  `json:"exp"`
	Iat      int64  `json:"iat"`
}

// IsExpired checks if the token is expired.
func (c SessionClaims) IsExpired() bool {
	return time.Now().Unix() > c.Exp
}

// RecentlyAuthenticated reports whether the session authenticated within
// maxAge. Sensitive operations (setting a password on a live session)
// require a fresh authentication, not just a valid token.
func (c SessionClaims) RecentlyAuthenticated(maxAge time.Duration) bool {
	if c.AuthTime == 0 {
		return false
	}
	return time.Now().Unix()-c.AuthTime <= int64(maxAge.Seconds())
}

// EffectiveUsername returns the directory username for the session, falling
// back to the subject when the token carries no username claim.
func (c SessionClaims) EffectiveUsername() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Subject
}
