package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity holds the display attributes of the authenticated user.
type Identity struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Credential is the bearer token plus the identity it was issued for.
// An Identity exists iff a Credential exists; they are never stored apart.
type Credential struct {
	Token    string
	Identity Identity
}

// ExpiresAt reads the exp claim when the token is a JWT. Opaque tokens, and
// JWTs without exp, report ok=false. The signature is not verified.
func (c Credential) ExpiresAt() (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token carries an exp claim that is before now.
func (c Credential) Expired(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	return ok && !exp.After(now)
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse accepts both shapes the backend is documented to send:
// {token, user:{username,email,role}} and {token, username, email, role}.
type LoginResponse struct {
	Token    string    `json:"token"`
	User     *Identity `json:"user,omitempty"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// Identity returns the nested user when present, else the flat fields.
func (r LoginResponse) Identity() Identity {
	if r.User != nil {
		return *r.User
	}
	return Identity{Username: r.Username, Email: r.Email, Role: r.Role}
}
