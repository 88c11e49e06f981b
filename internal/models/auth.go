package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by the supplementary bearer token
// issued alongside a session on login. The session is authoritative; this
// token never grants access on its own.
type TokenClaims struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username,omitempty"`
	jwt.RegisteredClaims
}
