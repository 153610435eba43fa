package service

import (
	"github.com/google/uuid"
)

// TokenAuthority issues the opaque single-use tokens that gate approval
// records. Tokens are random UUIDs; possession of one is the only credential
// an approver presents.
type TokenAuthority struct{}

// NewTokenAuthority creates a new TokenAuthority instance
func NewTokenAuthority() *TokenAuthority {
	return &TokenAuthority{}
}

// Issue returns a freshly generated token
func (t *TokenAuthority) Issue() string {
	return uuid.NewString()
}
