package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the one token shape this service signs. Role and name ride only on
// access tokens; a refresh token names the user and nothing else.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	Name      string    `json:"name,omitempty"`
	TokenType TokenType `json:"token_type"`
}

func (c Claims) check(expected TokenType) error {
	switch {
	case c.TokenType != expected:
		return errors.New("token_type mismatch")
	case c.UserID == "":
		return errors.New("user_id missing")
	case expected == TokenTypeAccess && c.Role == "":
		return errors.New("role missing in access token")
	case expected == TokenTypeRefresh && c.Role != "":
		return errors.New("refresh token carries a role")
	}
	return nil
}

// Identity returns what the access token asserts.
func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role, Name: c.Name}
}
