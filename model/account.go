package model

import "time"

// Account is a user as seen by the login flow.
type Account struct {
	ID               string `json:"id"`
	TenantID         string `json:"tenant_id"`
	Email            string `json:"email"`
	PasswordHash     string `json:"-"`
	FailedLoginCount int    `json:"failed_login_count"`
	LockedOut        bool   `json:"locked_out"`
	// DeviceCount is the number of registered hardware authentication
	// devices. Such accounts cannot log in with a password.
	DeviceCount int `json:"device_count"`
}

// Identity is an authenticated caller.
type Identity struct {
	TenantID  string   `json:"tenant_id"`
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	SessionID string   `json:"session_id"`
	Groups    []string `json:"groups"`
	Roles     []string `json:"roles"`
}

// HasRole reports whether the identity carries role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenBinding is the persisted half of an access token. Only the hash of
// the token is kept.
type TokenBinding struct {
	TokenHash      string    `json:"token_hash"`
	TenantID       string    `json:"tenant_id"`
	AccountID      string    `json:"account_id"`
	AccountEmail   string    `json:"account_email"`
	SessionID      string    `json:"session_id"`
	// Groups are the account's memberships at issuance.
	Groups         []string  `json:"groups"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpirationTime time.Time `json:"expiration_time"`
}

// Expired reports whether the binding is no longer usable at now.
func (b *TokenBinding) Expired(now time.Time) bool {
	return !now.Before(b.ExpirationTime)
}

type LoginRequest struct {
	TenantID   string `json:"-"`
	Account    string `json:"account" binding:"required"`
	Password   string `json:"password" binding:"required"`
	SessionID  string `json:"-"`
	RemoteAddr string `json:"-"`
}

type InvalidateTokenRequest struct {
	Account     string `json:"account" binding:"required"`
	AccessToken string `json:"accessToken" binding:"required"`
}

// AccessTokenResult carries the plaintext token. It is returned exactly once.
type AccessTokenResult struct {
	AccessToken    string    `json:"accessToken"`
	ExpirationTime time.Time `json:"expirationTime"`
}
