package model

import "time"

type AccountStatus string

const (
	AccountStatusConnecting AccountStatus = "CONNECTING"
	AccountStatusConnected  AccountStatus = "CONNECTED"
	AccountStatusExpired    AccountStatus = "EXPIRED"
	AccountStatusRevoked    AccountStatus = "REVOKED"
	AccountStatusError      AccountStatus = "ERROR"
)

// Account binds a user's credentials to one platform. Only CONNECTED accounts
// are eligible publish targets.
type Account struct {
	ID                string        `json:"id"`
	UserID            string        `json:"user_id"`
	Platform          Platform      `json:"platform"`
	PlatformAccountID string        `json:"platform_account_id"`
	AccessToken       string        `json:"-"`
	RefreshToken      string        `json:"-"`
	TokenExpiresAt    *time.Time    `json:"token_expires_at,omitempty"`
	Status            AccountStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
