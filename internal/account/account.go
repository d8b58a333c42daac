// Package account owns sign-in, token rotation and the application profile
// that every authenticated account must have.
package account

import (
	"context"
	"time"
)

// Account is an authentication identity.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the application-level user record attached to an account.
type Profile struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository is the persistence the account service needs.
type Repository interface {
	CreateAccount(ctx context.Context, a Account, p Profile) (Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	Profile(ctx context.Context, accountID string) (*Profile, error)
	ListProfiles(ctx context.Context, role string) ([]Profile, error)
	UpdateProfile(ctx context.Context, p Profile) error
	SaveRefreshToken(ctx context.Context, accountID, token string, expiresAt time.Time) error
	// ConsumeRefreshToken revokes an active token and reports whether this
	// call was the one that revoked it.
	ConsumeRefreshToken(ctx context.Context, token string) (bool, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllRefreshTokens(ctx context.Context, accountID string) error
}
