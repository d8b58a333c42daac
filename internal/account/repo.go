package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"academy/internal/store"
)

// PGRepository persists accounts and profiles in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

// CreateAccount inserts the account and its profile together.
func (r *PGRepository) CreateAccount(ctx context.Context, a Account, p Profile) (Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	err := store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO accounts (id, email, password_hash)
			VALUES ($1, $2, $3)
			RETURNING created_at
		`, a.ID, a.Email, a.PasswordHash).Scan(&a.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (account_id, full_name, role, avatar_url)
			VALUES ($1, $2, $3, $4)
		`, a.ID, p.FullName, p.Role, p.AvatarURL)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// AccountByEmail returns nil when no account matches.
func (r *PGRepository) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM accounts WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Profile returns nil when the account has no profile row.
func (r *PGRepository) Profile(ctx context.Context, accountID string) (*Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT p.account_id, a.email, p.full_name, p.role, p.avatar_url, p.created_at
		FROM profiles p JOIN accounts a ON a.id = p.account_id
		WHERE p.account_id = $1
	`, accountID).Scan(&p.AccountID, &p.Email, &p.FullName, &p.Role, &p.AvatarURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns profiles, optionally filtered by role.
func (r *PGRepository) ListProfiles(ctx context.Context, role string) ([]Profile, error) {
	query := `
		SELECT p.account_id, a.email, p.full_name, p.role, p.avatar_url, p.created_at
		FROM profiles p JOIN accounts a ON a.id = p.account_id`
	args := []any{}
	if role != "" {
		query += ` WHERE p.role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY p.full_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.AccountID, &p.Email, &p.FullName, &p.Role, &p.AvatarURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// UpdateProfile updates name, role and avatar.
func (r *PGRepository) UpdateProfile(ctx context.Context, p Profile) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET full_name = $2, role = $3, avatar_url = $4, updated_at = NOW()
		WHERE account_id = $1
	`, p.AccountID, p.FullName, p.Role, p.AvatarURL)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *PGRepository) SaveRefreshToken(ctx context.Context, accountID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, account_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, accountID, expiresAt)
	return err
}

// ConsumeRefreshToken revokes token if it is stored, unrevoked and unexpired.
// Concurrent callers race on the row; only one sees it change.
func (r *PGRepository) ConsumeRefreshToken(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token = $1 AND NOT revoked AND expires_at > NOW()
	`, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RevokeRefreshToken marks a token revoked.
func (r *PGRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

// RevokeAllRefreshTokens revokes every token of an account.
func (r *PGRepository) RevokeAllRefreshTokens(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE account_id = $1`, accountID)
	return err
}
