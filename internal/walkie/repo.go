package walkie

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PGRepository persists broadcasts in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const broadcastColumns = `id, sender_id, sender_name, duration_ms, mime_type, audio_url, status, created_at`

func scanBroadcast(row interface{ Scan(...any) error }) (Broadcast, error) {
	var b Broadcast
	err := row.Scan(&b.ID, &b.SenderID, &b.SenderName, &b.DurationMS, &b.MIMEType, &b.AudioURL, &b.Status, &b.CreatedAt)
	return b, err
}

func (r *PGRepository) Create(ctx context.Context, b Broadcast, clip []byte) (Broadcast, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO broadcasts (id, sender_id, sender_name, duration_ms, mime_type, clip, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+broadcastColumns,
		b.ID, b.SenderID, b.SenderName, b.DurationMS, b.MIMEType, clip, b.Status)
	return scanBroadcast(row)
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Broadcast, error) {
	b, err := scanBroadcast(r.db.QueryRowContext(ctx, `SELECT `+broadcastColumns+` FROM broadcasts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGRepository) Clip(ctx context.Context, id string) ([]byte, error) {
	var clip []byte
	err := r.db.QueryRowContext(ctx, `SELECT clip FROM broadcasts WHERE id = $1`, id).Scan(&clip)
	return clip, err
}

func (r *PGRepository) MarkReady(ctx context.Context, id, url string, keepClip bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE broadcasts SET status = 'ready', audio_url = $2,
			clip = CASE WHEN $3 THEN clip ELSE NULL END
		WHERE id = $1
	`, id, url, keepClip)
	return err
}

func (r *PGRepository) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE broadcasts SET status = 'failed' WHERE id = $1`, id)
	return err
}

func (r *PGRepository) Recent(ctx context.Context, limit int) ([]Broadcast, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+broadcastColumns+` FROM broadcasts ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Broadcast
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}
