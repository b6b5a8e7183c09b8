package persistence

import (
	"context"
	"database/sql"
	"time"

	"publisher/domain/model"
	"publisher/domain/repository"
)

type ContentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) *ContentRepository { return &ContentRepository{db: db} }

const contentColumns = `id, user_id, title, description, file_url, mime_type, duration, status, scheduled_at, published_at, created_at, updated_at`

func scanContent(row interface{ Scan(...interface{}) error }) (*model.Content, error) {
	c := &model.Content{}
	var scheduledAt, publishedAt sql.NullTime
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &c.FileURL, &c.MimeType,
		&c.Duration, &c.Status, &scheduledAt, &publishedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if scheduledAt.Valid {
		c.ScheduledAt = &scheduledAt.Time
	}
	if publishedAt.Valid {
		c.PublishedAt = &publishedAt.Time
	}
	return c, nil
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (*model.Content, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM contents WHERE id=$1`, id)
	c, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *ContentRepository) UpdateStatus(ctx context.Context, id string, status model.ContentStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contents SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now().UTC(), id)
	return err
}

func (r *ContentRepository) SetScheduledAt(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contents SET scheduled_at=$1, updated_at=$2 WHERE id=$3`,
		at.UTC(), time.Now().UTC(), id)
	return err
}

func (r *ContentRepository) SetPublishedAt(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contents SET published_at=$1, updated_at=$2 WHERE id=$3`,
		at.UTC(), time.Now().UTC(), id)
	return err
}

var _ repository.IContent = (*ContentRepository)(nil)
