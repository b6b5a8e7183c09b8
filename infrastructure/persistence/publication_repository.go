package persistence

import (
	"context"
	"database/sql"
	"time"

	"publisher/domain/model"
	"publisher/domain/repository"
)

type PublicationRepository struct {
	db *sql.DB
}

func NewPublicationRepository(db *sql.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

const publicationColumns = `id, content_id, account_id, platform, status, platform_post_id, published_at, error_message, created_at, updated_at`

func scanPublication(row interface{ Scan(...interface{}) error }) (*model.Publication, error) {
	p := &model.Publication{}
	var postID, errMsg sql.NullString
	var publishedAt sql.NullTime
	err := row.Scan(&p.ID, &p.ContentID, &p.AccountID, &p.Platform, &p.Status,
		&postID, &publishedAt, &errMsg, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if postID.Valid {
		v := postID.String
		p.PlatformPostID = &v
	}
	if publishedAt.Valid {
		p.PublishedAt = &publishedAt.Time
	}
	if errMsg.Valid {
		v := errMsg.String
		p.ErrorMessage = &v
	}
	return p, nil
}

// CreateBatch inserts all publications in one transaction so a partial batch
// never becomes visible.
func (r *PublicationRepository) CreateBatch(ctx context.Context, pubs []*model.Publication) error {
	if len(pubs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	now := time.Now().UTC()
	q := `INSERT INTO publications (id, content_id, account_id, platform, status, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$6)`
	for _, p := range pubs {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = p.CreatedAt
		if _, err = tx.ExecContext(ctx, q, p.ID, p.ContentID, p.AccountID, p.Platform, p.Status, p.CreatedAt); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func (r *PublicationRepository) GetByID(ctx context.Context, id string) (*model.Publication, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+publicationColumns+` FROM publications WHERE id=$1`, id)
	p, err := scanPublication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PublicationRepository) ListByContent(ctx context.Context, contentID string) ([]*model.Publication, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+publicationColumns+` FROM publications WHERE content_id=$1 ORDER BY created_at ASC`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PublicationRepository) UpdateStatus(ctx context.Context, id string, status model.PublicationStatus, errMsg *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publications SET status=$1, error_message=$2, updated_at=$3 WHERE id=$4`,
		status, errMsg, time.Now().UTC(), id)
	return err
}

func (r *PublicationRepository) MarkPublished(ctx context.Context, id, platformPostID string, publishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publications SET status=$1, platform_post_id=$2, published_at=$3, error_message=NULL, updated_at=$4 WHERE id=$5`,
		model.PublicationStatusPublished, platformPostID, publishedAt.UTC(), time.Now().UTC(), id)
	return err
}

func (r *PublicationRepository) ForceFailPending(ctx context.Context, contentID string, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publications SET status=$1, error_message=$2, updated_at=$3 WHERE content_id=$4 AND status IN ($5, $6)`,
		model.PublicationStatusFailed, errMsg, time.Now().UTC(), contentID,
		model.PublicationStatusQueued, model.PublicationStatusPublishing)
	return err
}

var _ repository.IPublication = (*PublicationRepository)(nil)
