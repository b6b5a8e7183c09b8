package persistence

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"publisher/domain/model"
	"publisher/domain/repository"
)

type ScheduledJobRepository struct {
	db *sql.DB
}

func NewScheduledJobRepository(db *sql.DB) *ScheduledJobRepository {
	return &ScheduledJobRepository{db: db}
}

const scheduledJobColumns = `id, user_id, content_id, account_ids, scheduled_at, timezone, priority, status, attempts, max_attempts, external_job_id, error_message, processed_at, created_at, updated_at`

// EncodeAccountSet serializes an account-ID set for storage. The sorted
// comma-joined form makes equal sets compare equal regardless of input order.
func EncodeAccountSet(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func decodeAccountSet(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func scanScheduledJob(row interface{ Scan(...interface{}) error }) (*model.ScheduledJob, error) {
	j := &model.ScheduledJob{}
	var accountIDs string
	var externalJobID, errMsg sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(&j.ID, &j.UserID, &j.ContentID, &accountIDs, &j.ScheduledAt,
		&j.Timezone, &j.Priority, &j.Status, &j.Attempts, &j.MaxAttempts,
		&externalJobID, &errMsg, &processedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.AccountIDs = decodeAccountSet(accountIDs)
	if externalJobID.Valid {
		v := externalJobID.String
		j.ExternalJobID = &v
	}
	if errMsg.Valid {
		v := errMsg.String
		j.ErrorMessage = &v
	}
	if processedAt.Valid {
		j.ProcessedAt = &processedAt.Time
	}
	return j, nil
}

func (r *ScheduledJobRepository) Create(ctx context.Context, job *model.ScheduledJob) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (id, user_id, content_id, account_ids, scheduled_at, timezone, priority, status, attempts, max_attempts, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`,
		job.ID, job.UserID, job.ContentID, EncodeAccountSet(job.AccountIDs),
		job.ScheduledAt.UTC(), job.Timezone, job.Priority, job.Status,
		job.Attempts, job.MaxAttempts, job.CreatedAt)
	return err
}

func (r *ScheduledJobRepository) GetByID(ctx context.Context, id string) (*model.ScheduledJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduledJobColumns+` FROM scheduled_jobs WHERE id=$1`, id)
	j, err := scanScheduledJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func (r *ScheduledJobRepository) FindNonTerminalByContent(ctx context.Context, contentID string) ([]*model.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduledJobColumns+` FROM scheduled_jobs WHERE content_id=$1 AND status IN ($2, $3)`,
		contentID, model.ScheduledJobStatusPending, model.ScheduledJobStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ScheduledJob
	for rows.Next() {
		j, err := scanScheduledJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *ScheduledJobRepository) CountNonTerminalByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scheduled_jobs WHERE user_id=$1 AND status IN ($2, $3)`,
		userID, model.ScheduledJobStatusPending, model.ScheduledJobStatusActive).Scan(&n)
	return n, err
}

func (r *ScheduledJobRepository) SetExternalJobID(ctx context.Context, id, externalJobID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET external_job_id=$1, updated_at=$2 WHERE id=$3`,
		externalJobID, time.Now().UTC(), id)
	return err
}

func (r *ScheduledJobRepository) UpdateStatus(ctx context.Context, id string, status model.ScheduledJobStatus, errMsg *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET status=$1, error_message=$2, updated_at=$3 WHERE id=$4`,
		status, errMsg, time.Now().UTC(), id)
	return err
}

func (r *ScheduledJobRepository) BeginAttempt(ctx context.Context, id string, processedAt time.Time) (*model.ScheduledJob, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE scheduled_jobs SET status=$1, attempts=attempts+1, processed_at=$2, updated_at=$3 WHERE id=$4
		 RETURNING `+scheduledJobColumns,
		model.ScheduledJobStatusActive, processedAt.UTC(), time.Now().UTC(), id)
	j, err := scanScheduledJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

var _ repository.IScheduledJob = (*ScheduledJobRepository)(nil)
