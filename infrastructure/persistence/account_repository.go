package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"publisher/domain/model"
	"publisher/domain/repository"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository { return &AccountRepository{db: db} }

const accountColumns = `id, user_id, platform, platform_account_id, access_token, refresh_token, token_expires_at, status, created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*model.Account, error) {
	a := &model.Account{}
	var expiresAt sql.NullTime
	err := row.Scan(&a.ID, &a.UserID, &a.Platform, &a.PlatformAccountID,
		&a.AccessToken, &a.RefreshToken, &expiresAt, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		a.TokenExpiresAt = &expiresAt.Time
	}
	return a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*model.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE status=$1 AND token_expires_at IS NOT NULL AND token_expires_at < $2`,
		model.AccountStatusConnected, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET access_token=$1, refresh_token=$2, token_expires_at=$3, updated_at=$4 WHERE id=$5`,
		accessToken, refreshToken, expiresAt, time.Now().UTC(), id)
	return err
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, id string, status model.AccountStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now().UTC(), id)
	return err
}

var _ repository.IAccount = (*AccountRepository)(nil)
