package persistence

import (
	"context"
	"database/sql"

	"publisher/domain/model"
	"publisher/domain/repository"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (*model.User, error) {
	u := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_name, email, created_at, updated_at FROM users WHERE user_name=$1`,
		userName).Scan(&u.ID, &u.UserName, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Authenticate(ctx context.Context, userName, passwordHash string) (*model.User, error) {
	u := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_name, email, created_at, updated_at FROM users WHERE user_name=$1 AND password=$2`,
		userName, passwordHash).Scan(&u.ID, &u.UserName, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

var _ repository.IUser = (*UserRepository)(nil)
