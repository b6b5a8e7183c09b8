package repository

import (
	"context"
	"time"

	"publisher/domain/model"
)

type IAccount interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.Account, error)
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error
	UpdateStatus(ctx context.Context, id string, status model.AccountStatus) error
	// ListExpiring returns connected accounts whose access token expires
	// before the given instant.
	ListExpiring(ctx context.Context, before time.Time) ([]*model.Account, error)
}
