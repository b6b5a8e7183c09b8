package repository

import (
	"context"

	"publisher/domain/model"
)

type IUser interface {
	GetByUserName(ctx context.Context, userName string) (*model.User, error)
	// Authenticate returns the user when the name/password-hash pair matches,
	// (nil, nil) otherwise.
	Authenticate(ctx context.Context, userName, passwordHash string) (*model.User, error)
}
