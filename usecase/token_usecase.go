package usecase

import (
	"context"
	"fmt"
	"time"

	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/logger"
)

// refreshMargin is how close to expiry a token may get before it is refreshed
// pre-emptively.
const refreshMargin = 5 * time.Minute

// ITokenRefresher exchanges a refresh token for fresh credentials with the
// platform's OAuth endpoint.
type ITokenRefresher interface {
	Refresh(ctx context.Context, account *model.Account) (accessToken, refreshToken string, expiresAt *time.Time, err error)
}

type tokenUsecase struct {
	accountRepo repository.IAccount
	refresher   ITokenRefresher
	now         func() time.Time
}

func NewTokenUsecase(accountRepo repository.IAccount, refresher ITokenRefresher) repository.ITokenResolver {
	return &tokenUsecase{accountRepo: accountRepo, refresher: refresher, now: time.Now}
}

// GetValidAccessToken returns a non-expired access token for the account,
// refreshing it through the platform when within the expiry margin. Failures
// surface to the caller as the platform call failing.
func (u *tokenUsecase) GetValidAccessToken(ctx context.Context, accountID string) (string, error) {
	account, err := u.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", fmt.Errorf("account %s not found", accountID)
	}
	if account.Status != model.AccountStatusConnected {
		return "", fmt.Errorf("account %s is %s, not CONNECTED", accountID, account.Status)
	}
	if account.AccessToken == "" {
		return "", fmt.Errorf("account %s has no access token", accountID)
	}
	if account.TokenExpiresAt == nil || u.now().Add(refreshMargin).Before(*account.TokenExpiresAt) {
		return account.AccessToken, nil
	}

	log := logger.GetLogger().
		WithField("account_id", accountID).
		WithField("platform", account.Platform)
	log.Info("access token near expiry, refreshing")

	accessToken, refreshToken, expiresAt, err := u.refresher.Refresh(ctx, account)
	if err != nil {
		if updErr := u.accountRepo.UpdateStatus(ctx, accountID, model.AccountStatusExpired); updErr != nil {
			log.WithField("error", updErr.Error()).Warn("failed to mark account expired")
		}
		return "", fmt.Errorf("refresh token for account %s: %w", accountID, err)
	}
	if err := u.accountRepo.UpdateTokens(ctx, accountID, accessToken, refreshToken, expiresAt); err != nil {
		return "", err
	}
	return accessToken, nil
}

// StaticTokenRefresher stands in for the per-platform OAuth exchange until the
// real integrations are wired; it re-issues the current access token with a
// fresh one-hour expiry.
type StaticTokenRefresher struct{}

func (StaticTokenRefresher) Refresh(ctx context.Context, account *model.Account) (string, string, *time.Time, error) {
	if account.RefreshToken == "" {
		return "", "", nil, fmt.Errorf("%s: account %s has no refresh token", account.Platform, account.ID)
	}
	expiresAt := time.Now().Add(time.Hour)
	return account.AccessToken, account.RefreshToken, &expiresAt, nil
}
