package usecase

import (
	"context"
	"fmt"
	"time"

	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/logger"
	"publisher/infrastructure/queue"
)

// tokenRefreshLookahead is how far ahead of expiry the sweep enqueues a
// refresh; it is deliberately wider than the resolver's refresh margin so
// tokens are renewed before a publish has to wait on the exchange.
const tokenRefreshLookahead = 15 * time.Minute

// ITokenRefreshWorker keeps connected accounts' tokens fresh in the
// background via the token-refresh queue.
type ITokenRefreshWorker interface {
	EnqueueDue(ctx context.Context) error
	ProcessTokenRefreshJob(jc *queue.JobContext) error
}

type tokenRefreshWorker struct {
	accountRepo repository.IAccount
	tokens      repository.ITokenResolver
	delayQueue  repository.IDelayQueue
	now         func() time.Time
}

func NewTokenRefreshWorker(
	accountRepo repository.IAccount,
	tokens repository.ITokenResolver,
	delayQueue repository.IDelayQueue,
) ITokenRefreshWorker {
	return &tokenRefreshWorker{
		accountRepo: accountRepo,
		tokens:      tokens,
		delayQueue:  delayQueue,
		now:         time.Now,
	}
}

// EnqueueDue schedules a refresh job for every connected account whose token
// expires within the lookahead. The stable job id makes repeated sweeps of
// the same account a no-op while a job is still pending.
func (w *tokenRefreshWorker) EnqueueDue(ctx context.Context) error {
	accounts, err := w.accountRepo.ListExpiring(ctx, w.now().Add(tokenRefreshLookahead))
	if err != nil {
		return err
	}
	for _, account := range accounts {
		_, err := w.delayQueue.Enqueue(ctx, queue.QueueTokenRefresh,
			[]byte(account.ID), repository.EnqueueOptions{
				Priority: model.JobPriorityHigh.QueueWeight(),
				JobID:    "tok:" + account.ID,
			})
		if err != nil {
			logger.GetLogger().
				WithField("account_id", account.ID).
				WithField("error", err.Error()).
				Warn("failed to enqueue token refresh")
		}
	}
	if len(accounts) > 0 {
		logger.GetLogger().WithField("count", len(accounts)).Info("token refresh sweep enqueued accounts")
	}
	return nil
}

// ProcessTokenRefreshJob refreshes one account's token. Payload is the
// account id. Accounts that vanished or disconnected are dead-lettered.
func (w *tokenRefreshWorker) ProcessTokenRefreshJob(jc *queue.JobContext) error {
	ctx := jc.Context()
	accountID := string(jc.Payload())

	account, err := w.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return queue.Unrecoverable(fmt.Errorf("account %s no longer exists", accountID))
	}
	if account.Status != model.AccountStatusConnected {
		return queue.Unrecoverable(fmt.Errorf("account %s is %s, not CONNECTED", accountID, account.Status))
	}

	if _, err := w.tokens.GetValidAccessToken(ctx, accountID); err != nil {
		return err
	}
	return nil
}
