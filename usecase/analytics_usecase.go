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

// analyticsCollectDelay is how long after a successful publish the first
// analytics snapshot is collected; platforms need a little time before
// counters are meaningful.
const analyticsCollectDelay = time.Minute

// IAnalyticsUsecase feeds the analytics queue from the publish event stream
// and processes the collection jobs it enqueued.
type IAnalyticsUsecase interface {
	repository.IEventSink
	ProcessAnalyticsJob(jc *queue.JobContext) error
}

type analyticsUsecase struct {
	pubRepo     repository.IPublication
	accountRepo repository.IAccount
	adapters    repository.AdapterRegistry
	tokens      repository.ITokenResolver
	delayQueue  repository.IDelayQueue
}

func NewAnalyticsUsecase(
	pubRepo repository.IPublication,
	accountRepo repository.IAccount,
	adapters repository.AdapterRegistry,
	tokens repository.ITokenResolver,
	delayQueue repository.IDelayQueue,
) IAnalyticsUsecase {
	return &analyticsUsecase{
		pubRepo:     pubRepo,
		accountRepo: accountRepo,
		adapters:    adapters,
		tokens:      tokens,
		delayQueue:  delayQueue,
	}
}

// Emit watches the publish event stream; every successful platform publish
// schedules one analytics collection job. Enqueueing the same publication
// twice is a queue-level no-op.
func (u *analyticsUsecase) Emit(event model.PublishEvent) {
	if event.Type != model.EventPlatformSuccess || event.PublicationID == "" {
		return
	}
	_, err := u.delayQueue.Enqueue(context.Background(), queue.QueueAnalytics,
		[]byte(event.PublicationID), repository.EnqueueOptions{
			Delay:    analyticsCollectDelay,
			Priority: model.JobPriorityLow.QueueWeight(),
			JobID:    "stats:" + event.PublicationID,
		})
	if err != nil {
		logger.GetLogger().
			WithField("publication_id", event.PublicationID).
			WithField("error", err.Error()).
			Warn("failed to enqueue analytics collection")
	}
}

// ProcessAnalyticsJob collects one analytics snapshot. Payload is the
// publication id. Publications that are no longer live are dead-lettered
// rather than retried.
func (u *analyticsUsecase) ProcessAnalyticsJob(jc *queue.JobContext) error {
	ctx := jc.Context()
	pubID := string(jc.Payload())

	pub, err := u.pubRepo.GetByID(ctx, pubID)
	if err != nil {
		return err
	}
	if pub == nil || pub.Status != model.PublicationStatusPublished || pub.PlatformPostID == nil || *pub.PlatformPostID == "" {
		return queue.Unrecoverable(fmt.Errorf("publication %s is not live", pubID))
	}

	account, err := u.accountRepo.GetByID(ctx, pub.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return queue.Unrecoverable(fmt.Errorf("account %s no longer exists", pub.AccountID))
	}
	adapter, ok := u.adapters.For(pub.Platform)
	if !ok {
		return queue.Unrecoverable(fmt.Errorf("no adapter for platform %s", pub.Platform))
	}

	token, err := u.tokens.GetValidAccessToken(ctx, pub.AccountID)
	if err != nil {
		return err
	}
	metrics, err := adapter.GetAnalytics(ctx, account, token, *pub.PlatformPostID)
	if err != nil {
		return err
	}

	logger.GetLogger().
		WithField("publication_id", pubID).
		WithField("platform", pub.Platform).
		WithField("metrics", metrics).
		Info("analytics snapshot collected")
	return nil
}
