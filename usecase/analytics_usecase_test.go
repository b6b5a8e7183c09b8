package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/queue"
)

type analyticsFixture struct {
	pubRepo     *mockPublicationRepo
	accountRepo *mockAccountRepo
	delayQueue  *mockDelayQueue
	adapter     *fakeAdapter
	uc          IAnalyticsUsecase
}

func newAnalyticsFixture() *analyticsFixture {
	f := &analyticsFixture{
		pubRepo:     &mockPublicationRepo{},
		accountRepo: &mockAccountRepo{},
		delayQueue:  &mockDelayQueue{},
		adapter:     &fakeAdapter{platform: model.PlatformTikTok},
	}
	adapters := repository.AdapterRegistry{model.PlatformTikTok: f.adapter}
	f.uc = NewAnalyticsUsecase(f.pubRepo, f.accountRepo, adapters, &staticTokens{token: "tok"}, f.delayQueue)
	return f
}

func TestAnalyticsEmitEnqueuesOnPlatformSuccess(t *testing.T) {
	f := newAnalyticsFixture()
	f.delayQueue.On("Enqueue", mock.Anything, queue.QueueAnalytics, []byte("pub-1"),
		mock.MatchedBy(func(opts repository.EnqueueOptions) bool {
			return opts.JobID == "stats:pub-1" && opts.Delay == analyticsCollectDelay
		})).Return("stats:pub-1", nil)

	f.uc.Emit(model.PublishEvent{Type: model.EventPlatformSuccess, PublicationID: "pub-1"})

	f.delayQueue.AssertExpectations(t)
}

func TestAnalyticsEmitIgnoresOtherEvents(t *testing.T) {
	f := newAnalyticsFixture()

	f.uc.Emit(model.PublishEvent{Type: model.EventPlatformFailed, PublicationID: "pub-1"})
	f.uc.Emit(model.PublishEvent{Type: model.EventPublishCompleted, ContentID: "content-1"})
	f.uc.Emit(model.PublishEvent{Type: model.EventPlatformSuccess}) // no publication id

	f.delayQueue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// runAnalyticsJob drives one job through a real queue so the handler sees a
// genuine JobContext.
func runAnalyticsJob(t *testing.T, f *analyticsFixture, maxAttempts int) *model.QueueCounts {
	t.Helper()
	q := queue.New("analytics", queue.Options{Concurrency: 1, RetryBase: 5 * time.Millisecond, MaxAttempts: maxAttempts})
	defer q.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Process(ctx, f.uc.ProcessAnalyticsJob)

	_, err := q.Enqueue("stats:pub-1", []byte("pub-1"), time.Millisecond, 3, maxAttempts)
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		counts := q.Counts()
		if counts.Completed+counts.Failed > 0 && counts.Active == 0 && counts.Waiting == 0 && counts.Delayed == 0 {
			return counts
		}
		select {
		case <-deadline:
			t.Fatal("queue did not settle in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func livePublication() *model.Publication {
	now := time.Now()
	postID := "tt_123"
	return &model.Publication{
		ID:             "pub-1",
		ContentID:      "content-1",
		AccountID:      "acc-1",
		Platform:       model.PlatformTikTok,
		Status:         model.PublicationStatusPublished,
		PlatformPostID: &postID,
		PublishedAt:    &now,
	}
}

func TestProcessAnalyticsJobSuccess(t *testing.T) {
	f := newAnalyticsFixture()
	f.pubRepo.On("GetByID", mock.Anything, "pub-1").Return(livePublication(), nil)
	f.accountRepo.On("GetByID", mock.Anything, "acc-1").
		Return(&model.Account{ID: "acc-1", Platform: model.PlatformTikTok, Status: model.AccountStatusConnected}, nil)

	counts := runAnalyticsJob(t, f, 3)

	assert.Equal(t, int64(1), counts.Completed)
	f.pubRepo.AssertExpectations(t)
}

func TestProcessAnalyticsJobDeadLettersWhenNotLive(t *testing.T) {
	f := newAnalyticsFixture()
	failed := livePublication()
	failed.Status = model.PublicationStatusFailed
	f.pubRepo.On("GetByID", mock.Anything, "pub-1").Return(failed, nil)

	counts := runAnalyticsJob(t, f, 3)

	assert.Equal(t, int64(1), counts.Failed)
	// unrecoverable: a single attempt, no retries
	f.pubRepo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestProcessAnalyticsJobDeadLettersWithoutPostID(t *testing.T) {
	f := newAnalyticsFixture()
	noPost := livePublication()
	noPost.PlatformPostID = nil
	f.pubRepo.On("GetByID", mock.Anything, "pub-1").Return(noPost, nil)

	counts := runAnalyticsJob(t, f, 3)

	assert.Equal(t, int64(1), counts.Failed)
	f.pubRepo.AssertNumberOfCalls(t, "GetByID", 1)
}
