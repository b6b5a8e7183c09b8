package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"publisher/domain/apperrors"
	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/logger"
)

// Aggregate outcome of one publish run.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// AccountPublishResult is the per-account slice of a publish run.
type AccountPublishResult struct {
	AccountID      string         `json:"account_id"`
	Platform       model.Platform `json:"platform"`
	PublicationID  string         `json:"publication_id"`
	Success        bool           `json:"success"`
	PlatformPostID string         `json:"platform_post_id,omitempty"`
	Error          string         `json:"error,omitempty"`
	RateLimitHit   bool           `json:"rate_limit_hit,omitempty"`
	DurationMs     int64          `json:"duration_ms"`
}

type PublishingResult struct {
	ContentID    string                 `json:"content_id"`
	Outcome      string                 `json:"outcome"`
	Results      []AccountPublishResult `json:"results"`
	StartedAt    time.Time              `json:"started_at"`
	CompletedAt  time.Time              `json:"completed_at"`
	DurationMs   int64                  `json:"duration_ms"`
	SuccessCount int                    `json:"success_count"`
	FailureCount int                    `json:"failure_count"`
}

// RollbackResult reports which platform posts were rolled back internally and
// which remote deletions failed (currently all of them; no platform supports
// deletion).
type RollbackResult struct {
	ContentID       string   `json:"content_id"`
	RolledBack      []string `json:"rolled_back"`
	RemoteFailures  []string `json:"remote_failures,omitempty"`
	EligibleCount   int      `json:"eligible_count"`
	ContentReverted bool     `json:"content_reverted"`
}

type IPublishingUsecase interface {
	Publish(ctx context.Context, contentID string, accountIDs []string, userID string) (*PublishingResult, error)
	// PublishWithProgress behaves like Publish and additionally reports
	// (done, total) after each account task finishes, in completion order.
	PublishWithProgress(ctx context.Context, contentID string, accountIDs []string, userID string, onAccountDone func(done, total int)) (*PublishingResult, error)
	Rollback(ctx context.Context, contentID, userID string) (*RollbackResult, error)
	GetPublishingStatus(ctx context.Context, contentID, userID string) ([]*model.Publication, error)
}

type publishingUsecase struct {
	contentRepo     repository.IContent
	accountRepo     repository.IAccount
	publicationRepo repository.IPublication
	adapters        repository.AdapterRegistry
	optimizer       IContentOptimizer
	tokens          repository.ITokenResolver
	events          repository.IEventSink
	rollbackWindow  time.Duration
	now             func() time.Time
}

func NewPublishingUsecase(
	contentRepo repository.IContent,
	accountRepo repository.IAccount,
	publicationRepo repository.IPublication,
	adapters repository.AdapterRegistry,
	optimizer IContentOptimizer,
	tokens repository.ITokenResolver,
	events repository.IEventSink,
	rollbackWindow time.Duration,
) IPublishingUsecase {
	return &publishingUsecase{
		contentRepo:     contentRepo,
		accountRepo:     accountRepo,
		publicationRepo: publicationRepo,
		adapters:        adapters,
		optimizer:       optimizer,
		tokens:          tokens,
		events:          events,
		rollbackWindow:  rollbackWindow,
		now:             time.Now,
	}
}

// Publish fans a single content item out to every target account in parallel.
// Precondition failures happen before any mutation; per-account failures are
// isolated and land on the Publication record, never on the returned error.
func (u *publishingUsecase) Publish(ctx context.Context, contentID string, accountIDs []string, userID string) (*PublishingResult, error) {
	return u.PublishWithProgress(ctx, contentID, accountIDs, userID, nil)
}

func (u *publishingUsecase) PublishWithProgress(ctx context.Context, contentID string, accountIDs []string, userID string, onAccountDone func(done, total int)) (*PublishingResult, error) {
	content, accounts, err := u.checkPreconditions(ctx, contentID, accountIDs, userID)
	if err != nil {
		return nil, err
	}

	startedAt := u.now()
	pubs := make([]*model.Publication, 0, len(accounts))
	pubByAccount := make(map[string]*model.Publication, len(accounts))
	for _, acc := range accounts {
		p := &model.Publication{
			ID:        uuid.NewString(),
			ContentID: contentID,
			AccountID: acc.ID,
			Platform:  acc.Platform,
			Status:    model.PublicationStatusQueued,
		}
		pubs = append(pubs, p)
		pubByAccount[acc.ID] = p
	}
	if err := u.publicationRepo.CreateBatch(ctx, pubs); err != nil {
		return nil, err
	}
	if err := u.contentRepo.UpdateStatus(ctx, contentID, model.ContentStatusPublishing); err != nil {
		return nil, err
	}

	u.events.Emit(model.PublishEvent{
		Type: model.EventPublishStarted, ContentID: contentID, UserID: userID,
		AccountIDs: accountIDs, Timestamp: u.now(),
	})
	for _, acc := range accounts {
		u.events.Emit(model.PublishEvent{
			Type: model.EventPlatformQueued, ContentID: contentID, UserID: userID,
			AccountID: acc.ID, Platform: acc.Platform,
			PublicationID: pubByAccount[acc.ID].ID, Timestamp: u.now(),
		})
	}

	results := make([]AccountPublishResult, len(accounts))
	var wg sync.WaitGroup
	var done int32
	for i, acc := range accounts {
		wg.Add(1)
		go func(i int, acc *model.Account) {
			defer wg.Done()
			results[i] = u.publishToAccount(ctx, content, acc, pubByAccount[acc.ID], userID)
			if onAccountDone != nil {
				onAccountDone(int(atomic.AddInt32(&done, 1)), len(accounts))
			}
		}(i, acc)
	}
	wg.Wait()
	completedAt := u.now()

	successCount := 0
	for _, r := range results {
		if r.Success {
			successCount++
		}
	}
	failureCount := len(results) - successCount

	finalStatus := model.ContentStatusPublished
	outcome := OutcomeSuccess
	switch {
	case successCount == 0:
		finalStatus = model.ContentStatusFailed
		outcome = OutcomeFailed
	case failureCount > 0:
		outcome = OutcomePartial
	}
	if err := u.contentRepo.UpdateStatus(ctx, contentID, finalStatus); err != nil {
		logger.GetLogger().WithField("content_id", contentID).
			WithField("error", err.Error()).Error("failed to finalize content status")
	}
	if finalStatus == model.ContentStatusPublished {
		if err := u.contentRepo.SetPublishedAt(ctx, contentID, completedAt); err != nil {
			logger.GetLogger().WithField("content_id", contentID).
				WithField("error", err.Error()).Error("failed to stamp published_at")
		}
	}

	durationMs := completedAt.Sub(startedAt).Milliseconds()
	u.events.Emit(model.PublishEvent{
		Type: model.EventPublishCompleted, ContentID: contentID, UserID: userID,
		Outcome: outcome, SuccessCount: successCount, FailureCount: failureCount,
		DurationMs: durationMs, Timestamp: completedAt,
	})

	return &PublishingResult{
		ContentID:    contentID,
		Outcome:      outcome,
		Results:      results,
		StartedAt:    startedAt,
		CompletedAt:  completedAt,
		DurationMs:   durationMs,
		SuccessCount: successCount,
		FailureCount: failureCount,
	}, nil
}

func (u *publishingUsecase) checkPreconditions(ctx context.Context, contentID string, accountIDs []string, userID string) (*model.Content, []*model.Account, error) {
	if len(accountIDs) == 0 {
		return nil, nil, apperrors.NewValidation("no target accounts given")
	}
	content, err := u.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, nil, err
	}
	if content == nil {
		return nil, nil, apperrors.NewNotFound("content", contentID)
	}
	if content.UserID != userID {
		return nil, nil, apperrors.NewAuthorization("content " + contentID + " is not owned by the caller")
	}

	accounts, err := u.accountRepo.GetByIDs(ctx, accountIDs)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]*model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	var missing []string
	ordered := make([]*model.Account, 0, len(accountIDs))
	for _, id := range accountIDs {
		a, ok := byID[id]
		if !ok || a.UserID != userID {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, a)
	}
	if len(missing) > 0 {
		return nil, nil, apperrors.NewValidation("accounts not found or not owned by the caller", missing...)
	}

	var notConnected []string
	for _, a := range ordered {
		if a.Status != model.AccountStatusConnected {
			notConnected = append(notConnected, fmt.Sprintf("%s is %s", a.ID, a.Status))
		}
	}
	if len(notConnected) > 0 {
		return nil, nil, apperrors.NewValidation("accounts are not connected", notConnected...)
	}

	var platformErrors []string
	seen := make(map[model.Platform]bool)
	for _, a := range ordered {
		if seen[a.Platform] {
			continue
		}
		seen[a.Platform] = true
		check := u.optimizer.ValidateForPlatform(content, a.Platform)
		for _, e := range check.Errors {
			platformErrors = append(platformErrors, fmt.Sprintf("%s: %s", a.Platform, e))
		}
	}
	if len(platformErrors) > 0 {
		return nil, nil, apperrors.NewValidation("content fails platform validation", platformErrors...)
	}
	return content, ordered, nil
}

// publishToAccount is one isolated fan-out task; it catches its own failures
// and reports them on the Publication record.
func (u *publishingUsecase) publishToAccount(ctx context.Context, content *model.Content, account *model.Account, pub *model.Publication, userID string) AccountPublishResult {
	taskStart := u.now()
	res := AccountPublishResult{
		AccountID:     account.ID,
		Platform:      account.Platform,
		PublicationID: pub.ID,
	}

	u.events.Emit(model.PublishEvent{
		Type: model.EventPlatformPublishing, ContentID: content.ID, UserID: userID,
		AccountID: account.ID, Platform: account.Platform,
		PublicationID: pub.ID, Timestamp: taskStart,
	})
	if err := u.publicationRepo.UpdateStatus(ctx, pub.ID, model.PublicationStatusPublishing, nil); err != nil {
		logger.GetLogger().WithField("publication_id", pub.ID).
			WithField("error", err.Error()).Error("failed to mark publication publishing")
	}

	outcome := u.attemptPlatformPublish(ctx, content, account)
	res.DurationMs = u.now().Sub(taskStart).Milliseconds()

	if outcome.Success {
		res.Success = true
		res.PlatformPostID = outcome.PlatformPostID
		publishedAt := u.now()
		if outcome.PublishedAt != nil {
			publishedAt = *outcome.PublishedAt
		}
		if err := u.publicationRepo.MarkPublished(ctx, pub.ID, outcome.PlatformPostID, publishedAt); err != nil {
			logger.GetLogger().WithField("publication_id", pub.ID).
				WithField("error", err.Error()).Error("failed to mark publication published")
		}
		u.events.Emit(model.PublishEvent{
			Type: model.EventPlatformSuccess, ContentID: content.ID, UserID: userID,
			AccountID: account.ID, Platform: account.Platform,
			PublicationID: pub.ID, PlatformPostID: outcome.PlatformPostID,
			DurationMs: res.DurationMs, Timestamp: u.now(),
		})
		return res
	}

	res.Error = outcome.Error
	res.RateLimitHit = outcome.RateLimitHit
	errMsg := outcome.Error
	if err := u.publicationRepo.UpdateStatus(ctx, pub.ID, model.PublicationStatusFailed, &errMsg); err != nil {
		logger.GetLogger().WithField("publication_id", pub.ID).
			WithField("error", err.Error()).Error("failed to mark publication failed")
	}
	u.events.Emit(model.PublishEvent{
		Type: model.EventPlatformFailed, ContentID: content.ID, UserID: userID,
		AccountID: account.ID, Platform: account.Platform,
		PublicationID: pub.ID, Error: outcome.Error, RateLimitHit: outcome.RateLimitHit,
		DurationMs: res.DurationMs, Timestamp: u.now(),
	})
	return res
}

// attemptPlatformPublish resolves the token, optimizes the payload and calls
// the adapter. Token failures are folded into the same failure shape as a
// platform call failing.
func (u *publishingUsecase) attemptPlatformPublish(ctx context.Context, content *model.Content, account *model.Account) model.PublishResult {
	adapter, ok := u.adapters.For(account.Platform)
	if !ok {
		return model.PublishResult{Error: fmt.Sprintf("no adapter registered for %s", account.Platform)}
	}
	accessToken, err := u.tokens.GetValidAccessToken(ctx, account.ID)
	if err != nil {
		return model.PublishResult{Error: err.Error()}
	}
	optimized := u.optimizer.OptimizeForPlatform(content, account.Platform)
	post := repository.PlatformPost{
		Title:       optimized.Title,
		Description: optimized.Description,
		Hashtags:    optimized.Hashtags,
		FileURL:     content.FileURL,
		MimeType:    content.MimeType,
		Duration:    content.Duration,
	}
	return adapter.PublishContent(ctx, account, accessToken, post)
}

// Rollback force-fails recent publications and reverts the content to DRAFT.
// Remote deletion is attempted per post but no platform implements it, so the
// only guaranteed effect is the internal bookkeeping.
func (u *publishingUsecase) Rollback(ctx context.Context, contentID, userID string) (*RollbackResult, error) {
	content, err := u.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, apperrors.NewNotFound("content", contentID)
	}
	if content.UserID != userID {
		return nil, apperrors.NewAuthorization("content " + contentID + " is not owned by the caller")
	}
	pubs, err := u.publicationRepo.ListByContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	cutoff := u.now().Add(-u.rollbackWindow)
	result := &RollbackResult{ContentID: contentID}
	log := logger.GetLogger().WithField("content_id", contentID)
	for _, p := range pubs {
		if p.Status != model.PublicationStatusPublished || p.PlatformPostID == nil || p.PublishedAt == nil {
			continue
		}
		if p.PublishedAt.Before(cutoff) {
			continue
		}
		result.EligibleCount++
		postID := *p.PlatformPostID

		remoteErr := u.deleteRemotePost(ctx, p)
		if remoteErr != nil {
			result.RemoteFailures = append(result.RemoteFailures, postID)
			log.WithField("platform_post_id", postID).
				WithField("error", remoteErr.Error()).Warn("remote post deletion failed, keeping internal rollback")
		}
		annotation := "Rolled back by user"
		if err := u.publicationRepo.UpdateStatus(ctx, p.ID, model.PublicationStatusFailed, &annotation); err != nil {
			log.WithField("publication_id", p.ID).
				WithField("error", err.Error()).Error("failed to annotate rolled-back publication")
			continue
		}
		result.RolledBack = append(result.RolledBack, postID)
	}

	if result.EligibleCount > 0 {
		if err := u.contentRepo.UpdateStatus(ctx, contentID, model.ContentStatusDraft); err != nil {
			return nil, err
		}
		result.ContentReverted = true
		u.events.Emit(model.PublishEvent{
			Type: model.EventRolledBack, ContentID: contentID, UserID: userID,
			SuccessCount: len(result.RolledBack), FailureCount: len(result.RemoteFailures),
			Timestamp: u.now(),
		})
	}
	return result, nil
}

func (u *publishingUsecase) deleteRemotePost(ctx context.Context, p *model.Publication) error {
	adapter, ok := u.adapters.For(p.Platform)
	if !ok {
		return fmt.Errorf("no adapter registered for %s", p.Platform)
	}
	account, err := u.accountRepo.GetByID(ctx, p.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account %s not found", p.AccountID)
	}
	accessToken, err := u.tokens.GetValidAccessToken(ctx, account.ID)
	if err != nil {
		return err
	}
	return adapter.DeletePost(ctx, account, accessToken, *p.PlatformPostID)
}

// GetPublishingStatus is an ownership-checked read of every publication for a
// content item, ordered by creation time. Returns (nil, nil) when the content
// does not exist.
func (u *publishingUsecase) GetPublishingStatus(ctx context.Context, contentID, userID string) ([]*model.Publication, error) {
	content, err := u.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}
	if content.UserID != userID {
		return nil, apperrors.NewAuthorization("content " + contentID + " is not owned by the caller")
	}
	pubs, err := u.publicationRepo.ListByContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if pubs == nil {
		// distinguishes "no publications yet" from "content not found"
		pubs = []*model.Publication{}
	}
	return pubs, nil
}
