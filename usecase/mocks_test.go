package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"publisher/domain/model"
	"publisher/domain/repository"
)

type mockContentRepo struct {
	mock.Mock
}

func (m *mockContentRepo) GetByID(ctx context.Context, id string) (*model.Content, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*model.Content), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContentRepo) UpdateStatus(ctx context.Context, id string, status model.ContentStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockContentRepo) SetScheduledAt(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockContentRepo) SetPublishedAt(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*model.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.Account, error) {
	args := m.Called(ctx, ids)
	if a := args.Get(0); a != nil {
		return a.([]*model.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error {
	return m.Called(ctx, id, accessToken, refreshToken, expiresAt).Error(0)
}

func (m *mockAccountRepo) UpdateStatus(ctx context.Context, id string, status model.AccountStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockAccountRepo) ListExpiring(ctx context.Context, before time.Time) ([]*model.Account, error) {
	args := m.Called(ctx, before)
	if a := args.Get(0); a != nil {
		return a.([]*model.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublicationRepo struct {
	mock.Mock
}

func (m *mockPublicationRepo) CreateBatch(ctx context.Context, pubs []*model.Publication) error {
	return m.Called(ctx, pubs).Error(0)
}

func (m *mockPublicationRepo) GetByID(ctx context.Context, id string) (*model.Publication, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*model.Publication), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPublicationRepo) ListByContent(ctx context.Context, contentID string) ([]*model.Publication, error) {
	args := m.Called(ctx, contentID)
	if p := args.Get(0); p != nil {
		return p.([]*model.Publication), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPublicationRepo) UpdateStatus(ctx context.Context, id string, status model.PublicationStatus, errMsg *string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *mockPublicationRepo) MarkPublished(ctx context.Context, id, platformPostID string, publishedAt time.Time) error {
	return m.Called(ctx, id, platformPostID, publishedAt).Error(0)
}

func (m *mockPublicationRepo) ForceFailPending(ctx context.Context, contentID string, errMsg string) error {
	return m.Called(ctx, contentID, errMsg).Error(0)
}

type mockScheduledJobRepo struct {
	mock.Mock
}

func (m *mockScheduledJobRepo) Create(ctx context.Context, job *model.ScheduledJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *mockScheduledJobRepo) GetByID(ctx context.Context, id string) (*model.ScheduledJob, error) {
	args := m.Called(ctx, id)
	if j := args.Get(0); j != nil {
		return j.(*model.ScheduledJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScheduledJobRepo) FindNonTerminalByContent(ctx context.Context, contentID string) ([]*model.ScheduledJob, error) {
	args := m.Called(ctx, contentID)
	if j := args.Get(0); j != nil {
		return j.([]*model.ScheduledJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScheduledJobRepo) CountNonTerminalByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockScheduledJobRepo) SetExternalJobID(ctx context.Context, id, externalJobID string) error {
	return m.Called(ctx, id, externalJobID).Error(0)
}

func (m *mockScheduledJobRepo) UpdateStatus(ctx context.Context, id string, status model.ScheduledJobStatus, errMsg *string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *mockScheduledJobRepo) BeginAttempt(ctx context.Context, id string, processedAt time.Time) (*model.ScheduledJob, error) {
	args := m.Called(ctx, id, processedAt)
	if j := args.Get(0); j != nil {
		return j.(*model.ScheduledJob), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDelayQueue struct {
	mock.Mock
}

func (m *mockDelayQueue) Enqueue(ctx context.Context, name string, payload []byte, opts repository.EnqueueOptions) (string, error) {
	args := m.Called(ctx, name, payload, opts)
	return args.String(0), args.Error(1)
}

func (m *mockDelayQueue) Remove(ctx context.Context, externalID string) error {
	return m.Called(ctx, externalID).Error(0)
}

func (m *mockDelayQueue) GetJob(ctx context.Context, externalID string) (*model.QueueJobSnapshot, error) {
	args := m.Called(ctx, externalID)
	if s := args.Get(0); s != nil {
		return s.(*model.QueueJobSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeAdapter scripts per-account publish outcomes keyed by account ID.
type fakeAdapter struct {
	platform model.Platform
	results  map[string]model.PublishResult
	deleted  []string
	mu       sync.Mutex
}

func (f *fakeAdapter) Platform() model.Platform { return f.platform }

func (f *fakeAdapter) PublishContent(ctx context.Context, account *model.Account, accessToken string, post repository.PlatformPost) model.PublishResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.results[account.ID]; ok {
		return r
	}
	now := time.Now()
	return model.PublishResult{Success: true, PlatformPostID: "post_" + account.ID, PublishedAt: &now}
}

func (f *fakeAdapter) GetAnalytics(ctx context.Context, account *model.Account, accessToken, platformPostID string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (f *fakeAdapter) ValidateAccount(ctx context.Context, account *model.Account, accessToken string) error {
	return nil
}

func (f *fakeAdapter) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeAdapter) DeletePost(ctx context.Context, account *model.Account, accessToken, platformPostID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, platformPostID)
	return errors.New("post deletion is not supported")
}

// captureSink records emitted events; safe for concurrent emitters.
type captureSink struct {
	mu     sync.Mutex
	events []model.PublishEvent
}

func (s *captureSink) Emit(evt model.PublishEvent) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func (s *captureSink) byType(t string) []model.PublishEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PublishEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// staticTokens resolves every account to a fixed token.
type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) GetValidAccessToken(ctx context.Context, accountID string) (string, error) {
	return s.token, s.err
}
