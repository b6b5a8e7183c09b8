package platform

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"publisher/domain/model"
	"publisher/domain/repository"
)

// NewTikTokAdapter builds the TikTok publish adapter. The remote call is a
// stand-in until the Content Posting API integration is wired with real
// credentials.
func NewTikTokAdapter(limiter repository.IRateLimiter, breaker repository.ICircuitBreaker) repository.IPlatformAdapter {
	return newAdapter(model.PlatformTikTok, limiter, breaker, tiktokPublish)
}

func tiktokPublish(ctx context.Context, account *model.Account, accessToken string, post repository.PlatformPost) (*remoteResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if post.FileURL == "" {
		return nil, fmt.Errorf("tiktok: missing video file")
	}
	return &remoteResponse{PostID: "tt_" + uuid.NewString()}, nil
}
