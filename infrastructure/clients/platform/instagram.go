package platform

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"publisher/domain/model"
	"publisher/domain/repository"
)

// NewInstagramAdapter builds the Instagram Reels publish adapter. The remote
// call is a stand-in until the Graph API media-container flow is wired.
func NewInstagramAdapter(limiter repository.IRateLimiter, breaker repository.ICircuitBreaker) repository.IPlatformAdapter {
	return newAdapter(model.PlatformInstagram, limiter, breaker, instagramPublish)
}

func instagramPublish(ctx context.Context, account *model.Account, accessToken string, post repository.PlatformPost) (*remoteResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if post.FileURL == "" {
		return nil, fmt.Errorf("instagram: missing video file")
	}
	return &remoteResponse{PostID: "ig_" + uuid.NewString()}, nil
}
