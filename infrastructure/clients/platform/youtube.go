package platform

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"publisher/domain/model"
	"publisher/domain/repository"
)

// NewYouTubeAdapter builds the YouTube Shorts publish adapter. The remote call
// is a stand-in until the resumable-upload flow is wired.
func NewYouTubeAdapter(limiter repository.IRateLimiter, breaker repository.ICircuitBreaker) repository.IPlatformAdapter {
	return newAdapter(model.PlatformYouTube, limiter, breaker, youtubePublish)
}

func youtubePublish(ctx context.Context, account *model.Account, accessToken string, post repository.PlatformPost) (*remoteResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if post.FileURL == "" {
		return nil, fmt.Errorf("youtube: missing video file")
	}
	return &remoteResponse{PostID: "yt_" + uuid.NewString()}, nil
}
