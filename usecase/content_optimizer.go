package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"publisher/domain/model"
)

// PlatformConstraints are the textual and duration limits enforced per
// platform. MaxDurationSec of 0 means unconstrained.
type PlatformConstraints struct {
	TitleMax       int
	DescriptionMax int
	MaxDurationSec int
	HashtagMax     int
}

var platformConstraints = map[model.Platform]PlatformConstraints{
	model.PlatformTikTok:    {TitleMax: 150, DescriptionMax: 2200, MaxDurationSec: 180, HashtagMax: 30},
	model.PlatformInstagram: {TitleMax: 150, DescriptionMax: 2200, MaxDurationSec: 60, HashtagMax: 30},
	model.PlatformYouTube:   {TitleMax: 100, DescriptionMax: 5000, MaxDurationSec: 0, HashtagMax: 500},
}

// ConstraintsFor exposes the limits for a platform, zero value if unknown.
func ConstraintsFor(p model.Platform) PlatformConstraints { return platformConstraints[p] }

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// OptimizedContent is a platform-fitted variant of a content payload.
// Warnings list every adjustment that was applied.
type OptimizedContent struct {
	Platform    model.Platform `json:"platform"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Hashtags    []string       `json:"hashtags"`
	Warnings    []string       `json:"warnings,omitempty"`
}

type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type IContentOptimizer interface {
	OptimizeForPlatform(content *model.Content, platform model.Platform) OptimizedContent
	ValidateForPlatform(content *model.Content, platform model.Platform) ValidationResult
}

type contentOptimizer struct{}

func NewContentOptimizer() IContentOptimizer { return &contentOptimizer{} }

// OptimizeForPlatform never fails; every adjustment is recorded as a warning.
func (o *contentOptimizer) OptimizeForPlatform(content *model.Content, platform model.Platform) OptimizedContent {
	limits := platformConstraints[platform]
	out := OptimizedContent{Platform: platform}

	out.Title = content.Title
	if truncated, ok := truncateRunes(content.Title, limits.TitleMax); ok {
		out.Title = truncated
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("title truncated to %d characters for %s", limits.TitleMax, platform))
	}

	hashtags := hashtagPattern.FindAllString(content.Description, -1)
	body := strings.TrimSpace(hashtagPattern.ReplaceAllString(content.Description, ""))
	body = collapseSpaces(body)

	if len(hashtags) > limits.HashtagMax {
		hashtags = hashtags[:limits.HashtagMax]
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("hashtags reduced to %d for %s", limits.HashtagMax, platform))
	}

	if truncated, ok := truncateRunes(body, limits.DescriptionMax); ok {
		body = truncated
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("description truncated to %d characters for %s", limits.DescriptionMax, platform))
	}

	// Greedy fit: append whole hashtags while they fit in the remaining space.
	fitted := make([]string, 0, len(hashtags))
	used := len([]rune(body))
	dropped := 0
	for _, tag := range hashtags {
		need := len([]rune(tag)) + 1 // separating space
		if used+need > limits.DescriptionMax {
			dropped++
			continue
		}
		fitted = append(fitted, tag)
		used += need
	}
	if dropped > 0 {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("%d hashtags dropped to fit the %d-character caption for %s", dropped, limits.DescriptionMax, platform))
	}

	out.Description = body
	if len(fitted) > 0 {
		if out.Description != "" {
			out.Description += " "
		}
		out.Description += strings.Join(fitted, " ")
	}
	out.Hashtags = fitted

	if limits.MaxDurationSec > 0 && content.Duration > limits.MaxDurationSec {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("duration %ds exceeds the %ds limit for %s", content.Duration, limits.MaxDurationSec, platform))
	}
	return out
}

// ValidateForPlatform is the pre-flight gate: hard failures are missing media,
// missing title, or duration above a platform hard cap. Overlength text only
// warns; truncation happens later in the optimizer.
func (o *contentOptimizer) ValidateForPlatform(content *model.Content, platform model.Platform) ValidationResult {
	limits := platformConstraints[platform]
	res := ValidationResult{Valid: true}

	if content.FileURL == "" {
		res.Valid = false
		res.Errors = append(res.Errors, "content has no attached media file")
	}
	if strings.TrimSpace(content.Title) == "" {
		res.Valid = false
		res.Errors = append(res.Errors, "content has no title")
	}
	if limits.MaxDurationSec > 0 && content.Duration > limits.MaxDurationSec {
		res.Valid = false
		res.Errors = append(res.Errors,
			fmt.Sprintf("duration %ds exceeds the %ds maximum for %s", content.Duration, limits.MaxDurationSec, platform))
	}
	if len([]rune(content.Title)) > limits.TitleMax {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("title will be truncated to %d characters for %s", limits.TitleMax, platform))
	}
	if len([]rune(content.Description)) > limits.DescriptionMax {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("description will be truncated to %d characters for %s", limits.DescriptionMax, platform))
	}
	return res
}

// truncateRunes cuts s to max runes with a trailing ellipsis, reporting
// whether a cut happened.
func truncateRunes(s string, max int) (string, bool) {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s, false
	}
	if max <= 3 {
		return string(runes[:max]), true
	}
	return string(runes[:max-3]) + "...", true
}

var spacePattern = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
