package llm

import (
	"context"

	"companion-be/internal/pkg/logger"
)

type ModerationResult struct {
	Checked    bool
	Flagged    bool
	Categories []string
}

type Moderator interface {
	ModerateContent(ctx context.Context, text string) (*ModerationResult, error)
}

// FailOpenModerator never returns an error: transport failures are logged and reported as not flagged.
type FailOpenModerator struct {
	inner  Moderator
	logger logger.ILogger
}

func NewFailOpenModerator(inner Moderator, log logger.ILogger) *FailOpenModerator {
	return &FailOpenModerator{inner: inner, logger: log}
}

func (m *FailOpenModerator) ModerateContent(ctx context.Context, text string) (*ModerationResult, error) {
	res, err := m.inner.ModerateContent(ctx, text)
	if err != nil {
		m.logger.Warn("Moderation", "Moderation unavailable, failing open", map[string]interface{}{
			"error": err.Error(),
		})
		return &ModerationResult{}, nil
	}
	if res == nil {
		return &ModerationResult{}, nil
	}
	return res, nil
}

// NoopModerator is used when moderation is disabled or the provider has no moderation endpoint.
type NoopModerator struct{}

func (NoopModerator) ModerateContent(ctx context.Context, text string) (*ModerationResult, error) {
	return &ModerationResult{}, nil
}
