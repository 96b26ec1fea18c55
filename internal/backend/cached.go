package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctor-agent/internal/cache"
	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

const DefaultQuestionTTL = 10 * time.Minute

// CachedBackend keeps fetched question sets in the cache, keyed by paper and
// participant, so re-selecting a paper does not refetch it. Every other call
// goes straight to the wrapped backend.
type CachedBackend struct {
	Backend
	cache  cache.CacheService
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedBackend(next Backend, c cache.CacheService, ttl time.Duration, logger *slog.Logger) *CachedBackend {
	if ttl <= 0 {
		ttl = DefaultQuestionTTL
	}
	return &CachedBackend{
		Backend: next,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
	}
}

func questionsKey(paperID int, participantID *int) string {
	if participantID == nil {
		return fmt.Sprintf("proctor:questions:%d:anon", paperID)
	}
	return fmt.Sprintf("proctor:questions:%d:%d", paperID, *participantID)
}

// FetchQuestions serves from the cache when possible. Cache failures are
// logged and fall through to the backend.
func (b *CachedBackend) FetchQuestions(ctx context.Context, paperID int, participantID *int) ([]models.Question, error) {
	key := questionsKey(paperID, participantID)

	var cached []models.Question
	err := b.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		b.logger.DebugContext(ctx, "Question set served from cache", "paper_id", paperID)
		return cached, nil
	case !cache.IsCacheMiss(err):
		b.logger.WarnContext(ctx, "Question cache unavailable", "paper_id", paperID, "error", err)
	}

	questions, err := b.Backend.FetchQuestions(ctx, paperID, participantID)
	if err != nil {
		return nil, err
	}
	if err := b.cache.Set(ctx, key, questions, b.ttl); err != nil {
		b.logger.WarnContext(ctx, "Failed to cache question set", "paper_id", paperID, "error", err)
	}
	return questions, nil
}

// InvalidatePaper drops every cached question set of a paper.
func (b *CachedBackend) InvalidatePaper(ctx context.Context, paperID int) error {
	return b.cache.DeletePattern(ctx, fmt.Sprintf("proctor:questions:%d:*", paperID))
}
