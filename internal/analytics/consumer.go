// Package analytics subscribes to C5/C6's completion events and persists them as
// search history through the teacher's SearchRepository, the role its own
// (previously TODO-stubbed) storeSearchResult was reaching for.
package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"scifind-backend/internal/messaging"
	"scifind-backend/internal/models"
	"scifind-backend/internal/repository"
)

// Consumer persists C5 search-completed and C6 follow-fanout-completed events as
// rows in search_history, giving operators a durable record of feed activity
// without the HTTP path depending on NATS being up.
type Consumer struct {
	history repository.SearchRepository
	logger  *slog.Logger
}

// New constructs a Consumer over the given search repository.
func New(history repository.SearchRepository, logger *slog.Logger) *Consumer {
	return &Consumer{history: history, logger: logger}
}

// Start registers handlers for both event types on the given subscriber. It does
// not check sub or its client for nil; callers should only invoke Start once
// messaging.NewClient has succeeded.
func (c *Consumer) Start(ctx context.Context, sub *messaging.EventSubscriber) error {
	if err := sub.OnSearchCompleted(ctx, c.handleSearchCompleted); err != nil {
		return err
	}
	if err := sub.OnFollowFanoutCompleted(ctx, c.handleFollowFanoutCompleted); err != nil {
		return err
	}
	return nil
}

func (c *Consumer) handleSearchCompleted(event *messaging.SearchCompletedEvent) error {
	filters, _ := json.Marshal(map[string]interface{}{
		"cache_hit": event.CacheHit,
		"success":   event.Success,
		"error":     event.Error,
	})
	history := &models.SearchHistory{
		ID:          generateHistoryID(event.RequestID),
		Query:       event.Query,
		UserID:      event.UserID,
		ResultCount: event.ResultCount,
		Duration:    event.Duration,
		Providers:   event.ProvidersUsed,
		Filters:     string(filters),
		RequestedAt: time.UnixMilli(event.CompletedAt),
	}
	if err := c.history.CreateSearchHistory(context.Background(), history); err != nil {
		c.logger.Warn("failed to persist search completed event",
			slog.String("request_id", event.RequestID), slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (c *Consumer) handleFollowFanoutCompleted(event *messaging.FollowFanoutCompletedEvent) error {
	userID := event.UserID
	filters, _ := json.Marshal(map[string]interface{}{
		"follow_count": event.FollowCount,
		"succeeded":    event.SucceededCount,
		"failed":       event.FailedCount,
		"success":      event.Success,
		"error":        event.Error,
	})
	history := &models.SearchHistory{
		ID:          generateHistoryID(event.UserID),
		Query:       "follows:fanout",
		UserID:      &userID,
		ResultCount: event.ResultCount,
		Duration:    event.Duration,
		Providers:   []string{"openalex"},
		Filters:     string(filters),
		RequestedAt: time.UnixMilli(event.CompletedAt),
	}
	if err := c.history.CreateSearchHistory(context.Background(), history); err != nil {
		c.logger.Warn("failed to persist follow fanout completed event",
			slog.String("user_id", event.UserID), slog.String("error", err.Error()))
		return err
	}
	return nil
}

func generateHistoryID(seed string) string {
	return "sh_" + time.Now().Format("20060102150405.000000000") + "_" + seed
}
