// Package notify holds the default outbound collaborators. Notification
// delivery, real-time push and cache invalidation are external systems; the
// core only needs something satisfying the interfaces, so the defaults just
// log the events they would deliver.
package notify

import (
	"context"
	"log/slog"

	"github.com/clockout/clockout/internal/domain/entry"
)

// LogNotifier logs notifications instead of delivering them.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) NotifyUser(ctx context.Context, userID, eventType string, payload any) error {
	n.Logger.Info("notify user", "user_id", userID, "event", eventType)
	return nil
}

func (n *LogNotifier) NotifyUsers(ctx context.Context, userIDs []string, eventType, title, message string, metadata map[string]any) error {
	n.Logger.Info("notify users", "count", len(userIDs), "event", eventType, "title", title)
	return nil
}

// LogBroadcaster logs entry-change broadcasts.
type LogBroadcaster struct {
	Logger *slog.Logger
}

func (b *LogBroadcaster) BroadcastEntryChange(ctx context.Context, e *entry.TimeEntry, companyID string) error {
	b.Logger.Debug("broadcast entry change", "entry_id", e.ID, "company_id", companyID, "status", e.Status)
	return nil
}

func (b *LogBroadcaster) BroadcastStatsInvalidate(ctx context.Context, companyID string) error {
	b.Logger.Debug("broadcast stats invalidate", "company_id", companyID)
	return nil
}

// LogStatsCache logs cache invalidations.
type LogStatsCache struct {
	Logger *slog.Logger
}

func (c *LogStatsCache) InvalidateStats(ctx context.Context, companyID string) error {
	c.Logger.Debug("invalidate stats", "company_id", companyID)
	return nil
}

var (
	_ entry.Notifier    = (*LogNotifier)(nil)
	_ entry.Broadcaster = (*LogBroadcaster)(nil)
	_ entry.StatsCache  = (*LogStatsCache)(nil)
)
