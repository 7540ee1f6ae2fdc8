package entry

import "context"

// UserInfo is the directory's answer for a user lookup.
type UserInfo struct {
	Active bool
	Role   Role
}

// ProjectInfo is the directory's answer for a project lookup.
type ProjectInfo struct {
	Archived bool
}

// Notifier delivers notifications to users. Calls are fire-and-forget:
// failures are logged by the service and never surface as transition errors.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, eventType string, payload any) error
	NotifyUsers(ctx context.Context, userIDs []string, eventType, title, message string, metadata map[string]any) error
}

// Broadcaster pushes entry changes to live listeners. Same fire-and-forget
// contract as Notifier; the core never knows which transport holds a
// connection.
type Broadcaster interface {
	BroadcastEntryChange(ctx context.Context, e *TimeEntry, companyID string) error
	BroadcastStatsInvalidate(ctx context.Context, companyID string) error
}

// StatsCache invalidates cached aggregates, best effort.
type StatsCache interface {
	InvalidateStats(ctx context.Context, companyID string) error
}
