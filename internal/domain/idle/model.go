package idle

import "time"

// DefaultThresholdSeconds is the idle threshold applied when a company has
// no explicit policy value.
const DefaultThresholdSeconds = 300

// UserActivity tracks the most recent heartbeat for a user. One row per
// user, created on first heartbeat or first sweep observation, never deleted.
type UserActivity struct {
	CompanyID     string    `json:"company_id"`
	UserID        string    `json:"user_id"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	IsIdle        bool      `json:"is_idle"`
}

// Policy holds a company's idle detection settings.
type Policy struct {
	CompanyID        string `json:"company_id"`
	DetectionEnabled bool   `json:"idle_detection_enabled"`
	ThresholdSeconds int64  `json:"idle_threshold_seconds"`
}

// DefaultPolicy is used when a company has never configured idle detection.
func DefaultPolicy(companyID string) Policy {
	return Policy{
		CompanyID:        companyID,
		DetectionEnabled: false,
		ThresholdSeconds: DefaultThresholdSeconds,
	}
}

// ActivityStatus is the read model returned to clients asking whether a user
// is currently considered idle. IsIdle here reflects the committed flag; it
// only turns true after an auto-pause has actually succeeded.
type ActivityStatus struct {
	UserID        string     `json:"user_id"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	IsIdle        bool       `json:"is_idle"`
}
