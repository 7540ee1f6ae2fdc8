package audit

import "time"

// Type represents the kind of tracked action
type Type string

const (
	TypeStart     Type = "START"
	TypeStop      Type = "STOP"
	TypePause     Type = "PAUSE"
	TypeResume    Type = "RESUME"
	TypeUpdate    Type = "UPDATE"
	TypeDelete    Type = "DELETE"
	TypeForceStop Type = "FORCE_STOP"
	TypeAutoPause Type = "AUTO_PAUSE"
	TypeApprove   Type = "APPROVE"
	TypeReject    Type = "REJECT"
)

// Record is one append-only activity log row. Records are written in the
// same transaction as the state transition they describe.
type Record struct {
	ID        int64     `json:"id"`
	CompanyID string    `json:"company_id"`
	UserID    string    `json:"user_id"`
	ProjectID *string   `json:"project_id,omitempty"`
	EntryID   *string   `json:"entry_id,omitempty"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
