package entry

import (
	"context"
	"errors"
	"fmt"

	"github.com/clockout/clockout/internal/repository"
)

// activeOverlap returns the user's blocking active entry, or nil when the
// user has none besides excludeID. It must run inside the same transaction
// as the write that follows it; checking and writing non-atomically is the
// principal race this service exists to avoid.
func activeOverlap(ctx context.Context, tx repository.Tx, companyID, userID, excludeID string) (*TimeEntry, error) {
	blocking, err := tx.Entries().FindActive(ctx, companyID, userID, excludeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("checking active overlap: %w", err)
	}
	return blocking, nil
}
