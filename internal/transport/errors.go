package transport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/domain/idle"
	"github.com/gin-gonic/gin"
)

// writeError maps domain errors onto HTTP statuses. Cross-tenant misses
// surface as 404 before any permission check, so existence is never
// confirmed across companies.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	var overlapErr *entry.OverlapError
	if errors.As(err, &overlapErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":           overlapErr.Error(),
			"active_entry_id": overlapErr.ActiveEntryID,
		})
		return
	}
	var idemErr *entry.IdempotencyConflictError
	if errors.As(err, &idemErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":             idemErr.Error(),
			"idempotency_key":   idemErr.Key,
			"existing_entry_id": idemErr.ExistingID,
		})
		return
	}

	switch {
	case errors.Is(err, entry.ErrEntryNotFound),
		errors.Is(err, entry.ErrUserNotFound),
		errors.Is(err, entry.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, entry.ErrForbidden),
		errors.Is(err, entry.ErrSelfApproval):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, entry.ErrOverlap),
		errors.Is(err, entry.ErrIdempotencyConflict),
		errors.Is(err, entry.ErrNotRunning),
		errors.Is(err, entry.ErrNotPaused),
		errors.Is(err, entry.ErrAlreadyStopped),
		errors.Is(err, entry.ErrEntryLocked),
		errors.Is(err, entry.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, entry.ErrInvalidInput),
		errors.Is(err, entry.ErrProjectRequired),
		errors.Is(err, entry.ErrUserInactive),
		errors.Is(err, entry.ErrProjectArchived),
		errors.Is(err, idle.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		logger.Error("internal error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
