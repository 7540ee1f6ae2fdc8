package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/domain/idle"
	"github.com/gin-gonic/gin"
)

// Handler exposes the time tracking core over HTTP.
type Handler struct {
	Entries *entry.Service
	Idle    *idle.Service
	Logger  *slog.Logger
}

type createEntryRequest struct {
	UserID      string     `json:"user_id"`
	ProjectID   *string    `json:"project_id"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"start_time"`
}

func (h *Handler) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.Entries.Create(c.Request.Context(), actorFrom(c), entry.CreateRequest{
		UserID:      req.UserID,
		ProjectID:   req.ProjectID,
		Description: req.Description,
		StartTime:   req.StartTime,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEntry(c *gin.Context) {
	e, err := h.Entries.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) StopEntry(c *gin.Context) {
	e, err := h.Entries.Stop(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) PauseEntry(c *gin.Context) {
	e, err := h.Entries.Pause(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) ResumeEntry(c *gin.Context) {
	e, err := h.Entries.Resume(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

type updateEntryRequest struct {
	ProjectID   *string       `json:"project_id"`
	Description *string       `json:"description"`
	StartTime   *time.Time    `json:"start_time"`
	EndTime     *time.Time    `json:"end_time"`
	Status      *entry.Status `json:"status"`
}

func (h *Handler) UpdateEntry(c *gin.Context) {
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.Entries.Update(c.Request.Context(), actorFrom(c), c.Param("id"), entry.UpdatePatch{
		ProjectID:   req.ProjectID,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      req.Status,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	if err := h.Entries.Remove(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type syncRequest struct {
	Entries []entry.SyncItem `json:"entries" binding:"required"`
}

func (h *Handler) Sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Entries.Sync(c.Request.Context(), actorFrom(c), req.Entries)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) FindPending(c *gin.Context) {
	pending, err := h.Entries.FindPending(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": pending})
}

func (h *Handler) Approve(c *gin.Context) {
	e, err := h.Entries.Approve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

type rejectRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) Reject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.Entries.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), req.Comment)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

type bulkRequest struct {
	EntryIDs []string `json:"entry_ids" binding:"required"`
	Comment  string   `json:"comment"`
}

func (h *Handler) BulkApprove(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries, err := h.Entries.BulkApprove(c.Request.Context(), actorFrom(c), req.EntryIDs)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) BulkReject(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries, err := h.Entries.BulkReject(c.Request.Context(), actorFrom(c), req.EntryIDs, req.Comment)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type heartbeatRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *Handler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	actor := actorFrom(c)
	if err := h.Idle.Heartbeat(c.Request.Context(), actor.CompanyID, actor.UserID, req.IsActive); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ActivityStatus(c *gin.Context) {
	actor := actorFrom(c)
	userID := c.Param("id")
	if userID != actor.UserID && !actor.Role.Privileged() {
		writeError(c, h.Logger, entry.ErrForbidden)
		return
	}
	status, err := h.Idle.ActivityStatus(c.Request.Context(), actor.CompanyID, userID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) GetPolicy(c *gin.Context) {
	pol, err := h.Idle.GetPolicy(c.Request.Context(), actorFrom(c).CompanyID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, pol)
}

type policyRequest struct {
	Enabled          bool  `json:"idle_detection_enabled"`
	ThresholdSeconds int64 `json:"idle_threshold_seconds"`
}

func (h *Handler) SetPolicy(c *gin.Context) {
	actor := actorFrom(c)
	if !actor.Role.Privileged() {
		writeError(c, h.Logger, entry.ErrForbidden)
		return
	}
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pol, err := h.Idle.SetPolicy(c.Request.Context(), actor.CompanyID, req.Enabled, req.ThresholdSeconds)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, pol)
}
