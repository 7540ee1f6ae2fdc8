package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP routing table.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(ActorMiddleware())

	api.POST("/entries", h.CreateEntry)
	api.POST("/entries/sync", h.Sync)
	api.GET("/entries/:id", h.GetEntry)
	api.PATCH("/entries/:id", h.UpdateEntry)
	api.DELETE("/entries/:id", h.DeleteEntry)
	api.POST("/entries/:id/stop", h.StopEntry)
	api.POST("/entries/:id/pause", h.PauseEntry)
	api.POST("/entries/:id/resume", h.ResumeEntry)
	api.POST("/entries/:id/approve", h.Approve)
	api.POST("/entries/:id/reject", h.Reject)

	api.GET("/approvals/pending", h.FindPending)
	api.POST("/approvals/bulk-approve", h.BulkApprove)
	api.POST("/approvals/bulk-reject", h.BulkReject)

	api.POST("/heartbeat", h.Heartbeat)
	api.GET("/users/:id/activity", h.ActivityStatus)
	api.GET("/idle-policy", h.GetPolicy)
	api.PUT("/idle-policy", h.SetPolicy)

	return r
}
