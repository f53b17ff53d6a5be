package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"insiderpulse/internal/detector"
	"insiderpulse/internal/repository"
)

// PipelineHandler exposes the pipeline's own observability: recent refresh
// runs, active signal counts, and a manual refresh trigger. The signal read
// API lives in a separate service; these endpoints never serve signal data.
type PipelineHandler struct {
	Repo         repository.SignalRepository
	Orchestrator *detector.Orchestrator
	Logger       *zap.Logger
	BaseCtx      context.Context
}

func (h *PipelineHandler) Register(r *gin.Engine) {
	r.GET("/v1/pipeline/status", h.status)
	r.POST("/v1/pipeline/refresh", h.refresh)
}

func (h *PipelineHandler) status(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	runs, err := h.Repo.ListRefreshRuns(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusInternalServerError, "list refresh runs failed")
		return
	}
	counts, err := h.Repo.ActiveSignalCounts(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, "signal counts failed")
		return
	}
	Ok(c, gin.H{
		"runs": runs,
		"active_signals": gin.H{
			"clusters":         counts.Clusters,
			"important_trades": counts.ImportantTrades,
			"first_buys":       counts.FirstBuys,
		},
	})
}

func (h *PipelineHandler) refresh(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusServiceUnavailable, "orchestrator not wired")
		return
	}
	ctx := h.BaseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	// The pass can take minutes; run it detached from the request.
	go func() {
		if h.Orchestrator.RunOnce(ctx) == nil && h.Logger != nil {
			h.Logger.Info("manual refresh skipped, run already in progress")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh started"})
}
