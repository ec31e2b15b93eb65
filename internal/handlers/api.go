package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/services"
)

type APIHandler struct {
	stats *services.StatsService
	ping  func(context.Context) error
	log   *zap.Logger
}

// NewAPIHandler builds the JSON endpoints. ping may be nil.
func NewAPIHandler(stats *services.StatsService, ping func(context.Context) error, log *zap.Logger) *APIHandler {
	return &APIHandler{stats: stats, ping: ping, log: log}
}

// Stats serves dashboard counts for the signed-in staff member.
func (h *APIHandler) Stats(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	stats, err := h.stats.Get(c.Request.Context(), actor)
	if err != nil {
		jsonError(c, h.log, err)
		return
	}
	c.Header("Cache-Control", "private, no-store")
	c.JSON(http.StatusOK, stats)
}

func (h *APIHandler) Health(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
