package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/database"
)

type HealthHandler struct {
	store database.Pinger
}

func NewHealthHandler(store database.Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthCheck reports liveness and whether the store answers a ping.
// It always answers 200; connectivity is in the body.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	db := "connected"
	if h.store == nil || h.store.Ping(ctx) != nil {
		db = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  db,
	})
}
