package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
)

// Pinger reports storage liveness.
type Pinger interface {
	Ping() error
}

// SystemHandler serves health and readiness probes.
type SystemHandler struct {
	db Pinger
}

func NewSystemHandler(db Pinger) *SystemHandler {
	return &SystemHandler{db: db}
}

// RegisterGlobal mounts the probes on the engine root, outside the
// versioned API group.
func (h *SystemHandler) RegisterGlobal(engine *gin.Engine) {
	engine.GET("/healthz", h.Health)
	engine.GET("/readyz", h.Ready)
}

// Health reports process liveness.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
}

// Ready reports whether the database can be reached.
func (h *SystemHandler) Ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse("NOT_READY", "database unreachable"))
			return
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ready"}))
}
