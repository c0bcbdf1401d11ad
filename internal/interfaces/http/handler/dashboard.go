package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/retailpos/backoffice/internal/application/dashboard"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"github.com/retailpos/backoffice/internal/interfaces/http/middleware"
)

// DashboardHandler serves the dashboard overview endpoints.
type DashboardHandler struct {
	service *dashboard.Service
	loc     *time.Location
	logger  *zap.Logger
}

func NewDashboardHandler(service *dashboard.Service, loc *time.Location, logger *zap.Logger) *DashboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{service: service, loc: loc, logger: logger}
}

// RegisterRoutes mounts the dashboard endpoints on the API group.
func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/dashboard")
	g.GET("", h.Get)
	g.POST("/refresh", h.Refresh)
}

// Get returns the overview for the requested range and filter, served
// from cache when fresh.
func (h *DashboardHandler) Get(c *gin.Context) {
	h.serve(c, h.service.Load)
}

// Refresh recomputes the overview, bypassing cache freshness.
func (h *DashboardHandler) Refresh(c *gin.Context) {
	h.serve(c, h.service.Refresh)
}

func (h *DashboardHandler) serve(c *gin.Context, loadFn func(ctx context.Context, q dashboard.Query) (dashboard.Snapshot, error)) {
	var req dto.DashboardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	query, err := req.ToQuery(h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_QUERY", err.Error()))
		return
	}

	snap, err := loadFn(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, query, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromSnapshot(snap)))
}

func (h *DashboardHandler) respondError(c *gin.Context, q dashboard.Query, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrCustomRangeBounds):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_QUERY", err.Error()))
	default:
		h.logger.Error("dashboard request failed",
			zap.String("key", q.CacheKey()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("DASHBOARD_LOAD_FAILED", "Failed to load dashboard data"))
	}
}
