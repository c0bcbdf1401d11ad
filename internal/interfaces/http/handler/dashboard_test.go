package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailpos/backoffice/internal/application/dashboard"
	"github.com/retailpos/backoffice/internal/domain/analytics"
	"github.com/retailpos/backoffice/internal/infrastructure/cache"
	"github.com/retailpos/backoffice/internal/interfaces/http/middleware"
	"github.com/retailpos/backoffice/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type stubQueries struct {
	kpis analytics.KPISet
	err  error
}

func (s *stubQueries) KPISummary(ctx context.Context, w analytics.Window) (analytics.KPISet, error) {
	return s.kpis, s.err
}

func (s *stubQueries) DailyTrend(ctx context.Context, w analytics.Window) ([]analytics.TrendPoint, error) {
	return []analytics.TrendPoint{}, s.err
}

func (s *stubQueries) TopProducts(ctx context.Context, w analytics.Window, n int) ([]analytics.ProductSales, error) {
	return []analytics.ProductSales{}, s.err
}

func (s *stubQueries) TopCustomers(ctx context.Context, w analytics.Window, n int) ([]analytics.CustomerSales, error) {
	return []analytics.CustomerSales{}, s.err
}

func (s *stubQueries) CategoryShares(ctx context.Context, w analytics.Window) ([]analytics.CategoryShare, error) {
	return []analytics.CategoryShare{}, s.err
}

func (s *stubQueries) ChannelBreakdown(ctx context.Context, w analytics.Window) (analytics.ChannelBreakdown, error) {
	return analytics.ChannelBreakdown{}, s.err
}

func (s *stubQueries) RecentOrders(ctx context.Context, w analytics.Window, limit int) ([]analytics.RecentOrder, error) {
	return []analytics.RecentOrder{}, s.err
}

func (s *stubQueries) PurchaseTotal(ctx context.Context, w analytics.Window) (decimal.Decimal, error) {
	return decimal.Zero, s.err
}

type stubFeed struct{}

func (stubFeed) FetchSales(ctx context.Context, w analytics.Window) ([]analytics.SaleRecord, error) {
	return nil, nil
}

func (stubFeed) FetchItems(ctx context.Context, w analytics.Window) ([]analytics.SaleItemRecord, error) {
	return nil, nil
}

type stubGroups struct{}

func (stubGroups) MemberIDs(ctx context.Context, groupIDs []uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func newTestEngine(t *testing.T, queries dashboard.DashboardQueries) *gin.Engine {
	t.Helper()
	rc := cache.NewInMemoryResultCache(cache.WithCleanupInterval(time.Hour))
	t.Cleanup(rc.Stop)
	svc := dashboard.NewService(queries, stubFeed{}, stubGroups{}, rc, zap.NewNop(), dashboard.ServiceConfig{})

	engine := gin.New()
	h := NewDashboardHandler(svc, time.UTC, zap.NewNop())
	router.NewRouter(engine).Register(h).Setup()
	return engine
}

func doRequest(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestGetDashboardReturnsOverview(t *testing.T) {
	engine := newTestEngine(t, &stubQueries{
		kpis: analytics.KPISet{TotalSales: decimal.NewFromInt(250), OrderCount: 3},
	})

	w := doRequest(engine, http.MethodGet, "/api/v1/dashboard?range=all")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Overview struct {
				KPIs struct {
					TotalSales float64 `json:"total_sales"`
					OrderCount int64   `json:"order_count"`
				} `json:"kpis"`
			} `json:"overview"`
			Stale bool `json:"stale"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 250.0, body.Data.Overview.KPIs.TotalSales)
	assert.Equal(t, int64(3), body.Data.Overview.KPIs.OrderCount)
	assert.False(t, body.Data.Stale)
}

func TestGetDashboardDefaultsToAllRange(t *testing.T) {
	engine := newTestEngine(t, &stubQueries{})

	w := doRequest(engine, http.MethodGet, "/api/v1/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetDashboardRejectsUnknownRange(t *testing.T) {
	engine := newTestEngine(t, &stubQueries{})

	w := doRequest(engine, http.MethodGet, "/api/v1/dashboard?range=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestGetDashboardRejectsCustomWithoutBounds(t *testing.T) {
	engine := newTestEngine(t, &stubQueries{})

	w := doRequest(engine, http.MethodGet, "/api/v1/dashboard?range=custom")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDashboardAcceptsCustomBounds(t *testing.T) {
	engine := newTestEngine(t, &stubQueries{})

	w := doRequest(engine, http.MethodGet, "/api/v1/dashboard?range=custom&start_date=2026-03-01&end_date=2026-03-10")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetDashboardRejectsMalformedID(t *testing.T) {
	engine := newTestEngine(t, &stubQueries{})

	w := doRequest(engine, http.MethodGet, "/api/v1/dashboard?branch_id=not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDashboardFailureMapsTo500(t *testing.T) {
	engine := newTestEngine(t, &stubQueries{err: errors.New("db down")})

	w := doRequest(engine, http.MethodGet, "/api/v1/dashboard?range=all")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "DASHBOARD_LOAD_FAILED")
}

func TestRefreshEndpointRecomputes(t *testing.T) {
	engine := newTestEngine(t, &stubQueries{
		kpis: analytics.KPISet{TotalSales: decimal.NewFromInt(10)},
	})

	w := doRequest(engine, http.MethodPost, "/api/v1/dashboard/refresh?range=today")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

type failingPinger struct{}

func (failingPinger) Ping() error { return errors.New("no route to host") }

type okPinger struct{}

func (okPinger) Ping() error { return nil }

func TestHealthAndReadyProbes(t *testing.T) {
	engine := gin.New()
	NewSystemHandler(okPinger{}).RegisterGlobal(engine)

	w := doRequest(engine, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(engine, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyProbeFailsWhenDatabaseDown(t *testing.T) {
	engine := gin.New()
	NewSystemHandler(failingPinger{}).RegisterGlobal(engine)

	w := doRequest(engine, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
