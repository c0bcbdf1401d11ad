package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailpos/backoffice/internal/domain/analytics"
)

// SalesFeed streams raw sale rows for in-process reduction. It is only
// consulted when a dashboard query carries an entity filter.
type SalesFeed interface {
	FetchSales(ctx context.Context, w analytics.Window) ([]analytics.SaleRecord, error)
	FetchItems(ctx context.Context, w analytics.Window) ([]analytics.SaleItemRecord, error)
}

// CustomerGroupDirectory expands customer groups into their member ids.
type CustomerGroupDirectory interface {
	MemberIDs(ctx context.Context, groupIDs []uuid.UUID) ([]uuid.UUID, error)
}

// DashboardQueries serves the unfiltered dashboard slices with storage
// side aggregation, one call per slice so they can run concurrently and
// fail independently.
type DashboardQueries interface {
	KPISummary(ctx context.Context, w analytics.Window) (analytics.KPISet, error)
	DailyTrend(ctx context.Context, w analytics.Window) ([]analytics.TrendPoint, error)
	TopProducts(ctx context.Context, w analytics.Window, n int) ([]analytics.ProductSales, error)
	TopCustomers(ctx context.Context, w analytics.Window, n int) ([]analytics.CustomerSales, error)
	CategoryShares(ctx context.Context, w analytics.Window) ([]analytics.CategoryShare, error)
	ChannelBreakdown(ctx context.Context, w analytics.Window) (analytics.ChannelBreakdown, error)
	RecentOrders(ctx context.Context, w analytics.Window, limit int) ([]analytics.RecentOrder, error)
	PurchaseTotal(ctx context.Context, w analytics.Window) (decimal.Decimal, error)
}
