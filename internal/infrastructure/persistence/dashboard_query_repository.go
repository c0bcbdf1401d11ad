package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/retailpos/backoffice/internal/domain/analytics"
)

// DashboardQueryRepository serves the unfiltered dashboard slices with
// pre-aggregated SQL so the whole sales history never crosses the wire.
// Ranking and percent math is shared with the in-process reducer so both
// paths agree on the numbers.
type DashboardQueryRepository struct {
	db  *gorm.DB
	loc *time.Location
}

// NewDashboardQueryRepository builds the repository. loc is the business
// timezone used for trend day bucketing; nil means UTC.
func NewDashboardQueryRepository(db *gorm.DB, loc *time.Location) *DashboardQueryRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardQueryRepository{db: db, loc: loc}
}

type kpiRow struct {
	TotalSales    decimal.Decimal `gorm:"column:total_sales"`
	TotalProfit   decimal.Decimal `gorm:"column:total_profit"`
	OrderCount    int64           `gorm:"column:order_count"`
	CustomerCount int64           `gorm:"column:customer_count"`
	InvoiceCount  int64           `gorm:"column:invoice_count"`
	InvoiceTotal  decimal.Decimal `gorm:"column:invoice_total"`
	ReturnCount   int64           `gorm:"column:return_count"`
	ReturnTotal   decimal.Decimal `gorm:"column:return_total"`
}

// KPISummary computes the headline figures for the window. Growth
// percentages are left zero; the caller compares windows itself.
func (r *DashboardQueryRepository) KPISummary(ctx context.Context, w analytics.Window) (analytics.KPISet, error) {
	var row kpiRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(total_amount), 0) AS total_sales,
			COALESCE(SUM(profit), 0) AS total_profit,
			COUNT(*) AS order_count,
			COUNT(DISTINCT customer_id) AS customer_count,
			COALESCE(SUM(CASE WHEN invoice_type <> 'return' THEN 1 ELSE 0 END), 0) AS invoice_count,
			COALESCE(SUM(CASE WHEN invoice_type <> 'return' THEN total_amount ELSE 0 END), 0) AS invoice_total,
			COALESCE(SUM(CASE WHEN invoice_type = 'return' THEN 1 ELSE 0 END), 0) AS return_count,
			COALESCE(SUM(CASE WHEN invoice_type = 'return' THEN ABS(total_amount) ELSE 0 END), 0) AS return_total
		FROM sales
		WHERE created_at >= ? AND created_at <= ?`, w.Start, w.End).
		Scan(&row).Error
	if err != nil {
		return analytics.KPISet{}, fmt.Errorf("kpi summary: %w", err)
	}
	return analytics.KPISet{
		TotalSales:    row.TotalSales,
		TotalProfit:   row.TotalProfit,
		OrderCount:    row.OrderCount,
		CustomerCount: row.CustomerCount,
		AvgOrderValue: analytics.SafeDiv(row.TotalSales, decimal.NewFromInt(row.OrderCount)),
		InvoiceCount:  row.InvoiceCount,
		InvoiceTotal:  row.InvoiceTotal,
		ReturnCount:   row.ReturnCount,
		ReturnTotal:   row.ReturnTotal,
	}, nil
}

type trendRow struct {
	CreatedAt   time.Time       `gorm:"column:created_at"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount"`
	TotalProfit decimal.Decimal `gorm:"column:profit"`
}

// DailyTrend returns per-day totals sorted ascending by day. Day
// boundaries follow the business timezone, so bucketing happens
// in-process instead of with the database's DATE(), which works in the
// session timezone.
func (r *DashboardQueryRepository) DailyTrend(ctx context.Context, w analytics.Window) ([]analytics.TrendPoint, error) {
	var rows []trendRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT created_at, total_amount, COALESCE(profit, 0) AS profit
		FROM sales
		WHERE created_at >= ? AND created_at <= ?`, w.Start, w.End).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("daily trend: %w", err)
	}
	sales := make([]analytics.SaleRecord, len(rows))
	for i, row := range rows {
		sales[i] = analytics.SaleRecord{
			CreatedAt:   row.CreatedAt,
			TotalAmount: row.TotalAmount,
			Profit:      row.TotalProfit,
		}
	}
	return analytics.TrendByDay(sales, r.loc), nil
}

// TopProducts aggregates line items per product and keeps the top n by
// revenue.
func (r *DashboardQueryRepository) TopProducts(ctx context.Context, w analytics.Window, n int) ([]analytics.ProductSales, error) {
	var rows []analytics.ProductSales
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			si.product_id AS product_id,
			COALESCE(p.name, '') AS name,
			COALESCE(SUM(si.quantity), 0) AS quantity,
			COALESCE(SUM(si.quantity * si.unit_price), 0) AS revenue,
			COALESCE(SUM(si.quantity * (si.unit_price - si.cost_price)), 0) AS profit
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		LEFT JOIN products p ON p.id = si.product_id
		WHERE s.created_at >= ? AND s.created_at <= ?
		GROUP BY si.product_id, p.name`, w.Start, w.End).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	for i := range rows {
		if rows[i].Name == "" {
			rows[i].Name = rows[i].ProductID.String()
		}
	}
	return analytics.RankProducts(rows, n), nil
}

// TopCustomers aggregates identified sales per customer and keeps the
// top n by spend. Anonymous sales carry no customer and are skipped.
func (r *DashboardQueryRepository) TopCustomers(ctx context.Context, w analytics.Window, n int) ([]analytics.CustomerSales, error) {
	var rows []analytics.CustomerSales
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			s.customer_id AS customer_id,
			COALESCE(c.name, '') AS name,
			COUNT(*) AS order_count,
			COALESCE(SUM(s.total_amount), 0) AS spend
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE s.customer_id IS NOT NULL
		  AND s.created_at >= ? AND s.created_at <= ?
		GROUP BY s.customer_id, c.name`, w.Start, w.End).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	for i := range rows {
		if rows[i].Name == "" {
			rows[i].Name = rows[i].CustomerID.String()
		}
	}
	return analytics.RankCustomers(rows, n), nil
}

type categoryRow struct {
	CategoryID *uuid.UUID      `gorm:"column:category_id"`
	Name       string          `gorm:"column:name"`
	Revenue    decimal.Decimal `gorm:"column:revenue"`
	OrderCount int64           `gorm:"column:order_count"`
}

// CategoryShares aggregates item revenue per product category. Items
// whose product has no category land in a synthetic bucket.
func (r *DashboardQueryRepository) CategoryShares(ctx context.Context, w analytics.Window) ([]analytics.CategoryShare, error) {
	var rows []categoryRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			p.category_id AS category_id,
			COALESCE(c.name, '') AS name,
			COALESCE(SUM(si.quantity * si.unit_price), 0) AS revenue,
			COUNT(DISTINCT si.sale_id) AS order_count
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		LEFT JOIN products p ON p.id = si.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE s.created_at >= ? AND s.created_at <= ?
		GROUP BY p.category_id, c.name`, w.Start, w.End).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("category shares: %w", err)
	}
	shares := make([]analytics.CategoryShare, 0, len(rows))
	for _, row := range rows {
		share := analytics.CategoryShare{
			CategoryID: analytics.UncategorizedID,
			Name:       analytics.UncategorizedName,
			Revenue:    row.Revenue,
			OrderCount: row.OrderCount,
		}
		if row.CategoryID != nil {
			share.CategoryID = row.CategoryID.String()
			share.Name = row.Name
		}
		shares = append(shares, share)
	}
	return analytics.CategoryShares(shares), nil
}

type channelRow struct {
	Channel      string          `gorm:"column:channel"`
	Total        decimal.Decimal `gorm:"column:total"`
	Profit       decimal.Decimal `gorm:"column:profit"`
	InvoiceCount int64           `gorm:"column:invoice_count"`
	InvoiceTotal decimal.Decimal `gorm:"column:invoice_total"`
	ReturnCount  int64           `gorm:"column:return_count"`
	ReturnTotal  decimal.Decimal `gorm:"column:return_total"`
	OrderCount   int64           `gorm:"column:order_count"`
	Shipping     decimal.Decimal `gorm:"column:shipping"`
}

// ChannelBreakdown partitions window sales into ground vs online. Rows
// with an empty or unknown channel count as ground.
func (r *DashboardQueryRepository) ChannelBreakdown(ctx context.Context, w analytics.Window) (analytics.ChannelBreakdown, error) {
	var rows []channelRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			CASE WHEN sale_channel = 'online' THEN 'online' ELSE 'ground' END AS channel,
			COALESCE(SUM(total_amount), 0) AS total,
			COALESCE(SUM(profit), 0) AS profit,
			COALESCE(SUM(CASE WHEN invoice_type <> 'return' THEN 1 ELSE 0 END), 0) AS invoice_count,
			COALESCE(SUM(CASE WHEN invoice_type <> 'return' THEN total_amount ELSE 0 END), 0) AS invoice_total,
			COALESCE(SUM(CASE WHEN invoice_type = 'return' THEN 1 ELSE 0 END), 0) AS return_count,
			COALESCE(SUM(CASE WHEN invoice_type = 'return' THEN ABS(total_amount) ELSE 0 END), 0) AS return_total,
			COUNT(*) AS order_count,
			COALESCE(SUM(shipping_amount), 0) AS shipping
		FROM sales
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY CASE WHEN sale_channel = 'online' THEN 'online' ELSE 'ground' END`, w.Start, w.End).
		Scan(&rows).Error
	if err != nil {
		return analytics.ChannelBreakdown{}, fmt.Errorf("channel breakdown: %w", err)
	}
	var out analytics.ChannelBreakdown
	var totalOrders int64
	for _, row := range rows {
		totalOrders += row.OrderCount
	}
	for _, row := range rows {
		split := analytics.ChannelSplit{
			Total:        row.Total,
			Profit:       row.Profit,
			InvoiceCount: row.InvoiceCount,
			InvoiceTotal: row.InvoiceTotal,
			ReturnCount:  row.ReturnCount,
			ReturnTotal:  row.ReturnTotal,
			Percent:      analytics.PercentOf(decimal.NewFromInt(row.OrderCount), decimal.NewFromInt(totalOrders)),
		}
		if row.Channel == string(analytics.ChannelOnline) {
			split.Shipping = row.Shipping
			out.Online = split
		} else {
			out.Ground = split
		}
	}
	return out, nil
}

// RecentOrders returns the newest sales in the window, newest first.
func (r *DashboardQueryRepository) RecentOrders(ctx context.Context, w analytics.Window, limit int) ([]analytics.RecentOrder, error) {
	var models []SaleModel
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", w.Start, w.End).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	orders := make([]analytics.RecentOrder, 0, len(models))
	for _, m := range models {
		rec := saleRecordFromModel(m)
		orders = append(orders, analytics.RecentOrder{
			ID:          rec.ID,
			TotalAmount: rec.TotalAmount,
			Channel:     rec.Channel,
			InvoiceType: rec.InvoiceType,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return orders, nil
}

// PurchaseTotal sums supplier purchases inside the window.
func (r *DashboardQueryRepository) PurchaseTotal(ctx context.Context, w analytics.Window) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(total_amount), 0)
		FROM purchases
		WHERE created_at >= ? AND created_at <= ?`, w.Start, w.End).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("purchase total: %w", err)
	}
	return total, nil
}
