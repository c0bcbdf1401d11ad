package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UncategorizedID is the synthetic category bucket for items whose
// product carries no category.
const UncategorizedID = "uncategorized"

// UncategorizedName is the display name of the synthetic bucket.
const UncategorizedName = "Uncategorized"

// KPISet holds the headline figures for one window.
type KPISet struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	OrderCount    int64           `json:"order_count"`
	CustomerCount int64           `json:"customer_count"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	InvoiceCount  int64           `json:"invoice_count"`
	InvoiceTotal  decimal.Decimal `json:"invoice_total"`
	ReturnCount   int64           `json:"return_count"`
	// ReturnTotal is always a non-negative magnitude regardless of the
	// sign convention of the source rows.
	ReturnTotal decimal.Decimal `json:"return_total"`

	// Growth percentages against the equal-duration previous window;
	// zero when no comparison was computed.
	SalesGrowth  decimal.Decimal `json:"sales_growth"`
	ProfitGrowth decimal.Decimal `json:"profit_growth"`
	OrdersGrowth decimal.Decimal `json:"orders_growth"`
}

// GrowthAgainst fills the growth percentages from a previous-period KPI
// set. A zero previous denominator yields growth 0.
func (k KPISet) GrowthAgainst(prev KPISet) KPISet {
	k.SalesGrowth = GrowthPercent(k.TotalSales, prev.TotalSales)
	k.ProfitGrowth = GrowthPercent(k.TotalProfit, prev.TotalProfit)
	k.OrdersGrowth = GrowthPercent(decimal.NewFromInt(k.OrderCount), decimal.NewFromInt(prev.OrderCount))
	return k
}

// TrendPoint is one calendar day's totals within the window.
type TrendPoint struct {
	// Date is the day in YYYY-MM-DD form in the business timezone;
	// points sort ascending by this string.
	Date string `json:"date"`
	// Label is a short month/day display form, e.g. "Mar 4".
	Label       string          `json:"label"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	OrderCount  int64           `json:"order_count"`
}

// ProductSales is one product's aggregate over the window.
type ProductSales struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Revenue      decimal.Decimal `json:"revenue"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// CustomerSales is one customer's aggregate over the window. When rows
// are reduced locally the display name is not known and degrades to the
// raw id.
type CustomerSales struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	Name       string          `json:"name"`
	OrderCount int64           `json:"order_count"`
	Spend      decimal.Decimal `json:"spend"`
	AvgOrder   decimal.Decimal `json:"avg_order"`
}

// CategoryShare is one category's slice of revenue. CategoryID is a
// string so the synthetic uncategorized bucket can share the type with
// real categories.
type CategoryShare struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int64           `json:"order_count"`
	Percent    decimal.Decimal `json:"percent"`
}

// ChannelSplit is one sale channel's totals with its invoice/return
// sub-split.
type ChannelSplit struct {
	Total        decimal.Decimal `json:"total"`
	Profit       decimal.Decimal `json:"profit"`
	InvoiceCount int64           `json:"invoice_count"`
	InvoiceTotal decimal.Decimal `json:"invoice_total"`
	ReturnCount  int64           `json:"return_count"`
	ReturnTotal  decimal.Decimal `json:"return_total"`
	// Percent is this channel's share of the overall order count.
	Percent decimal.Decimal `json:"percent"`
	// Shipping is only populated for the online channel.
	Shipping decimal.Decimal `json:"shipping"`
}

// ChannelBreakdown partitions sales into ground vs online.
type ChannelBreakdown struct {
	Ground ChannelSplit `json:"ground"`
	Online ChannelSplit `json:"online"`
}

// RecentOrder is one row of the recent-orders slice.
type RecentOrder struct {
	ID          uuid.UUID       `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Channel     SaleChannel     `json:"channel"`
	InvoiceType InvoiceType     `json:"invoice_type"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Overview is the aggregated view model delivered to the rendering side.
type Overview struct {
	KPIs          KPISet           `json:"kpis"`
	Trend         []TrendPoint     `json:"trend"`
	TopProducts   []ProductSales   `json:"top_products"`
	TopCustomers  []CustomerSales  `json:"top_customers"`
	Categories    []CategoryShare  `json:"categories"`
	Channels      ChannelBreakdown `json:"channels"`
	RecentOrders  []RecentOrder    `json:"recent_orders"`
	PurchaseTotal decimal.Decimal  `json:"purchase_total"`
}
