package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/retailpos/backoffice/internal/application/dashboard"
	"github.com/retailpos/backoffice/internal/domain/analytics"
)

// DashboardRequest carries the query parameters of a dashboard load.
// Multi-value dimensions accept repeated parameters, e.g.
// ?branch_ids=a&branch_ids=b.
type DashboardRequest struct {
	Range     string `form:"range" binding:"omitempty,oneof=all today current_week last_week current_month last_month custom"`
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`

	CustomerID      string `form:"customer_id" binding:"omitempty,uuid"`
	CashierID       string `form:"cashier_id" binding:"omitempty,uuid"`
	BranchID        string `form:"branch_id" binding:"omitempty,uuid"`
	TillID          string `form:"till_id" binding:"omitempty,uuid"`
	ProductID       string `form:"product_id" binding:"omitempty,uuid"`
	CategoryID      string `form:"category_id" binding:"omitempty,uuid"`
	CustomerGroupID string `form:"customer_group_id" binding:"omitempty,uuid"`

	CustomerIDs      []string `form:"customer_ids" binding:"omitempty,dive,uuid"`
	CashierIDs       []string `form:"cashier_ids" binding:"omitempty,dive,uuid"`
	BranchIDs        []string `form:"branch_ids" binding:"omitempty,dive,uuid"`
	TillIDs          []string `form:"till_ids" binding:"omitempty,dive,uuid"`
	ProductIDs       []string `form:"product_ids" binding:"omitempty,dive,uuid"`
	CategoryIDs      []string `form:"category_ids" binding:"omitempty,dive,uuid"`
	CustomerGroupIDs []string `form:"customer_group_ids" binding:"omitempty,dive,uuid"`
}

func (r DashboardRequest) hasMulti() bool {
	return len(r.CustomerIDs) > 0 || len(r.CashierIDs) > 0 || len(r.BranchIDs) > 0 ||
		len(r.TillIDs) > 0 || len(r.ProductIDs) > 0 || len(r.CategoryIDs) > 0 ||
		len(r.CustomerGroupIDs) > 0
}

// ToQuery converts the bound request into a dashboard query. Custom
// range bounds are interpreted as calendar days in loc. When both a
// single and a list value are supplied for some dimension the list form
// wins, since mixing modes in one request has no defined meaning.
func (r DashboardRequest) ToQuery(loc *time.Location) (dashboard.Query, error) {
	q := dashboard.Query{
		Range: analytics.DateRange{Kind: analytics.RangeAll},
	}
	if r.Range != "" {
		q.Range.Kind = analytics.RangeKind(r.Range)
	}
	if q.Range.Kind == analytics.RangeCustom {
		start, err := parseDay(r.StartDate, loc)
		if err != nil {
			return dashboard.Query{}, err
		}
		end, err := parseDay(r.EndDate, loc)
		if err != nil {
			return dashboard.Query{}, err
		}
		q.Range.Start = start
		q.Range.End = end
	}

	if r.hasMulti() {
		sel := analytics.MultiSelection{}
		var err error
		if sel.Customers, err = parseIDs(r.CustomerIDs); err != nil {
			return dashboard.Query{}, err
		}
		if sel.Cashiers, err = parseIDs(r.CashierIDs); err != nil {
			return dashboard.Query{}, err
		}
		if sel.Branches, err = parseIDs(r.BranchIDs); err != nil {
			return dashboard.Query{}, err
		}
		if sel.Tills, err = parseIDs(r.TillIDs); err != nil {
			return dashboard.Query{}, err
		}
		if sel.Products, err = parseIDs(r.ProductIDs); err != nil {
			return dashboard.Query{}, err
		}
		if sel.Categories, err = parseIDs(r.CategoryIDs); err != nil {
			return dashboard.Query{}, err
		}
		if sel.CustomerGroups, err = parseIDs(r.CustomerGroupIDs); err != nil {
			return dashboard.Query{}, err
		}
		q.Filter = analytics.NewMultiFilter(sel)
		return q, nil
	}

	sel := analytics.SimpleSelection{}
	var err error
	if sel.Customer, err = parseID(r.CustomerID); err != nil {
		return dashboard.Query{}, err
	}
	if sel.Cashier, err = parseID(r.CashierID); err != nil {
		return dashboard.Query{}, err
	}
	if sel.Branch, err = parseID(r.BranchID); err != nil {
		return dashboard.Query{}, err
	}
	if sel.Till, err = parseID(r.TillID); err != nil {
		return dashboard.Query{}, err
	}
	if sel.Product, err = parseID(r.ProductID); err != nil {
		return dashboard.Query{}, err
	}
	if sel.Category, err = parseID(r.CategoryID); err != nil {
		return dashboard.Query{}, err
	}
	if sel.CustomerGroup, err = parseID(r.CustomerGroupID); err != nil {
		return dashboard.Query{}, err
	}
	q.Filter = analytics.NewSimpleFilter(sel)
	return q, nil
}

func parseDay(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}

func parseID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return &id, nil
}

func parseIDs(ss []string) ([]uuid.UUID, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// KPIResponse is the JSON shape of the headline figures.
type KPIResponse struct {
	TotalSales    float64 `json:"total_sales"`
	TotalProfit   float64 `json:"total_profit"`
	OrderCount    int64   `json:"order_count"`
	CustomerCount int64   `json:"customer_count"`
	AvgOrderValue float64 `json:"avg_order_value"`
	InvoiceCount  int64   `json:"invoice_count"`
	InvoiceTotal  float64 `json:"invoice_total"`
	ReturnCount   int64   `json:"return_count"`
	ReturnTotal   float64 `json:"return_total"`
	SalesGrowth   float64 `json:"sales_growth"`
	ProfitGrowth  float64 `json:"profit_growth"`
	OrdersGrowth  float64 `json:"orders_growth"`
}

// TrendPointResponse is one day of the sales trend.
type TrendPointResponse struct {
	Date        string  `json:"date"`
	Label       string  `json:"label"`
	TotalAmount float64 `json:"total_amount"`
	TotalProfit float64 `json:"total_profit"`
	OrderCount  int64   `json:"order_count"`
}

// ProductSalesResponse is one ranked product row.
type ProductSalesResponse struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	Revenue      float64 `json:"revenue"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

// CustomerSalesResponse is one ranked customer row.
type CustomerSalesResponse struct {
	CustomerID string  `json:"customer_id"`
	Name       string  `json:"name"`
	OrderCount int64   `json:"order_count"`
	Spend      float64 `json:"spend"`
	AvgOrder   float64 `json:"avg_order"`
}

// CategoryShareResponse is one category revenue slice.
type CategoryShareResponse struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Revenue    float64 `json:"revenue"`
	OrderCount int64   `json:"order_count"`
	Percent    float64 `json:"percent"`
}

// ChannelSplitResponse is one channel's totals.
type ChannelSplitResponse struct {
	Total        float64 `json:"total"`
	Profit       float64 `json:"profit"`
	InvoiceCount int64   `json:"invoice_count"`
	InvoiceTotal float64 `json:"invoice_total"`
	ReturnCount  int64   `json:"return_count"`
	ReturnTotal  float64 `json:"return_total"`
	Percent      float64 `json:"percent"`
	Shipping     float64 `json:"shipping"`
}

// ChannelBreakdownResponse partitions sales into ground vs online.
type ChannelBreakdownResponse struct {
	Ground ChannelSplitResponse `json:"ground"`
	Online ChannelSplitResponse `json:"online"`
}

// RecentOrderResponse is one recent sale row.
type RecentOrderResponse struct {
	ID          string    `json:"id"`
	TotalAmount float64   `json:"total_amount"`
	Channel     string    `json:"channel"`
	InvoiceType string    `json:"invoice_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// OverviewResponse is the full dashboard payload.
type OverviewResponse struct {
	KPIs          KPIResponse                `json:"kpis"`
	Trend         []TrendPointResponse       `json:"trend"`
	TopProducts   []ProductSalesResponse     `json:"top_products"`
	TopCustomers  []CustomerSalesResponse    `json:"top_customers"`
	Categories    []CategoryShareResponse    `json:"categories"`
	Channels      ChannelBreakdownResponse   `json:"channels"`
	RecentOrders  []RecentOrderResponse      `json:"recent_orders"`
	PurchaseTotal float64                    `json:"purchase_total"`
}

// SnapshotResponse wraps the overview with its cache status.
type SnapshotResponse struct {
	Overview    OverviewResponse `json:"overview"`
	Stale       bool             `json:"stale"`
	RefreshedAt time.Time        `json:"refreshed_at"`
}

// FromSnapshot converts a service snapshot into its response shape.
func FromSnapshot(s dashboard.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Overview:    FromOverview(s.Data),
		Stale:       s.Stale,
		RefreshedAt: s.RefreshedAt,
	}
}

// FromOverview converts the decimal view model into the float JSON
// shape clients consume.
func FromOverview(o *analytics.Overview) OverviewResponse {
	if o == nil {
		return OverviewResponse{
			Trend:        []TrendPointResponse{},
			TopProducts:  []ProductSalesResponse{},
			TopCustomers: []CustomerSalesResponse{},
			Categories:   []CategoryShareResponse{},
			RecentOrders: []RecentOrderResponse{},
		}
	}
	out := OverviewResponse{
		KPIs: KPIResponse{
			TotalSales:    o.KPIs.TotalSales.InexactFloat64(),
			TotalProfit:   o.KPIs.TotalProfit.InexactFloat64(),
			OrderCount:    o.KPIs.OrderCount,
			CustomerCount: o.KPIs.CustomerCount,
			AvgOrderValue: o.KPIs.AvgOrderValue.InexactFloat64(),
			InvoiceCount:  o.KPIs.InvoiceCount,
			InvoiceTotal:  o.KPIs.InvoiceTotal.InexactFloat64(),
			ReturnCount:   o.KPIs.ReturnCount,
			ReturnTotal:   o.KPIs.ReturnTotal.InexactFloat64(),
			SalesGrowth:   o.KPIs.SalesGrowth.InexactFloat64(),
			ProfitGrowth:  o.KPIs.ProfitGrowth.InexactFloat64(),
			OrdersGrowth:  o.KPIs.OrdersGrowth.InexactFloat64(),
		},
		Trend:         make([]TrendPointResponse, 0, len(o.Trend)),
		TopProducts:   make([]ProductSalesResponse, 0, len(o.TopProducts)),
		TopCustomers:  make([]CustomerSalesResponse, 0, len(o.TopCustomers)),
		Categories:    make([]CategoryShareResponse, 0, len(o.Categories)),
		RecentOrders:  make([]RecentOrderResponse, 0, len(o.RecentOrders)),
		PurchaseTotal: o.PurchaseTotal.InexactFloat64(),
	}
	for _, p := range o.Trend {
		out.Trend = append(out.Trend, TrendPointResponse{
			Date:        p.Date,
			Label:       p.Label,
			TotalAmount: p.TotalAmount.InexactFloat64(),
			TotalProfit: p.TotalProfit.InexactFloat64(),
			OrderCount:  p.OrderCount,
		})
	}
	for _, p := range o.TopProducts {
		out.TopProducts = append(out.TopProducts, ProductSalesResponse{
			ProductID:    p.ProductID.String(),
			Name:         p.Name,
			Quantity:     p.Quantity.InexactFloat64(),
			Revenue:      p.Revenue.InexactFloat64(),
			Profit:       p.Profit.InexactFloat64(),
			ProfitMargin: p.ProfitMargin.InexactFloat64(),
		})
	}
	for _, c := range o.TopCustomers {
		out.TopCustomers = append(out.TopCustomers, CustomerSalesResponse{
			CustomerID: c.CustomerID.String(),
			Name:       c.Name,
			OrderCount: c.OrderCount,
			Spend:      c.Spend.InexactFloat64(),
			AvgOrder:   c.AvgOrder.InexactFloat64(),
		})
	}
	for _, c := range o.Categories {
		out.Categories = append(out.Categories, CategoryShareResponse{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Revenue:    c.Revenue.InexactFloat64(),
			OrderCount: c.OrderCount,
			Percent:    c.Percent.InexactFloat64(),
		})
	}
	out.Channels = ChannelBreakdownResponse{
		Ground: fromSplit(o.Channels.Ground),
		Online: fromSplit(o.Channels.Online),
	}
	for _, r := range o.RecentOrders {
		out.RecentOrders = append(out.RecentOrders, RecentOrderResponse{
			ID:          r.ID.String(),
			TotalAmount: r.TotalAmount.InexactFloat64(),
			Channel:     string(r.Channel),
			InvoiceType: string(r.InvoiceType),
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}

func fromSplit(s analytics.ChannelSplit) ChannelSplitResponse {
	return ChannelSplitResponse{
		Total:        s.Total.InexactFloat64(),
		Profit:       s.Profit.InexactFloat64(),
		InvoiceCount: s.InvoiceCount,
		InvoiceTotal: s.InvoiceTotal.InexactFloat64(),
		ReturnCount:  s.ReturnCount,
		ReturnTotal:  s.ReturnTotal.InexactFloat64(),
		Percent:      s.Percent.InexactFloat64(),
		Shipping:     s.Shipping.InexactFloat64(),
	}
}
