package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTopN is the ranking cutoff for top products and top customers.
const DefaultTopN = 5

// DefaultRecentOrders is how many recent orders the overview carries.
const DefaultRecentOrders = 5

var hundred = decimal.NewFromInt(100)

// Aggregate reduces filtered sales and items into the dashboard view
// model. It is a pure function: calling it twice on the same input
// produces identical output. Every division guards its denominator, so
// empty input yields an all-zero overview rather than NaN or a panic.
//
// Both the local (filtered) path and the pre-aggregated (unfiltered)
// path share the ranking and percentage helpers below, so the reduction
// math exists in exactly one place.
func Aggregate(sales []SaleRecord, items []SaleItemRecord, loc *time.Location, topN int) Overview {
	if loc == nil {
		loc = time.UTC
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	out := Overview{
		Trend:        []TrendPoint{},
		TopProducts:  []ProductSales{},
		TopCustomers: []CustomerSales{},
		Categories:   []CategoryShare{},
		RecentOrders: []RecentOrder{},
	}

	out.KPIs = reduceKPIs(sales)
	out.Trend = TrendByDay(sales, loc)
	out.TopProducts = RankProducts(reduceProducts(items), topN)
	out.TopCustomers = RankCustomers(reduceCustomers(sales), topN)
	out.Categories = CategoryShares(reduceCategories(items))
	out.Channels = reduceChannels(sales)
	out.RecentOrders = recentOrders(sales, DefaultRecentOrders)
	return out
}

// ---------------------------------------------------------------------
// Shared reduction helpers
// ---------------------------------------------------------------------

// SafeDiv divides a by b, returning zero for a zero denominator.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// PercentOf returns part/whole as a percentage, zero when whole is zero.
func PercentOf(part, whole decimal.Decimal) decimal.Decimal {
	return SafeDiv(part, whole).Mul(hundred)
}

// GrowthPercent returns the relative change from prev to cur as a
// percentage, zero when prev is zero.
func GrowthPercent(cur, prev decimal.Decimal) decimal.Decimal {
	return PercentOf(cur.Sub(prev), prev)
}

// RankProducts fills each product's profit margin, sorts by revenue
// descending and caps the list at n.
func RankProducts(rows []ProductSales, n int) []ProductSales {
	for i := range rows {
		rows[i].ProfitMargin = PercentOf(rows[i].Profit, rows[i].Revenue)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue.GreaterThan(rows[j].Revenue)
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// RankCustomers fills each customer's average order value, sorts by
// spend descending and caps the list at n.
func RankCustomers(rows []CustomerSales, n int) []CustomerSales {
	for i := range rows {
		rows[i].AvgOrder = SafeDiv(rows[i].Spend, decimal.NewFromInt(rows[i].OrderCount))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Spend.GreaterThan(rows[j].Spend)
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// CategoryShares fills each category's percentage of total revenue and
// sorts descending. The full list is returned; collapsing a long tail is
// a presentation decision.
func CategoryShares(rows []CategoryShare) []CategoryShare {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Revenue)
	}
	for i := range rows {
		rows[i].Percent = PercentOf(rows[i].Revenue, total)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue.GreaterThan(rows[j].Revenue)
	})
	return rows
}

// ---------------------------------------------------------------------
// Local reductions over raw rows
// ---------------------------------------------------------------------

func reduceKPIs(sales []SaleRecord) KPISet {
	var k KPISet
	k.TotalSales = decimal.Zero
	k.TotalProfit = decimal.Zero
	k.AvgOrderValue = decimal.Zero
	k.InvoiceTotal = decimal.Zero
	k.ReturnTotal = decimal.Zero
	k.SalesGrowth = decimal.Zero
	k.ProfitGrowth = decimal.Zero
	k.OrdersGrowth = decimal.Zero

	customers := make(map[uuid.UUID]struct{})
	for _, s := range sales {
		s = s.Normalized()
		k.TotalSales = k.TotalSales.Add(s.TotalAmount)
		k.TotalProfit = k.TotalProfit.Add(s.Profit)
		k.OrderCount++
		if s.CustomerID != nil {
			customers[*s.CustomerID] = struct{}{}
		}
		if s.IsReturn() {
			k.ReturnCount++
			k.ReturnTotal = k.ReturnTotal.Add(s.TotalAmount.Abs())
		} else {
			k.InvoiceCount++
			k.InvoiceTotal = k.InvoiceTotal.Add(s.TotalAmount)
		}
	}
	k.CustomerCount = int64(len(customers))
	k.AvgOrderValue = SafeDiv(k.TotalSales, decimal.NewFromInt(k.OrderCount))
	return k
}

// TrendByDay buckets sales into calendar days of loc and sums each
// bucket. Day boundaries follow the business timezone, never the
// storage timezone.
func TrendByDay(sales []SaleRecord, loc *time.Location) []TrendPoint {
	if loc == nil {
		loc = time.UTC
	}
	byDay := make(map[string]*TrendPoint)
	for _, s := range sales {
		local := s.CreatedAt.In(loc)
		day := local.Format("2006-01-02")
		p, ok := byDay[day]
		if !ok {
			p = &TrendPoint{
				Date:        day,
				Label:       local.Format("Jan 2"),
				TotalAmount: decimal.Zero,
				TotalProfit: decimal.Zero,
			}
			byDay[day] = p
		}
		p.TotalAmount = p.TotalAmount.Add(s.TotalAmount)
		p.TotalProfit = p.TotalProfit.Add(s.Profit)
		p.OrderCount++
	}

	points := make([]TrendPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

func reduceProducts(items []SaleItemRecord) []ProductSales {
	byProduct := make(map[uuid.UUID]*ProductSales)
	order := make([]uuid.UUID, 0)
	for _, it := range items {
		p, ok := byProduct[it.ProductID]
		if !ok {
			p = &ProductSales{
				ProductID: it.ProductID,
				Name:      it.ProductName,
				Quantity:  decimal.Zero,
				Revenue:   decimal.Zero,
				Profit:    decimal.Zero,
			}
			byProduct[it.ProductID] = p
			order = append(order, it.ProductID)
		}
		p.Quantity = p.Quantity.Add(it.Quantity)
		p.Revenue = p.Revenue.Add(it.Revenue())
		p.Profit = p.Profit.Add(it.LineProfit())
	}

	rows := make([]ProductSales, 0, len(order))
	for _, id := range order {
		rows = append(rows, *byProduct[id])
	}
	return rows
}

func reduceCustomers(sales []SaleRecord) []CustomerSales {
	byCustomer := make(map[uuid.UUID]*CustomerSales)
	order := make([]uuid.UUID, 0)
	for _, s := range sales {
		if s.CustomerID == nil {
			continue
		}
		id := *s.CustomerID
		c, ok := byCustomer[id]
		if !ok {
			// Name is not locally known when reducing raw rows; it
			// degrades to the raw id.
			c = &CustomerSales{CustomerID: id, Name: id.String(), Spend: decimal.Zero}
			byCustomer[id] = c
			order = append(order, id)
		}
		c.OrderCount++
		c.Spend = c.Spend.Add(s.TotalAmount)
	}

	rows := make([]CustomerSales, 0, len(order))
	for _, id := range order {
		rows = append(rows, *byCustomer[id])
	}
	return rows
}

func reduceCategories(items []SaleItemRecord) []CategoryShare {
	byCategory := make(map[string]*CategoryShare)
	order := make([]string, 0)
	touched := make(map[string]map[uuid.UUID]struct{})
	for _, it := range items {
		id := UncategorizedID
		name := UncategorizedName
		if it.CategoryID != nil {
			id = it.CategoryID.String()
			name = it.CategoryName
		}
		c, ok := byCategory[id]
		if !ok {
			c = &CategoryShare{CategoryID: id, Name: name, Revenue: decimal.Zero}
			byCategory[id] = c
			order = append(order, id)
			touched[id] = make(map[uuid.UUID]struct{})
		}
		c.Revenue = c.Revenue.Add(it.Revenue())
		touched[id][it.SaleID] = struct{}{}
	}

	rows := make([]CategoryShare, 0, len(order))
	for _, id := range order {
		c := *byCategory[id]
		c.OrderCount = int64(len(touched[id]))
		rows = append(rows, c)
	}
	return rows
}

func reduceChannels(sales []SaleRecord) ChannelBreakdown {
	ground := zeroSplit()
	online := zeroSplit()
	totalOrders := int64(len(sales))

	for _, s := range sales {
		s = s.Normalized()
		split := &ground
		if s.Channel == ChannelOnline {
			split = &online
		}
		split.Total = split.Total.Add(s.TotalAmount)
		split.Profit = split.Profit.Add(s.Profit)
		if s.IsReturn() {
			split.ReturnCount++
			split.ReturnTotal = split.ReturnTotal.Add(s.TotalAmount.Abs())
		} else {
			split.InvoiceCount++
			split.InvoiceTotal = split.InvoiceTotal.Add(s.TotalAmount)
		}
		if s.Channel == ChannelOnline {
			split.Shipping = split.Shipping.Add(s.Shipping)
		}
	}

	total := decimal.NewFromInt(totalOrders)
	ground.Percent = PercentOf(decimal.NewFromInt(ground.InvoiceCount+ground.ReturnCount), total)
	online.Percent = PercentOf(decimal.NewFromInt(online.InvoiceCount+online.ReturnCount), total)
	return ChannelBreakdown{Ground: ground, Online: online}
}

func zeroSplit() ChannelSplit {
	return ChannelSplit{
		Total:        decimal.Zero,
		Profit:       decimal.Zero,
		InvoiceTotal: decimal.Zero,
		ReturnTotal:  decimal.Zero,
		Percent:      decimal.Zero,
		Shipping:     decimal.Zero,
	}
}

func recentOrders(sales []SaleRecord, limit int) []RecentOrder {
	sorted := make([]SaleRecord, len(sales))
	copy(sorted, sales)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]RecentOrder, len(sorted))
	for i, s := range sorted {
		s = s.Normalized()
		out[i] = RecentOrder{
			ID:          s.ID,
			TotalAmount: s.TotalAmount,
			Channel:     s.Channel,
			InvoiceType: s.InvoiceType,
			CreatedAt:   s.CreatedAt,
		}
	}
	return out
}
