package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_EmptyInput(t *testing.T) {
	out := Aggregate(nil, nil, testLoc, DefaultTopN)

	assert.True(t, out.KPIs.TotalSales.IsZero())
	assert.True(t, out.KPIs.TotalProfit.IsZero())
	assert.True(t, out.KPIs.AvgOrderValue.IsZero())
	assert.Zero(t, out.KPIs.OrderCount)
	assert.Zero(t, out.KPIs.CustomerCount)
	assert.Empty(t, out.Trend)
	assert.Empty(t, out.TopProducts)
	assert.Empty(t, out.TopCustomers)
	assert.Empty(t, out.Categories)
	assert.Empty(t, out.RecentOrders)
	assert.True(t, out.Channels.Ground.Percent.IsZero())
	assert.True(t, out.Channels.Online.Percent.IsZero())
}

func TestAggregate_SingleSaleSingleItem(t *testing.T) {
	s := SaleRecord{
		ID:          uuid.New(),
		TotalAmount: decimal.NewFromInt(100),
		Profit:      decimal.NewFromInt(40),
		CreatedAt:   time.Date(2026, time.March, 4, 12, 0, 0, 0, testLoc),
		InvoiceType: InvoiceTypeNormal,
		Channel:     ChannelGround,
	}
	it := SaleItemRecord{
		SaleID:    s.ID,
		ProductID: uuid.New(),
		Quantity:  decimal.NewFromInt(2),
		UnitPrice: decimal.NewFromInt(30),
		CostPrice: decimal.NewFromInt(10),
	}

	out := Aggregate([]SaleRecord{s}, []SaleItemRecord{it}, testLoc, DefaultTopN)

	assert.True(t, out.KPIs.TotalSales.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(1), out.KPIs.OrderCount)
	assert.True(t, out.KPIs.AvgOrderValue.Equal(decimal.NewFromInt(100)))

	require.Len(t, out.TopProducts, 1)
	p := out.TopProducts[0]
	assert.True(t, p.Revenue.Equal(decimal.NewFromInt(60)), "revenue = qty x unit price")
	assert.True(t, p.Profit.Equal(decimal.NewFromInt(40)), "profit = qty x (unit - cost)")
	margin, _ := p.ProfitMargin.Float64()
	assert.InDelta(t, 66.7, margin, 0.1)

	assert.True(t, out.Channels.Ground.Total.Equal(decimal.NewFromInt(100)))
	assert.True(t, out.Channels.Online.Total.IsZero())
	assert.True(t, out.Channels.Ground.Percent.Equal(decimal.NewFromInt(100)))
}

func TestAggregate_ReturnTotalIsMagnitude(t *testing.T) {
	ret := SaleRecord{
		ID:          uuid.New(),
		TotalAmount: decimal.NewFromInt(-50),
		CreatedAt:   time.Date(2026, time.March, 4, 12, 0, 0, 0, testLoc),
		InvoiceType: InvoiceTypeReturn,
	}

	out := Aggregate([]SaleRecord{ret}, nil, testLoc, DefaultTopN)

	assert.True(t, out.KPIs.ReturnTotal.Equal(decimal.NewFromInt(50)), "return total is non-negative")
	assert.Equal(t, int64(1), out.KPIs.ReturnCount)
	assert.Zero(t, out.KPIs.InvoiceCount)
	// A positively stored return normalizes the same way
	ret.TotalAmount = decimal.NewFromInt(50)
	out = Aggregate([]SaleRecord{ret}, nil, testLoc, DefaultTopN)
	assert.True(t, out.KPIs.ReturnTotal.Equal(decimal.NewFromInt(50)))
}

func TestAggregate_MissingChannelDefaultsToGround(t *testing.T) {
	s := SaleRecord{
		ID:          uuid.New(),
		TotalAmount: decimal.NewFromInt(80),
		CreatedAt:   time.Date(2026, time.March, 4, 12, 0, 0, 0, testLoc),
	}

	out := Aggregate([]SaleRecord{s}, nil, testLoc, DefaultTopN)

	assert.True(t, out.Channels.Ground.Total.Equal(decimal.NewFromInt(80)))
	assert.True(t, out.Channels.Online.Total.IsZero())
}

func TestAggregate_OnlineShipping(t *testing.T) {
	s := SaleRecord{
		ID:          uuid.New(),
		TotalAmount: decimal.NewFromInt(200),
		CreatedAt:   time.Date(2026, time.March, 4, 12, 0, 0, 0, testLoc),
		Channel:     ChannelOnline,
		Shipping:    decimal.NewFromInt(15),
	}

	out := Aggregate([]SaleRecord{s}, nil, testLoc, DefaultTopN)

	assert.True(t, out.Channels.Online.Shipping.Equal(decimal.NewFromInt(15)))
	assert.True(t, out.Channels.Ground.Shipping.IsZero())
}

func TestAggregate_TrendGroupsByBusinessDay(t *testing.T) {
	day1 := time.Date(2026, time.March, 3, 9, 0, 0, 0, testLoc)
	day1Later := time.Date(2026, time.March, 3, 21, 0, 0, 0, testLoc)
	day2 := time.Date(2026, time.March, 4, 8, 0, 0, 0, testLoc)

	mk := func(ts time.Time, amount int64) SaleRecord {
		return SaleRecord{ID: uuid.New(), TotalAmount: decimal.NewFromInt(amount), CreatedAt: ts}
	}

	// Deliberately out of order
	out := Aggregate([]SaleRecord{mk(day2, 30), mk(day1, 10), mk(day1Later, 20)}, nil, testLoc, DefaultTopN)

	require.Len(t, out.Trend, 2)
	assert.Equal(t, "2026-03-03", out.Trend[0].Date)
	assert.Equal(t, "Mar 3", out.Trend[0].Label)
	assert.True(t, out.Trend[0].TotalAmount.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, int64(2), out.Trend[0].OrderCount)
	assert.Equal(t, "2026-03-04", out.Trend[1].Date)
}

func TestAggregate_TrendUsesBusinessTimezoneNotUTC(t *testing.T) {
	// 23:00 UTC on Mar 3 is already Mar 4 at UTC+3
	s := SaleRecord{
		ID:          uuid.New(),
		TotalAmount: decimal.NewFromInt(10),
		CreatedAt:   time.Date(2026, time.March, 3, 23, 0, 0, 0, time.UTC),
	}

	out := Aggregate([]SaleRecord{s}, nil, testLoc, DefaultTopN)

	require.Len(t, out.Trend, 1)
	assert.Equal(t, "2026-03-04", out.Trend[0].Date)
}

func TestAggregate_TopProductsRankingAndCap(t *testing.T) {
	saleID := uuid.New()
	var items []SaleItemRecord
	for i := 1; i <= 7; i++ {
		items = append(items, SaleItemRecord{
			SaleID:    saleID,
			ProductID: uuid.New(),
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(int64(i * 10)),
			CostPrice: decimal.NewFromInt(5),
		})
	}

	out := Aggregate(nil, items, testLoc, 5)

	require.Len(t, out.TopProducts, 5)
	// Sorted by revenue descending
	for i := 1; i < len(out.TopProducts); i++ {
		assert.True(t, out.TopProducts[i-1].Revenue.GreaterThanOrEqual(out.TopProducts[i].Revenue))
	}
	assert.True(t, out.TopProducts[0].Revenue.Equal(decimal.NewFromInt(70)))
}

func TestAggregate_TopCustomersExcludeNullAndDegradeName(t *testing.T) {
	c1 := uuid.New()
	mk := func(customer *uuid.UUID, amount int64) SaleRecord {
		return SaleRecord{
			ID:          uuid.New(),
			TotalAmount: decimal.NewFromInt(amount),
			CustomerID:  customer,
			CreatedAt:   time.Date(2026, time.March, 4, 12, 0, 0, 0, testLoc),
		}
	}

	out := Aggregate([]SaleRecord{mk(&c1, 100), mk(&c1, 50), mk(nil, 999)}, nil, testLoc, DefaultTopN)

	require.Len(t, out.TopCustomers, 1)
	top := out.TopCustomers[0]
	assert.Equal(t, c1, top.CustomerID)
	assert.Equal(t, c1.String(), top.Name, "name degrades to raw id")
	assert.Equal(t, int64(2), top.OrderCount)
	assert.True(t, top.Spend.Equal(decimal.NewFromInt(150)))
	assert.True(t, top.AvgOrder.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, int64(1), out.KPIs.CustomerCount)
}

func TestAggregate_UncategorizedBucket(t *testing.T) {
	cat := uuid.New()
	saleID := uuid.New()
	items := []SaleItemRecord{
		{SaleID: saleID, ProductID: uuid.New(), Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(60), CategoryID: &cat, CategoryName: "Drinks"},
		{SaleID: saleID, ProductID: uuid.New(), Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(40)},
	}

	out := Aggregate(nil, items, testLoc, DefaultTopN)

	require.Len(t, out.Categories, 2)
	assert.Equal(t, cat.String(), out.Categories[0].CategoryID)
	p0, _ := out.Categories[0].Percent.Float64()
	assert.InDelta(t, 60.0, p0, 0.001)
	assert.Equal(t, UncategorizedID, out.Categories[1].CategoryID)
	assert.Equal(t, UncategorizedName, out.Categories[1].Name)
	p1, _ := out.Categories[1].Percent.Float64()
	assert.InDelta(t, 40.0, p1, 0.001)
}

func TestAggregate_RecentOrdersNewestFirst(t *testing.T) {
	mk := func(hour int) SaleRecord {
		return SaleRecord{
			ID:          uuid.New(),
			TotalAmount: decimal.NewFromInt(10),
			CreatedAt:   time.Date(2026, time.March, 4, hour, 0, 0, 0, testLoc),
		}
	}
	sales := []SaleRecord{mk(9), mk(14), mk(11), mk(8), mk(16), mk(10), mk(12)}

	out := Aggregate(sales, nil, testLoc, DefaultTopN)

	require.Len(t, out.RecentOrders, DefaultRecentOrders)
	for i := 1; i < len(out.RecentOrders); i++ {
		assert.False(t, out.RecentOrders[i-1].CreatedAt.Before(out.RecentOrders[i].CreatedAt))
	}
	assert.Equal(t, 16, out.RecentOrders[0].CreatedAt.Hour())
}

func TestAggregate_Idempotent(t *testing.T) {
	c1 := uuid.New()
	s := SaleRecord{
		ID:          uuid.New(),
		TotalAmount: decimal.NewFromInt(100),
		Profit:      decimal.NewFromInt(30),
		CustomerID:  &c1,
		CreatedAt:   time.Date(2026, time.March, 4, 12, 0, 0, 0, testLoc),
	}
	it := SaleItemRecord{SaleID: s.ID, ProductID: uuid.New(), Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(25), CostPrice: decimal.NewFromInt(10)}

	first := Aggregate([]SaleRecord{s}, []SaleItemRecord{it}, testLoc, DefaultTopN)
	second := Aggregate([]SaleRecord{s}, []SaleItemRecord{it}, testLoc, DefaultTopN)

	assert.Equal(t, first, second)
}

func TestKPISet_GrowthAgainst(t *testing.T) {
	cur := KPISet{TotalSales: decimal.NewFromInt(150), TotalProfit: decimal.NewFromInt(30), OrderCount: 20}
	prev := KPISet{TotalSales: decimal.NewFromInt(100), TotalProfit: decimal.NewFromInt(40), OrderCount: 10}

	got := cur.GrowthAgainst(prev)

	assert.True(t, got.SalesGrowth.Equal(decimal.NewFromInt(50)))
	assert.True(t, got.ProfitGrowth.Equal(decimal.NewFromInt(-25)))
	assert.True(t, got.OrdersGrowth.Equal(decimal.NewFromInt(100)))

	// Zero previous period never divides by zero
	got = cur.GrowthAgainst(KPISet{TotalSales: decimal.Zero, TotalProfit: decimal.Zero})
	assert.True(t, got.SalesGrowth.IsZero())
}

func TestPercentHelpers(t *testing.T) {
	assert.True(t, SafeDiv(decimal.NewFromInt(10), decimal.Zero).IsZero())
	assert.True(t, PercentOf(decimal.NewFromInt(1), decimal.Zero).IsZero())
	assert.True(t, PercentOf(decimal.NewFromInt(1), decimal.NewFromInt(4)).Equal(decimal.NewFromInt(25)))
	assert.True(t, GrowthPercent(decimal.NewFromInt(5), decimal.Zero).IsZero())
}
