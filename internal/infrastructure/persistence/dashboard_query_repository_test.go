package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/retailpos/backoffice/internal/domain/analytics"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named in-memory db keeps the pool's connections on the same
	// database while isolating tests from each other.
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_loc=UTC"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&SaleModel{},
		&SaleItemModel{},
		&ProductModel{},
		&CategoryModel{},
		&CustomerModel{},
		&CustomerGroupMemberModel{},
		&PurchaseModel{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func windowOver(start, end time.Time) analytics.Window {
	return analytics.Window{Start: start, End: end}
}

func seedSale(t *testing.T, db *gorm.DB, m SaleModel) {
	t.Helper()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.InvoiceType == "" {
		m.InvoiceType = "normal"
	}
	require.NoError(t, db.Create(&m).Error)
}

func TestKPISummary(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.UTC)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cust := uuid.New()

	seedSale(t, db, SaleModel{
		TotalAmount: dec("100"),
		Profit:      ptr(dec("30")),
		CustomerID:  &cust,
		CreatedAt:   base,
	})
	seedSale(t, db, SaleModel{
		TotalAmount: dec("-40"),
		Profit:      ptr(dec("-10")),
		InvoiceType: "return",
		CreatedAt:   base.Add(time.Hour),
	})
	// Outside the window.
	seedSale(t, db, SaleModel{
		TotalAmount: dec("999"),
		CreatedAt:   base.AddDate(0, 1, 0),
	})

	w := windowOver(base.Add(-time.Hour), base.Add(2*time.Hour))
	kpis, err := repo.KPISummary(ctx, w)
	require.NoError(t, err)

	assert.True(t, kpis.TotalSales.Equal(dec("60")), "got %s", kpis.TotalSales)
	assert.True(t, kpis.TotalProfit.Equal(dec("20")))
	assert.Equal(t, int64(2), kpis.OrderCount)
	assert.Equal(t, int64(1), kpis.CustomerCount)
	assert.Equal(t, int64(1), kpis.InvoiceCount)
	assert.True(t, kpis.InvoiceTotal.Equal(dec("100")))
	assert.Equal(t, int64(1), kpis.ReturnCount)
	assert.True(t, kpis.ReturnTotal.Equal(dec("40")), "returns are reported as a magnitude")
	assert.True(t, kpis.AvgOrderValue.Equal(dec("30")))
}

func TestKPISummaryEmptyWindow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.UTC)

	w := windowOver(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	kpis, err := repo.KPISummary(context.Background(), w)
	require.NoError(t, err)

	assert.True(t, kpis.TotalSales.IsZero())
	assert.Equal(t, int64(0), kpis.OrderCount)
	assert.True(t, kpis.AvgOrderValue.IsZero())
}

func TestDailyTrendGroupsAndSorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.UTC)

	day1 := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	seedSale(t, db, SaleModel{TotalAmount: dec("10"), Profit: ptr(dec("2")), CreatedAt: day2})
	seedSale(t, db, SaleModel{TotalAmount: dec("20"), Profit: ptr(dec("5")), CreatedAt: day1})
	seedSale(t, db, SaleModel{TotalAmount: dec("30"), Profit: ptr(dec("6")), CreatedAt: day1.Add(time.Hour)})

	points, err := repo.DailyTrend(context.Background(), windowOver(day1.Add(-time.Hour), day2.Add(time.Hour)))
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "2026-03-04", points[0].Date)
	assert.Equal(t, "Mar 4", points[0].Label)
	assert.True(t, points[0].TotalAmount.Equal(dec("50")))
	assert.Equal(t, int64(2), points[0].OrderCount)

	assert.Equal(t, "2026-03-05", points[1].Date)
	assert.True(t, points[1].TotalAmount.Equal(dec("10")))
}

func TestDailyTrendBucketsInBusinessTimezone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.FixedZone("AST", 3*60*60))

	// 23:00 UTC is 02:00 the next day at UTC+3.
	at := time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC)
	seedSale(t, db, SaleModel{TotalAmount: dec("10"), Profit: ptr(dec("2")), CreatedAt: at})

	points, err := repo.DailyTrend(context.Background(), windowOver(at.Add(-time.Hour), at.Add(time.Hour)))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2026-03-04", points[0].Date)
}

func TestTopProductsRanksByRevenue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.UTC)
	ctx := context.Background()

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	saleID := uuid.New()
	seedSale(t, db, SaleModel{ID: saleID, TotalAmount: dec("100"), CreatedAt: at})

	prodA := ProductModel{ID: uuid.New(), Name: "Espresso"}
	prodB := ProductModel{ID: uuid.New(), Name: "Latte"}
	require.NoError(t, db.Create(&prodA).Error)
	require.NoError(t, db.Create(&prodB).Error)

	require.NoError(t, db.Create(&SaleItemModel{
		ID: uuid.New(), SaleID: saleID, ProductID: prodA.ID,
		Quantity: dec("2"), UnitPrice: dec("10"), CostPrice: dec("4"),
	}).Error)
	require.NoError(t, db.Create(&SaleItemModel{
		ID: uuid.New(), SaleID: saleID, ProductID: prodB.ID,
		Quantity: dec("1"), UnitPrice: dec("50"), CostPrice: dec("20"),
	}).Error)

	rows, err := repo.TopProducts(ctx, windowOver(at.Add(-time.Hour), at.Add(time.Hour)), 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Latte", rows[0].Name)
	assert.True(t, rows[0].Revenue.Equal(dec("50")))
	assert.True(t, rows[0].Profit.Equal(dec("30")))
	assert.True(t, rows[0].ProfitMargin.Equal(dec("60")))

	assert.Equal(t, "Espresso", rows[1].Name)
	assert.True(t, rows[1].Revenue.Equal(dec("20")))

	top1, err := repo.TopProducts(ctx, windowOver(at.Add(-time.Hour), at.Add(time.Hour)), 1)
	require.NoError(t, err)
	require.Len(t, top1, 1)
	assert.Equal(t, "Latte", top1[0].Name)
}

func TestTopCustomersSkipsAnonymous(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.UTC)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	known := CustomerModel{ID: uuid.New(), Name: "Amal"}
	require.NoError(t, db.Create(&known).Error)
	unknown := uuid.New()

	seedSale(t, db, SaleModel{TotalAmount: dec("80"), CustomerID: &known.ID, CreatedAt: at})
	seedSale(t, db, SaleModel{TotalAmount: dec("20"), CustomerID: &known.ID, CreatedAt: at})
	seedSale(t, db, SaleModel{TotalAmount: dec("500"), CustomerID: &unknown, CreatedAt: at})
	seedSale(t, db, SaleModel{TotalAmount: dec("999"), CreatedAt: at}) // anonymous

	rows, err := repo.TopCustomers(context.Background(), windowOver(at.Add(-time.Hour), at.Add(time.Hour)), 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, unknown.String(), rows[0].Name, "missing customer row degrades to the id")
	assert.True(t, rows[0].Spend.Equal(dec("500")))

	assert.Equal(t, "Amal", rows[1].Name)
	assert.Equal(t, int64(2), rows[1].OrderCount)
	assert.True(t, rows[1].Spend.Equal(dec("100")))
	assert.True(t, rows[1].AvgOrder.Equal(dec("50")))
}

func TestCategorySharesWithUncategorizedBucket(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.UTC)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	saleID := uuid.New()
	seedSale(t, db, SaleModel{ID: saleID, TotalAmount: dec("100"), CreatedAt: at})

	cat := CategoryModel{ID: uuid.New(), Name: "Drinks"}
	require.NoError(t, db.Create(&cat).Error)
	inCat := ProductModel{ID: uuid.New(), Name: "Espresso", CategoryID: &cat.ID}
	noCat := ProductModel{ID: uuid.New(), Name: "Mystery"}
	require.NoError(t, db.Create(&inCat).Error)
	require.NoError(t, db.Create(&noCat).Error)

	require.NoError(t, db.Create(&SaleItemModel{
		ID: uuid.New(), SaleID: saleID, ProductID: inCat.ID,
		Quantity: dec("1"), UnitPrice: dec("60"),
	}).Error)
	require.NoError(t, db.Create(&SaleItemModel{
		ID: uuid.New(), SaleID: saleID, ProductID: noCat.ID,
		Quantity: dec("1"), UnitPrice: dec("40"),
	}).Error)

	shares, err := repo.CategoryShares(context.Background(), windowOver(at.Add(-time.Hour), at.Add(time.Hour)))
	require.NoError(t, err)
	require.Len(t, shares, 2)

	byID := map[string]analytics.CategoryShare{}
	for _, s := range shares {
		byID[s.CategoryID] = s
	}
	drinks := byID[cat.ID.String()]
	assert.Equal(t, "Drinks", drinks.Name)
	assert.True(t, drinks.Revenue.Equal(dec("60")))
	assert.True(t, drinks.Percent.Equal(dec("60")))

	other := byID[analytics.UncategorizedID]
	assert.Equal(t, analytics.UncategorizedName, other.Name)
	assert.True(t, other.Revenue.Equal(dec("40")))
	assert.True(t, other.Percent.Equal(dec("40")))
}

func TestChannelBreakdownDefaultsToGround(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.UTC)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedSale(t, db, SaleModel{TotalAmount: dec("100"), Profit: ptr(dec("25")), CreatedAt: at})
	seedSale(t, db, SaleModel{TotalAmount: dec("50"), SaleChannel: "online", ShippingAmount: ptr(dec("7")), CreatedAt: at})
	seedSale(t, db, SaleModel{TotalAmount: dec("-20"), SaleChannel: "online", InvoiceType: "return", CreatedAt: at})

	breakdown, err := repo.ChannelBreakdown(context.Background(), windowOver(at.Add(-time.Hour), at.Add(time.Hour)))
	require.NoError(t, err)

	assert.True(t, breakdown.Ground.Total.Equal(dec("100")))
	assert.Equal(t, int64(1), breakdown.Ground.InvoiceCount)
	assert.True(t, breakdown.Ground.Shipping.IsZero())

	assert.True(t, breakdown.Online.Total.Equal(dec("30")))
	assert.Equal(t, int64(1), breakdown.Online.InvoiceCount)
	assert.Equal(t, int64(1), breakdown.Online.ReturnCount)
	assert.True(t, breakdown.Online.ReturnTotal.Equal(dec("20")))
	assert.True(t, breakdown.Online.Shipping.Equal(dec("7")))

	total := breakdown.Ground.Percent.Add(breakdown.Online.Percent)
	assert.True(t, total.Sub(dec("100")).Abs().LessThan(dec("0.01")))
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.UTC)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	oldest := uuid.New()
	newest := uuid.New()
	seedSale(t, db, SaleModel{ID: oldest, TotalAmount: dec("1"), CreatedAt: at})
	seedSale(t, db, SaleModel{ID: newest, TotalAmount: dec("2"), CreatedAt: at.Add(time.Hour)})
	seedSale(t, db, SaleModel{TotalAmount: dec("3"), CreatedAt: at.Add(30 * time.Minute)})

	orders, err := repo.RecentOrders(context.Background(), windowOver(at.Add(-time.Hour), at.Add(2*time.Hour)), 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newest, orders[0].ID)
	assert.Equal(t, analytics.ChannelGround, orders[0].Channel)
}

func TestPurchaseTotal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDashboardQueryRepository(db, time.UTC)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&PurchaseModel{ID: uuid.New(), TotalAmount: dec("120"), CreatedAt: at}).Error)
	require.NoError(t, db.Create(&PurchaseModel{ID: uuid.New(), TotalAmount: dec("80"), CreatedAt: at.AddDate(0, 2, 0)}).Error)

	total, err := repo.PurchaseTotal(context.Background(), windowOver(at.Add(-time.Hour), at.Add(time.Hour)))
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("120")))
}
