package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/retailpos/backoffice/internal/domain/analytics"
)

const defaultFetchPageSize = 1000

// SalesFeedRepository streams raw sale and line-item rows for in-process
// reduction. Fetches are paginated so a wide window does not hold one
// giant result set open.
type SalesFeedRepository struct {
	db       *gorm.DB
	pageSize int
}

func NewSalesFeedRepository(db *gorm.DB, pageSize int) *SalesFeedRepository {
	if pageSize <= 0 {
		pageSize = defaultFetchPageSize
	}
	return &SalesFeedRepository{db: db, pageSize: pageSize}
}

// FetchSales returns all sale headers whose created_at falls inside the window.
func (r *SalesFeedRepository) FetchSales(ctx context.Context, w analytics.Window) ([]analytics.SaleRecord, error) {
	var out []analytics.SaleRecord
	offset := 0
	for {
		var batch []SaleModel
		err := r.db.WithContext(ctx).
			Where("created_at >= ? AND created_at <= ?", w.Start, w.End).
			Order("created_at ASC, id ASC").
			Limit(r.pageSize).
			Offset(offset).
			Find(&batch).Error
		if err != nil {
			return nil, fmt.Errorf("fetch sales: %w", err)
		}
		for _, m := range batch {
			out = append(out, saleRecordFromModel(m))
		}
		if len(batch) < r.pageSize {
			return out, nil
		}
		offset += r.pageSize
	}
}

type itemJoinRow struct {
	SaleID       uuid.UUID       `gorm:"column:sale_id"`
	ProductID    uuid.UUID       `gorm:"column:product_id"`
	ProductName  string          `gorm:"column:product_name"`
	Quantity     decimal.Decimal `gorm:"column:quantity"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price"`
	CostPrice    decimal.Decimal `gorm:"column:cost_price"`
	CategoryID   *uuid.UUID      `gorm:"column:category_id"`
	CategoryName string          `gorm:"column:category_name"`
}

func (r itemJoinRow) toRecord() analytics.SaleItemRecord {
	return analytics.SaleItemRecord{
		SaleID:       r.SaleID,
		ProductID:    r.ProductID,
		ProductName:  r.ProductName,
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice,
		CostPrice:    r.CostPrice,
		CategoryID:   r.CategoryID,
		CategoryName: r.CategoryName,
	}
}

// FetchItems returns line items belonging to sales inside the window,
// joined with product and category names.
func (r *SalesFeedRepository) FetchItems(ctx context.Context, w analytics.Window) ([]analytics.SaleItemRecord, error) {
	var out []analytics.SaleItemRecord
	offset := 0
	for {
		var batch []itemJoinRow
		err := r.db.WithContext(ctx).
			Table("sale_items si").
			Select(`si.sale_id, si.product_id, COALESCE(p.name, '') AS product_name,
				si.quantity, si.unit_price, si.cost_price,
				p.category_id, COALESCE(c.name, '') AS category_name`).
			Joins("JOIN sales s ON s.id = si.sale_id").
			Joins("LEFT JOIN products p ON p.id = si.product_id").
			Joins("LEFT JOIN categories c ON c.id = p.category_id").
			Where("s.created_at >= ? AND s.created_at <= ?", w.Start, w.End).
			Order("si.id ASC").
			Limit(r.pageSize).
			Offset(offset).
			Scan(&batch).Error
		if err != nil {
			return nil, fmt.Errorf("fetch sale items: %w", err)
		}
		for _, row := range batch {
			out = append(out, row.toRecord())
		}
		if len(batch) < r.pageSize {
			return out, nil
		}
		offset += r.pageSize
	}
}

func saleRecordFromModel(m SaleModel) analytics.SaleRecord {
	rec := analytics.SaleRecord{
		ID:          m.ID,
		TotalAmount: m.TotalAmount,
		CustomerID:  m.CustomerID,
		CashierID:   m.CashierID,
		BranchID:    m.BranchID,
		TillID:      m.TillID,
		CreatedAt:   m.CreatedAt,
		InvoiceType: analytics.InvoiceType(m.InvoiceType),
		Channel:     analytics.SaleChannel(m.SaleChannel),
	}
	if m.Profit != nil {
		rec.Profit = *m.Profit
	}
	if m.ShippingAmount != nil {
		rec.Shipping = *m.ShippingAmount
	}
	return rec.Normalized()
}
