package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceType distinguishes regular invoices from returns
type InvoiceType string

const (
	InvoiceTypeNormal InvoiceType = "normal"
	InvoiceTypeReturn InvoiceType = "return"
)

// SaleChannel is the channel a sale was made through
type SaleChannel string

const (
	// ChannelGround is an in-person sale. It is the default channel:
	// a record with no channel value is treated as ground.
	ChannelGround SaleChannel = "ground"
	ChannelOnline SaleChannel = "online"
)

// SaleRecord is one sales header row as fetched for a time window.
// The engine treats it as read-only input; optional dimensions are
// nil when the source row has no value.
type SaleRecord struct {
	ID          uuid.UUID
	TotalAmount decimal.Decimal
	Profit      decimal.Decimal
	CustomerID  *uuid.UUID
	CashierID   *uuid.UUID
	BranchID    *uuid.UUID
	TillID      *uuid.UUID
	CreatedAt   time.Time
	InvoiceType InvoiceType
	Channel     SaleChannel
	Shipping    decimal.Decimal
}

// SaleItemRecord is one line-item row joined to its product and category.
// Many items belong to one SaleRecord via SaleID; the parent row may
// arrive in a separate round trip.
type SaleItemRecord struct {
	SaleID       uuid.UUID
	ProductID    uuid.UUID
	ProductName  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	CostPrice    decimal.Decimal
	CategoryID   *uuid.UUID
	CategoryName string
}

// Revenue is quantity x unit price for this line.
func (i SaleItemRecord) Revenue() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// LineProfit is quantity x (unit price - cost price) for this line.
func (i SaleItemRecord) LineProfit() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice.Sub(i.CostPrice))
}

// Normalized returns a copy with source-side gaps defaulted: empty
// invoice type becomes normal, empty channel becomes ground. Defaulting
// happens once at the ingestion boundary so downstream arithmetic never
// has to guard against missing enum values.
func (s SaleRecord) Normalized() SaleRecord {
	if s.InvoiceType == "" {
		s.InvoiceType = InvoiceTypeNormal
	}
	if s.Channel == "" {
		s.Channel = ChannelGround
	}
	return s
}

// IsReturn reports whether the sale is a return invoice.
func (s SaleRecord) IsReturn() bool {
	return s.InvoiceType == InvoiceTypeReturn
}
