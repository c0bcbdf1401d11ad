package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleModel maps the sales header table.
type SaleModel struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	TotalAmount    decimal.Decimal  `gorm:"column:total_amount;type:decimal(20,4);not null;default:0"`
	Profit         *decimal.Decimal `gorm:"column:profit;type:decimal(20,4)"`
	CustomerID     *uuid.UUID       `gorm:"column:customer_id;type:uuid"`
	CashierID      *uuid.UUID       `gorm:"column:cashier_id;type:uuid"`
	BranchID       *uuid.UUID       `gorm:"column:branch_id;type:uuid"`
	TillID         *uuid.UUID       `gorm:"column:till_id;type:uuid"`
	InvoiceType    string           `gorm:"column:invoice_type;size:20;not null;default:normal"`
	SaleChannel    string           `gorm:"column:sale_channel;size:20"`
	ShippingAmount *decimal.Decimal `gorm:"column:shipping_amount;type:decimal(20,4)"`
	CreatedAt      time.Time        `gorm:"column:created_at;not null;index"`
}

func (SaleModel) TableName() string {
	return "sales"
}

// SaleItemModel maps the sale line-item table.
type SaleItemModel struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:decimal(20,4);not null;default:0"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(20,4);not null;default:0"`
	CostPrice decimal.Decimal `gorm:"column:cost_price;type:decimal(20,4);not null;default:0"`
}

func (SaleItemModel) TableName() string {
	return "sale_items"
}

// ProductModel maps the product catalog table.
type ProductModel struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name       string     `gorm:"column:name;size:255;not null"`
	CategoryID *uuid.UUID `gorm:"column:category_id;type:uuid"`
}

func (ProductModel) TableName() string {
	return "products"
}

// CategoryModel maps the category table.
type CategoryModel struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name string    `gorm:"column:name;size:255;not null"`
}

func (CategoryModel) TableName() string {
	return "categories"
}

// CustomerModel maps the customer table.
type CustomerModel struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name string    `gorm:"column:name;size:255;not null"`
}

func (CustomerModel) TableName() string {
	return "customers"
}

// CustomerGroupMemberModel maps customer-group membership rows.
type CustomerGroupMemberModel struct {
	GroupID    uuid.UUID `gorm:"column:group_id;type:uuid;primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;primaryKey"`
}

func (CustomerGroupMemberModel) TableName() string {
	return "customer_group_members"
}

// PurchaseModel maps supplier purchase rows used for the capital slice.
type PurchaseModel struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(20,4);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null;index"`
}

func (PurchaseModel) TableName() string {
	return "purchases"
}
