package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction status values
const (
	StatusCompleted = "completed"
	StatusVoided    = "voided"
)

// Transaction is a completed point-of-sale checkout. It is created
// atomically with its lines and the matching stock decrements; voiding
// flips the status and restores stock but never deletes the record.
type Transaction struct {
	ID               uint              `json:"id" gorm:"primarykey"`
	ReceiptNumber    string            `json:"receipt_number" gorm:"type:varchar(36);unique;not null"`
	Status           string            `json:"status" gorm:"type:varchar(20);not null;index"`
	Lines            []TransactionLine `json:"lines" gorm:"foreignKey:TransactionID"`
	CashierID        uint              `json:"cashier_id" gorm:"not null;index"`
	CustomerID       *uint             `json:"customer_id,omitempty" gorm:"index"`
	Customer         *Customer         `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Subtotal         decimal.Decimal   `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	OrderDiscountPct decimal.Decimal   `json:"order_discount_pct" gorm:"type:decimal(5,2);not null;default:0"`
	TotalTax         decimal.Decimal   `json:"total_tax" gorm:"type:decimal(12,2);not null"`
	GrandTotal       decimal.Decimal   `json:"grand_total" gorm:"type:decimal(12,2);not null"`
	ProfitAmount     decimal.Decimal   `json:"profit_amount" gorm:"type:decimal(12,2);not null"`
	CreatedAt        time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TransactionLine captures one product entry at the moment of sale.
// Prices and rates are copied from the product so historical receipts
// stay stable when the catalog changes. Immutable once created.
type TransactionLine struct {
	ID            uint            `json:"id" gorm:"primarykey"`
	TransactionID uint            `json:"transaction_id" gorm:"not null;index"`
	ProductID     uint            `json:"product_id" gorm:"not null;index"`
	SKU           string          `json:"sku" gorm:"type:varchar(60);not null"`
	ProductName   string          `json:"product_name" gorm:"type:varchar(200);not null"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	GSTRate       decimal.Decimal `json:"gst_rate" gorm:"type:decimal(5,2);not null"`
	DiscountPct   decimal.Decimal `json:"discount_pct" gorm:"type:decimal(5,2);not null;default:0"`
	TaxableAmount decimal.Decimal `json:"taxable_amount" gorm:"type:decimal(12,2);not null"`
	TaxAmount     decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null"`
	LineTotal     decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CGSTAmount returns the central half of the line tax, rounded to the
// currency minor unit with banker's rounding.
func (l *TransactionLine) CGSTAmount() decimal.Decimal {
	return l.TaxAmount.Div(decimal.NewFromInt(2)).RoundBank(2)
}

// SGSTAmount returns the state half of the line tax. Computed as the
// remainder so the two halves always sum to TaxAmount exactly.
func (l *TransactionLine) SGSTAmount() decimal.Decimal {
	return l.TaxAmount.Sub(l.CGSTAmount())
}

// StockMovement reasons
const (
	MovementSale   = "sale"
	MovementVoid   = "void"
	MovementRefill = "refill"
)

// StockMovement is an append-only ledger of inventory changes. Sales
// write negative deltas, voids and refills write positive ones.
type StockMovement struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	ProductID     uint      `json:"product_id" gorm:"not null;index"`
	ChangeQty     int       `json:"change_qty" gorm:"not null"`
	Reason        string    `json:"reason" gorm:"type:varchar(30);not null;index"`
	TransactionID *uint     `json:"transaction_id,omitempty" gorm:"index"`
	StaffID       uint      `json:"staff_id" gorm:"not null"`
	Note          string    `json:"note" gorm:"type:varchar(255)"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}
