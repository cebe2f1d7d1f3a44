package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product master data. UnitPrice and CostPrice are
// selling and purchase prices; GSTRate is the combined GST percentage
// (receipts display the CGST/SGST halves).
type Product struct {
	ID        uint            `json:"id" gorm:"primarykey"`
	SKU       string          `json:"sku" gorm:"type:varchar(60);unique;not null"`
	Barcode   *string         `json:"barcode,omitempty" gorm:"type:varchar(120);unique"`
	Name      string          `json:"name" gorm:"type:varchar(200);not null"`
	Category  string          `json:"category" gorm:"type:varchar(120);index"`
	Unit      string          `json:"unit" gorm:"type:varchar(30);default:'pcs'"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	CostPrice decimal.Decimal `json:"cost_price" gorm:"type:decimal(10,2);not null"`
	GSTRate   decimal.Decimal `json:"gst_rate" gorm:"type:decimal(5,2);not null"`
	StockQty  int             `json:"stock_qty" gorm:"not null;default:0"`
	IsActive  bool            `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"deleted_at,omitempty" gorm:"index"`
}
