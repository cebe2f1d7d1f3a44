package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/model"
	"pos-service/prometheus"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// money rounds to the currency minor unit with banker's rounding.
func money(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// CartEntry is one scanned item: SKU, quantity and an optional
// line discount percentage.
type CartEntry struct {
	SKU         string
	Quantity    int
	DiscountPct decimal.Decimal
}

// SaleInput is a validated checkout request.
type SaleInput struct {
	Entries          []CartEntry
	OrderDiscountPct decimal.Decimal
	CashierID        uint
	CustomerPhone    string
	CustomerName     string
}

// SaleService posts and voids point-of-sale transactions. All stock
// checks, decrements and transaction inserts for one sale run inside a
// single database transaction, so a failed sale leaves no trace.
type SaleService struct {
	db *gorm.DB
}

func NewSaleService(db *gorm.DB) *SaleService {
	return &SaleService{db: db}
}

// PostSale converts a cart into a persisted, tax-computed,
// stock-decrementing transaction and returns it receipt-ready.
func (s *SaleService) PostSale(ctx context.Context, in SaleInput) (*model.Transaction, error) {
	if len(in.Entries) == 0 {
		return nil, ErrEmptyCart
	}
	for _, e := range in.Entries {
		if e.Quantity <= 0 {
			return nil, &InvalidQuantityError{SKU: e.SKU, Quantity: e.Quantity}
		}
		if e.DiscountPct.IsNegative() || e.DiscountPct.GreaterThan(hundred) {
			return nil, &InvalidDiscountError{SKU: e.SKU, Pct: e.DiscountPct.String()}
		}
	}
	if in.OrderDiscountPct.IsNegative() || in.OrderDiscountPct.GreaterThan(hundred) {
		return nil, &InvalidDiscountError{Pct: in.OrderDiscountPct.String()}
	}

	defer prometheus.TrackDBOperation("post_sale")(time.Now())

	var posted *model.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Resolve every SKU and total the requested quantity per product
		// (the same SKU may be scanned more than once).
		products := make(map[string]*model.Product, len(in.Entries))
		requested := make(map[string]int, len(in.Entries))
		var order []string
		for _, e := range in.Entries {
			if _, ok := products[e.SKU]; !ok {
				var p model.Product
				err := tx.Where("sku = ? AND is_active = ?", e.SKU, true).First(&p).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &ProductNotFoundError{SKU: e.SKU}
				}
				if err != nil {
					return fmt.Errorf("look up product %s: %w", e.SKU, err)
				}
				products[e.SKU] = &p
				order = append(order, e.SKU)
			}
			requested[e.SKU] += e.Quantity
		}

		// Pre-validation pass: every line must be coverable before any
		// stock is touched.
		for _, sku := range order {
			if requested[sku] > products[sku].StockQty {
				return &InsufficientStockError{
					SKU:       sku,
					Requested: requested[sku],
					Available: products[sku].StockQty,
				}
			}
		}

		// Per-line math, rounded once per line.
		var lines []model.TransactionLine
		subtotal, totalTax, profit := decimal.Zero, decimal.Zero, decimal.Zero
		for _, e := range in.Entries {
			p := products[e.SKU]
			qty := decimal.NewFromInt(int64(e.Quantity))
			lineSubtotal := p.UnitPrice.Mul(qty)
			lineDiscount := money(lineSubtotal.Mul(e.DiscountPct).Div(hundred))
			taxable := lineSubtotal.Sub(lineDiscount)
			tax := money(taxable.Mul(p.GSTRate).Div(hundred))
			lines = append(lines, model.TransactionLine{
				ProductID:     p.ID,
				SKU:           p.SKU,
				ProductName:   p.Name,
				Quantity:      e.Quantity,
				UnitPrice:     p.UnitPrice,
				GSTRate:       p.GSTRate,
				DiscountPct:   money(e.DiscountPct),
				TaxableAmount: taxable,
				TaxAmount:     tax,
				LineTotal:     taxable.Add(tax),
			})
			subtotal = subtotal.Add(taxable)
			totalTax = totalTax.Add(tax)
			profit = profit.Add(money(p.UnitPrice.Sub(p.CostPrice).Mul(qty).Sub(lineDiscount)))
		}

		// Order-level discount reduces the taxable base; tax and profit
		// scale proportionally (single re-round at the aggregate level).
		if in.OrderDiscountPct.IsPositive() && subtotal.IsPositive() {
			discountAmount := money(subtotal.Mul(in.OrderDiscountPct).Div(hundred))
			factor := subtotal.Sub(discountAmount).Div(subtotal)
			subtotal = subtotal.Sub(discountAmount)
			totalTax = money(totalTax.Mul(factor))
			profit = money(profit.Mul(factor))
		}
		grandTotal := subtotal.Add(totalTax)

		customerID, err := s.resolveCustomer(tx, in.CustomerPhone, in.CustomerName)
		if err != nil {
			return err
		}

		// Conditional decrement: the guard makes check-then-act
		// overdraws impossible even under concurrent checkouts.
		for _, sku := range order {
			p := products[sku]
			qty := requested[sku]
			res := tx.Model(&model.Product{}).
				Where("id = ? AND stock_qty >= ?", p.ID, qty).
				Update("stock_qty", gorm.Expr("stock_qty - ?", qty))
			if res.Error != nil {
				return fmt.Errorf("decrement stock for %s: %w", sku, res.Error)
			}
			if res.RowsAffected == 0 {
				// A concurrent sale won the remaining stock after our
				// pre-validation read.
				var current model.Product
				if err := tx.Where("id = ?", p.ID).First(&current).Error; err == nil {
					return &InsufficientStockError{SKU: sku, Requested: qty, Available: current.StockQty}
				}
				return &InsufficientStockError{SKU: sku, Requested: qty, Available: 0}
			}
		}

		t := &model.Transaction{
			ReceiptNumber:    uuid.New().String(),
			Status:           model.StatusCompleted,
			Lines:            lines,
			CashierID:        in.CashierID,
			CustomerID:       customerID,
			Subtotal:         subtotal,
			OrderDiscountPct: money(in.OrderDiscountPct),
			TotalTax:         totalTax,
			GrandTotal:       grandTotal,
			ProfitAmount:     profit,
		}
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}

		for _, sku := range order {
			movement := model.StockMovement{
				ProductID:     products[sku].ID,
				ChangeQty:     -requested[sku],
				Reason:        model.MovementSale,
				TransactionID: &t.ID,
				StaffID:       in.CashierID,
				Note:          "Receipt " + t.ReceiptNumber,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("record stock movement for %s: %w", sku, err)
			}
		}

		posted = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(posted.Lines))
	for _, l := range posted.Lines {
		ids = append(ids, l.ProductID)
	}
	s.publishInventory(ctx, ids)
	return posted, nil
}

// VoidSale reverses the stock decrements of a completed sale and marks
// it voided. The record is kept for the audit trail.
func (s *SaleService) VoidSale(ctx context.Context, id uint, staffID uint) (*model.Transaction, error) {
	defer prometheus.TrackDBOperation("void_sale")(time.Now())

	var voided *model.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.Transaction
		err := tx.Preload("Lines").First(&t, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSaleNotFound
		}
		if err != nil {
			return fmt.Errorf("load sale %d: %w", id, err)
		}
		if t.Status == model.StatusVoided {
			return ErrAlreadyVoided
		}

		// Guarded flip before any stock moves: only one void of a
		// completed sale can win, even when two run concurrently.
		res := tx.Model(&model.Transaction{}).
			Where("id = ? AND status = ?", t.ID, model.StatusCompleted).
			Update("status", model.StatusVoided)
		if res.Error != nil {
			return fmt.Errorf("mark sale voided: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyVoided
		}

		for _, line := range t.Lines {
			res := tx.Model(&model.Product{}).
				Where("id = ?", line.ProductID).
				Update("stock_qty", gorm.Expr("stock_qty + ?", line.Quantity))
			if res.Error != nil {
				return fmt.Errorf("restore stock for %s: %w", line.SKU, res.Error)
			}
			movement := model.StockMovement{
				ProductID:     line.ProductID,
				ChangeQty:     line.Quantity,
				Reason:        model.MovementVoid,
				TransactionID: &t.ID,
				StaffID:       staffID,
				Note:          "Void receipt " + t.ReceiptNumber,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("record void movement for %s: %w", line.SKU, err)
			}
		}

		t.Status = model.StatusVoided
		voided = &t
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(voided.Lines))
	for _, l := range voided.Lines {
		ids = append(ids, l.ProductID)
	}
	s.publishInventory(ctx, ids)
	return voided, nil
}

// GetSale loads one sale with its lines and customer, enough to render
// a receipt without further lookups.
func (s *SaleService) GetSale(ctx context.Context, id uint) (*model.Transaction, error) {
	var t model.Transaction
	err := s.db.WithContext(ctx).Preload("Lines").Preload("Customer").First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load sale %d: %w", id, err)
	}
	return &t, nil
}

// ListSales returns sales newest first with their lines.
func (s *SaleService) ListSales(ctx context.Context, page, pageSize int) ([]model.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var sales []model.Transaction
	var total int64

	q := s.db.WithContext(ctx).Model(&model.Transaction{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Lines").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sales).Error
	return sales, total, err
}

// RefillStock adds quantity to a product's stock and writes the
// matching ledger row in one transaction.
func (s *SaleService) RefillStock(ctx context.Context, productID uint, qty int, staffID uint, note string) (*model.Product, error) {
	if qty <= 0 {
		return nil, &InvalidQuantityError{Quantity: qty}
	}

	defer prometheus.TrackDBOperation("refill_stock")(time.Now())

	var refilled *model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Product
		err := tx.First(&p, productID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ProductNotFoundError{SKU: fmt.Sprintf("id=%d", productID)}
		}
		if err != nil {
			return fmt.Errorf("load product %d: %w", productID, err)
		}
		if err := tx.Model(&p).Update("stock_qty", gorm.Expr("stock_qty + ?", qty)).Error; err != nil {
			return fmt.Errorf("refill stock for %s: %w", p.SKU, err)
		}
		movement := model.StockMovement{
			ProductID: p.ID,
			ChangeQty: qty,
			Reason:    model.MovementRefill,
			StaffID:   staffID,
			Note:      note,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("record refill movement for %s: %w", p.SKU, err)
		}
		p.StockQty += qty
		refilled = &p
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.UpdateProductInventory(refilled.SKU, refilled.Name, float64(refilled.StockQty))
	return refilled, nil
}

// publishInventory refreshes the inventory gauge for the given products
// with their committed stock levels.
func (s *SaleService) publishInventory(ctx context.Context, ids []uint) {
	var products []model.Product
	if err := s.db.WithContext(ctx).Find(&products, ids).Error; err != nil {
		return
	}
	for _, p := range products {
		prometheus.UpdateProductInventory(p.SKU, p.Name, float64(p.StockQty))
	}
}

func (s *SaleService) resolveCustomer(tx *gorm.DB, phone, name string) (*uint, error) {
	if phone == "" {
		return nil, nil
	}
	var cust model.Customer
	err := tx.Where("phone = ?", phone).First(&cust).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if name == "" {
			name = "Customer"
		}
		cust = model.Customer{Name: name, Phone: phone}
		if err := tx.Create(&cust).Error; err != nil {
			return nil, fmt.Errorf("create customer %s: %w", phone, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("look up customer %s: %w", phone, err)
	}
	return &cust.ID, nil
}
