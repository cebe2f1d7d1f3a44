package handler

import (
	"errors"
	"net/http"
	"strconv"

	"pos-service/internal/middleware"
	"pos-service/internal/model"
	"pos-service/internal/service"
	"pos-service/pkg/logger"
	"pos-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleEntryRequest is one cart line as submitted by the till.
type SaleEntryRequest struct {
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

// SaleRequest defines the structure for sale posting requests
type SaleRequest struct {
	Items            []SaleEntryRequest `json:"items"`
	OrderDiscountPct decimal.Decimal    `json:"order_discount_pct"`
	CustomerPhone    string             `json:"customer_phone"`
	CustomerName     string             `json:"customer_name"`
}

// SaleHandler exposes the sale posting workflow over HTTP.
type SaleHandler struct {
	sales *service.SaleService
}

func NewSaleHandler(sales *service.SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// PostSale handles checkout: cart in, receipt-ready transaction out
func (h *SaleHandler) PostSale(c echo.Context) error {
	log := logger.FromContext(c)

	var req SaleRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	cashierID, ok := middleware.GetCashierIDFromContext(c)
	if !ok {
		log.Warn("Missing cashier identity on sale request")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing cashier identity"})
	}

	input := service.SaleInput{
		OrderDiscountPct: req.OrderDiscountPct,
		CashierID:        cashierID,
		CustomerPhone:    req.CustomerPhone,
		CustomerName:     req.CustomerName,
	}
	for _, item := range req.Items {
		input.Entries = append(input.Entries, service.CartEntry{
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			DiscountPct: item.DiscountPct,
		})
	}

	sale, err := h.sales.PostSale(c.Request().Context(), input)
	if err != nil {
		return h.saleError(c, err)
	}

	prometheus.RecordSalePosted(sale.GrandTotal.InexactFloat64())
	log.Info("Sale posted",
		zap.Uint("sale_id", sale.ID),
		zap.String("receipt_number", sale.ReceiptNumber),
		zap.Int("lines", len(sale.Lines)),
		zap.String("grand_total", sale.GrandTotal.String()))
	return c.JSON(http.StatusCreated, receiptResponse(sale))
}

// VoidSale handles reversing a completed sale
func (h *SaleHandler) VoidSale(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}

	cashierID, ok := middleware.GetCashierIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing cashier identity"})
	}

	sale, err := h.sales.VoidSale(c.Request().Context(), uint(id), cashierID)
	if err != nil {
		return h.saleError(c, err)
	}

	prometheus.RecordSaleVoided()
	log.Info("Sale voided",
		zap.Uint("sale_id", sale.ID),
		zap.String("receipt_number", sale.ReceiptNumber))
	return c.JSON(http.StatusOK, receiptResponse(sale))
}

// GetSale returns one sale with its lines and tax split, enough to
// print a receipt without further lookups
func (h *SaleHandler) GetSale(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}

	sale, err := h.sales.GetSale(c.Request().Context(), uint(id))
	if err != nil {
		return h.saleError(c, err)
	}

	log.Info("Sale retrieved", zap.Uint("sale_id", sale.ID))
	return c.JSON(http.StatusOK, receiptResponse(sale))
}

// ListSales returns paginated sale history, newest first
func (h *SaleHandler) ListSales(c echo.Context) error {
	log := logger.FromContext(c)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	sales, total, err := h.sales.ListSales(c.Request().Context(), page, pageSize)
	if err != nil {
		log.Error("Failed to list sales", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve sales"})
	}

	log.Info("Sales listed", zap.Int("count", len(sales)), zap.Int64("total", total))
	return c.JSON(http.StatusOK, echo.Map{
		"items": sales,
		"total": total,
	})
}

// saleError translates service errors into HTTP responses
func (h *SaleHandler) saleError(c echo.Context, err error) error {
	log := logger.FromContext(c)

	var notFound *service.ProductNotFoundError
	var badQty *service.InvalidQuantityError
	var badDiscount *service.InvalidDiscountError
	var noStock *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &badQty), errors.As(err, &badDiscount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.As(err, &noStock):
		prometheus.RecordInsufficientStock(noStock.SKU)
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     err.Error(),
			"sku":       noStock.SKU,
			"requested": noStock.Requested,
			"available": noStock.Available,
		})
	case errors.Is(err, service.ErrSaleNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyVoided):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		log.Error("Sale operation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sale could not be processed"})
	}
}

// receiptResponse shapes a transaction for the receipt printer,
// including the CGST/SGST display split per line.
func receiptResponse(t *model.Transaction) echo.Map {
	lines := make([]echo.Map, 0, len(t.Lines))
	for i := range t.Lines {
		l := &t.Lines[i]
		lines = append(lines, echo.Map{
			"sku":            l.SKU,
			"product_name":   l.ProductName,
			"quantity":       l.Quantity,
			"unit_price":     l.UnitPrice,
			"gst_rate":       l.GSTRate,
			"discount_pct":   l.DiscountPct,
			"taxable_amount": l.TaxableAmount,
			"tax_amount":     l.TaxAmount,
			"cgst_amount":    l.CGSTAmount(),
			"sgst_amount":    l.SGSTAmount(),
			"line_total":     l.LineTotal,
		})
	}
	resp := echo.Map{
		"id":                 t.ID,
		"receipt_number":     t.ReceiptNumber,
		"status":             t.Status,
		"cashier_id":         t.CashierID,
		"created_at":         t.CreatedAt,
		"lines":              lines,
		"subtotal":           t.Subtotal,
		"order_discount_pct": t.OrderDiscountPct,
		"total_tax":          t.TotalTax,
		"grand_total":        t.GrandTotal,
	}
	if t.Customer != nil {
		resp["customer"] = t.Customer
	}
	return resp
}
