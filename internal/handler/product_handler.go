package handler

import (
	"bytes"
	"encoding/csv"
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
	"gorm.io/gorm"
)

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	SKU       string          `json:"sku"`
	Barcode   *string         `json:"barcode"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	CostPrice decimal.Decimal `json:"cost_price"`
	GSTRate   decimal.Decimal `json:"gst_rate"`
	StockQty  int             `json:"stock_qty"`
	IsActive  bool            `json:"is_active"`
}

// RefillRequest defines the structure for stock refill requests
type RefillRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

// ProductHandler exposes the product catalog over HTTP. lowStock is
// the threshold for the low-stock list filter.
type ProductHandler struct {
	db       *gorm.DB
	sales    *service.SaleService
	lowStock int
}

func NewProductHandler(db *gorm.DB, sales *service.SaleService, lowStock int) *ProductHandler {
	return &ProductHandler{db: db, sales: sales, lowStock: lowStock}
}

func (r *ProductRequest) validate() error {
	if r.SKU == "" || r.Name == "" {
		return errors.New("sku and name are required")
	}
	if r.UnitPrice.IsNegative() || r.CostPrice.IsNegative() || r.GSTRate.IsNegative() {
		return errors.New("prices and gst rate must be non-negative")
	}
	if r.StockQty < 0 {
		return errors.New("stock quantity must be non-negative")
	}
	return nil
}

// ListProducts handles retrieving all products with optional filtering
func (h *ProductHandler) ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	query := h.db

	// Filter by active status if specified
	isActive := c.QueryParam("is_active")
	if isActive != "" {
		active, err := strconv.ParseBool(isActive)
		if err == nil {
			query = query.Where("is_active = ?", active)
		} else {
			log.Warn("Invalid is_active parameter", zap.String("value", isActive), zap.Error(err))
		}
	}

	// Filter by category if specified
	if category := c.QueryParam("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	// Filter to products at or below the reorder threshold
	if lowStock := c.QueryParam("low_stock"); lowStock != "" {
		if low, err := strconv.ParseBool(lowStock); err == nil && low {
			query = query.Where("stock_qty <= ?", h.lowStock)
		}
	}

	var products []model.Product
	result := query.Order("name").Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve products"})
	}

	log.Info("Products retrieved successfully", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// LookupProduct resolves a scanned barcode or typed SKU to a product
func (h *ProductHandler) LookupProduct(c echo.Context) error {
	log := logger.FromContext(c)

	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code query parameter is required"})
	}

	var product model.Product
	result := h.db.Where("barcode = ? OR sku = ?", code, code).First(&product)
	if result.Error != nil {
		log.Warn("Product not found by barcode/SKU", zap.String("code", code))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	log.Info("Product resolved",
		zap.String("code", code),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusOK, product)
}

// GetProduct handles retrieving a single product by ID
func (h *ProductHandler) GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var product model.Product
	result := h.db.First(&product, id)
	if result.Error != nil {
		log.Error("Product not found", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	return c.JSON(http.StatusOK, product)
}

// CreateProduct handles creating a new product
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// Check if product with SKU already exists
	var count int64
	h.db.Model(&model.Product{}).Where("sku = ?", req.SKU).Count(&count)
	if count > 0 {
		log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
		return c.JSON(http.StatusConflict, echo.Map{"error": "Product with this SKU already exists"})
	}

	product := model.Product{
		SKU:       req.SKU,
		Barcode:   req.Barcode,
		Name:      req.Name,
		Category:  req.Category,
		Unit:      req.Unit,
		UnitPrice: req.UnitPrice,
		CostPrice: req.CostPrice,
		GSTRate:   req.GSTRate,
		StockQty:  req.StockQty,
		IsActive:  req.IsActive,
	}
	if product.Unit == "" {
		product.Unit = "pcs"
	}

	result := h.db.Create(&product)
	if result.Error != nil {
		log.Error("Failed to create product",
			zap.String("sku", req.SKU),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create product"})
	}

	prometheus.RecordProductOperation("create")
	prometheus.UpdateProductInventory(product.SKU, product.Name, float64(product.StockQty))
	log.Info("Product created successfully",
		zap.Uint("product_id", product.ID),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles updating an existing product
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var product model.Product
	result := h.db.First(&product, id)
	if result.Error != nil {
		log.Error("Product not found for update", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	// Check if SKU is changed and if new SKU already exists
	if req.SKU != product.SKU {
		var count int64
		h.db.Model(&model.Product{}).Where("sku = ? AND id != ?", req.SKU, id).Count(&count)
		if count > 0 {
			log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
			return c.JSON(http.StatusConflict, echo.Map{"error": "Product with this SKU already exists"})
		}
	}

	product.SKU = req.SKU
	product.Barcode = req.Barcode
	product.Name = req.Name
	product.Category = req.Category
	if req.Unit != "" {
		product.Unit = req.Unit
	}
	product.UnitPrice = req.UnitPrice
	product.CostPrice = req.CostPrice
	product.GSTRate = req.GSTRate
	product.IsActive = req.IsActive

	// Stock is deliberately not writable here; sales decrement it and
	// refills add to it, each leaving a ledger row.
	result = h.db.Save(&product)
	if result.Error != nil {
		log.Error("Failed to update product", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update product"})
	}

	prometheus.RecordProductOperation("update")
	log.Info("Product updated successfully", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles soft-deleting a product
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var product model.Product
	if err := h.db.First(&product, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	}

	if err := h.db.Delete(&product).Error; err != nil {
		log.Error("Failed to delete product", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete product"})
	}

	prometheus.RecordProductOperation("delete")
	log.Info("Product deleted", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted"})
}

// RefillStock handles adding stock to a product
func (h *ProductHandler) RefillStock(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	var req RefillRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	staffID, ok := middleware.GetCashierIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing staff identity"})
	}

	product, err := h.sales.RefillStock(c.Request().Context(), uint(id), req.Quantity, staffID, req.Note)
	if err != nil {
		var badQty *service.InvalidQuantityError
		var notFound *service.ProductNotFoundError
		switch {
		case errors.As(err, &badQty):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.As(err, &notFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
		default:
			log.Error("Failed to refill stock", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to refill stock"})
		}
	}

	prometheus.RecordProductOperation("refill")
	log.Info("Stock refilled",
		zap.String("sku", product.SKU),
		zap.Int("quantity", req.Quantity),
		zap.Int("stock_qty", product.StockQty))
	return c.JSON(http.StatusOK, product)
}

var csvHeader = []string{"sku", "barcode", "name", "category", "unit_price", "cost_price", "gst_rate", "unit", "stock_qty"}

// ExportProducts streams the catalog as CSV
func (h *ProductHandler) ExportProducts(c echo.Context) error {
	log := logger.FromContext(c)

	var products []model.Product
	if err := h.db.Order("name").Find(&products).Error; err != nil {
		log.Error("Failed to export products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to export products"})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(csvHeader)
	for _, p := range products {
		barcode := ""
		if p.Barcode != nil {
			barcode = *p.Barcode
		}
		_ = w.Write([]string{
			p.SKU,
			barcode,
			p.Name,
			p.Category,
			p.UnitPrice.StringFixed(2),
			p.CostPrice.StringFixed(2),
			p.GSTRate.StringFixed(2),
			p.Unit,
			strconv.Itoa(p.StockQty),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to write CSV"})
	}

	prometheus.RecordProductOperation("export")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

// ImportProducts upserts catalog rows from an uploaded CSV file
func (h *ProductHandler) ImportProducts(c echo.Context) error {
	log := logger.FromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file upload is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not read uploaded file"})
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed CSV"})
	}
	if len(records) < 2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "CSV has no data rows"})
	}

	created, updated := 0, 0
	err = h.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range records[1:] {
			if len(row) < len(csvHeader) {
				continue
			}
			sku := row[0]
			if sku == "" {
				continue
			}

			unitPrice, err := decimal.NewFromString(row[4])
			if err != nil {
				continue
			}
			costPrice, err := decimal.NewFromString(row[5])
			if err != nil {
				continue
			}
			gstRate, err := decimal.NewFromString(row[6])
			if err != nil {
				continue
			}
			stockQty, err := strconv.Atoi(row[8])
			if err != nil || stockQty < 0 {
				continue
			}

			var barcode *string
			if row[1] != "" {
				b := row[1]
				barcode = &b
			}

			var existing model.Product
			lookupErr := tx.Where("sku = ?", sku).First(&existing).Error
			if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				product := model.Product{
					SKU:       sku,
					Barcode:   barcode,
					Name:      row[2],
					Category:  row[3],
					UnitPrice: unitPrice,
					CostPrice: costPrice,
					GSTRate:   gstRate,
					Unit:      row[7],
					StockQty:  stockQty,
					IsActive:  true,
				}
				if product.Name == "" {
					product.Name = sku
				}
				if product.Unit == "" {
					product.Unit = "pcs"
				}
				if err := tx.Create(&product).Error; err != nil {
					return err
				}
				created++
				continue
			}
			if lookupErr != nil {
				return lookupErr
			}

			if barcode != nil {
				existing.Barcode = barcode
			}
			if row[2] != "" {
				existing.Name = row[2]
			}
			if row[3] != "" {
				existing.Category = row[3]
			}
			if row[7] != "" {
				existing.Unit = row[7]
			}
			existing.UnitPrice = unitPrice
			existing.CostPrice = costPrice
			existing.GSTRate = gstRate
			existing.StockQty = stockQty
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to import products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to import products"})
	}

	prometheus.RecordProductOperation("import")
	log.Info("Products imported", zap.Int("created", created), zap.Int("updated", updated))
	return c.JSON(http.StatusOK, echo.Map{"created": created, "updated": updated})
}
