package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"pos-service/internal/middleware"
	"pos-service/internal/service"
	"pos-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestPostSaleHandlerCreatesReceipt(t *testing.T) {
	db := setupTestDB(t)
	seedProduct(t, db, "SKU-1", "100.00", "80.00", "18.00", 10)
	h := NewSaleHandler(service.NewSaleService(db))
	e := echo.New()

	c, rec := newTestContext(t, e, http.MethodPost, "/api/sales",
		`{"items":[{"sku":"SKU-1","quantity":2}]}`)
	require.NoError(t, h.PostSale(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "completed", body["status"])
	require.NotEmpty(t, body["receipt_number"])
	require.InDelta(t, 200.0, body["subtotal"].(float64), 0.001)
	require.InDelta(t, 36.0, body["total_tax"].(float64), 0.001)
	require.InDelta(t, 236.0, body["grand_total"].(float64), 0.001)

	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	require.Equal(t, "SKU-1", line["sku"])
	require.InDelta(t, 18.0, line["cgst_amount"].(float64), 0.001)
	require.InDelta(t, 18.0, line["sgst_amount"].(float64), 0.001)
	require.InDelta(t, 236.0, line["line_total"].(float64), 0.001)
}

func TestPostSaleHandlerErrorMapping(t *testing.T) {
	db := setupTestDB(t)
	seedProduct(t, db, "SKU-1", "100.00", "80.00", "18.00", 1)
	h := NewSaleHandler(service.NewSaleService(db))
	e := echo.New()

	cases := []struct {
		name string
		body string
		code int
	}{
		{"empty cart", `{"items":[]}`, http.StatusBadRequest},
		{"zero quantity", `{"items":[{"sku":"SKU-1","quantity":0}]}`, http.StatusBadRequest},
		{"bad discount", `{"items":[{"sku":"SKU-1","quantity":1,"discount_pct":150}]}`, http.StatusBadRequest},
		{"unknown sku", `{"items":[{"sku":"NOPE","quantity":1}]}`, http.StatusNotFound},
		{"insufficient stock", `{"items":[{"sku":"SKU-1","quantity":5}]}`, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t, e, http.MethodPost, "/api/sales", tc.body)
			require.NoError(t, h.PostSale(c))
			require.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestPostSaleHandlerInsufficientStockBody(t *testing.T) {
	db := setupTestDB(t)
	seedProduct(t, db, "SKU-1", "100.00", "80.00", "18.00", 2)
	h := NewSaleHandler(service.NewSaleService(db))
	e := echo.New()

	c, rec := newTestContext(t, e, http.MethodPost, "/api/sales",
		`{"items":[{"sku":"SKU-1","quantity":5}]}`)
	require.NoError(t, h.PostSale(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "SKU-1", body["sku"])
	require.EqualValues(t, 5, body["requested"])
	require.EqualValues(t, 2, body["available"])
}

func TestVoidSaleHandler(t *testing.T) {
	db := setupTestDB(t)
	seedProduct(t, db, "SKU-1", "100.00", "80.00", "18.00", 10)
	h := NewSaleHandler(service.NewSaleService(db))
	e := echo.New()

	c, rec := newTestContext(t, e, http.MethodPost, "/api/sales",
		`{"items":[{"sku":"SKU-1","quantity":3}]}`)
	require.NoError(t, h.PostSale(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	saleID := strconv.Itoa(int(decodeBody(t, rec)["id"].(float64)))

	c, rec = newTestContext(t, e, http.MethodPost, "/api/sales/"+saleID+"/void", "")
	c.SetParamNames("id")
	c.SetParamValues(saleID)
	require.NoError(t, h.VoidSale(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "voided", decodeBody(t, rec)["status"])

	// voiding again conflicts
	c, rec = newTestContext(t, e, http.MethodPost, "/api/sales/"+saleID+"/void", "")
	c.SetParamNames("id")
	c.SetParamValues(saleID)
	require.NoError(t, h.VoidSale(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetSaleHandlerNotFound(t *testing.T) {
	db := setupTestDB(t)
	h := NewSaleHandler(service.NewSaleService(db))
	e := echo.New()

	c, rec := newTestContext(t, e, http.MethodGet, "/api/sales/999", "")
	c.SetParamNames("id")
	c.SetParamValues("999")
	require.NoError(t, h.GetSale(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSalesHandler(t *testing.T) {
	db := setupTestDB(t)
	seedProduct(t, db, "SKU-1", "100.00", "80.00", "18.00", 10)
	h := NewSaleHandler(service.NewSaleService(db))
	e := echo.New()

	for i := 0; i < 2; i++ {
		c, rec := newTestContext(t, e, http.MethodPost, "/api/sales",
			`{"items":[{"sku":"SKU-1","quantity":1}]}`)
		require.NoError(t, h.PostSale(c))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	c, rec := newTestContext(t, e, http.MethodGet, "/api/sales?page=1&page_size=10", "")
	require.NoError(t, h.ListSales(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.EqualValues(t, 2, body["total"])
	require.Len(t, body["items"].([]any), 2)
}

func TestPostSaleRequiresBearerToken(t *testing.T) {
	db := setupTestDB(t)
	seedProduct(t, db, "SKU-1", "100.00", "80.00", "18.00", 10)
	h := NewSaleHandler(service.NewSaleService(db))

	e := echo.New()
	e.POST("/api/sales", h.PostSale, middleware.AuthMiddleware)

	payload := `{"items":[{"sku":"SKU-1","quantity":1}]}`

	// no token
	req := httptest.NewRequest(http.MethodPost, "/api/sales", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// garbage token
	req = httptest.NewRequest(http.MethodPost, "/api/sales", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid token carries the cashier ID through to the sale
	token, err := jwtutil.GenerateToken("cashier@store.local", 7, "cashier")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/sales", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.EqualValues(t, 7, decodeBody(t, rec)["cashier_id"])
}
