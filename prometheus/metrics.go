package prometheus

import (
	"time"

	"pos-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Sale metrics
	SalesPostedCounter prometheus.Counter
	SalesVoidedCounter prometheus.Counter
	SaleAmountCounter  prometheus.Counter

	// Stock metrics
	InsufficientStockCounter prometheus.CounterVec
	ProductInventoryGauge    prometheus.GaugeVec

	// Product metrics
	ProductOperationsCounter prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Sale metrics
	SalesPostedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_sales_posted_total",
			Help: "Total number of completed sales transactions",
		},
	)

	SalesVoidedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_sales_voided_total",
			Help: "Total number of voided sales transactions",
		},
	)

	SaleAmountCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_sale_amount_total",
			Help: "Cumulative grand total of completed sales",
		},
	)

	// Stock metrics
	InsufficientStockCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_insufficient_stock_total",
			Help: "Total number of sales rejected for insufficient stock",
		},
		[]string{"sku"},
	)

	ProductInventoryGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_product_inventory",
			Help: "Current inventory level for products",
		},
		[]string{"sku", "product_name"},
	)

	// Product metrics
	ProductOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_product_operations_total",
			Help: "Total number of product catalog operations",
		},
		[]string{"operation"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordSalePosted increments the sale counters with the sale's grand total
func RecordSalePosted(grandTotal float64) {
	SalesPostedCounter.Inc()
	SaleAmountCounter.Add(grandTotal)
}

// RecordSaleVoided increments the voided sale counter
func RecordSaleVoided() {
	SalesVoidedCounter.Inc()
}

// RecordInsufficientStock increments the rejection counter for a SKU
func RecordInsufficientStock(sku string) {
	InsufficientStockCounter.WithLabelValues(sku).Inc()
}

// UpdateProductInventory updates the gauge for product inventory
func UpdateProductInventory(sku string, productName string, count float64) {
	ProductInventoryGauge.WithLabelValues(sku, productName).Set(count)
}

// RecordProductOperation increments the counter for product operations
func RecordProductOperation(operation string) {
	ProductOperationsCounter.WithLabelValues(operation).Inc()
}
