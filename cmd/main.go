package main

import (
	"net/http"
	"time"

	"pos-service/internal/handler"
	mid "pos-service/internal/middleware"
	"pos-service/internal/service"
	"pos-service/pkg/config"
	"pos-service/pkg/database"
	"pos-service/pkg/jwtutil"
	"pos-service/pkg/logger"
	"pos-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration (reads .env if present)
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting pos-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	db := database.GetDB()
	saleService := service.NewSaleService(db)
	reportService := service.NewReportService(db)

	saleHandler := handler.NewSaleHandler(saleService)
	productHandler := handler.NewProductHandler(db, saleService, appConfig.Store.LowStockWarning)
	reportHandler := handler.NewReportHandler(reportService)

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Sale API routes - the checkout workflow
	saleAPI := e.Group("/api/sales", mid.AuthMiddleware)
	saleAPI.POST("", saleHandler.PostSale)
	saleAPI.GET("", saleHandler.ListSales)
	saleAPI.GET("/:id", saleHandler.GetSale)
	saleAPI.POST("/:id/void", saleHandler.VoidSale)

	// Product API routes - catalog and stock
	productAPI := e.Group("/api/products", mid.AuthMiddleware)
	productAPI.GET("", productHandler.ListProducts)
	productAPI.GET("/lookup", productHandler.LookupProduct)
	productAPI.GET("/export", productHandler.ExportProducts)
	productAPI.POST("/import", productHandler.ImportProducts)
	productAPI.GET("/:id", productHandler.GetProduct)
	productAPI.POST("", productHandler.CreateProduct)
	productAPI.PUT("/:id", productHandler.UpdateProduct)
	productAPI.DELETE("/:id", productHandler.DeleteProduct)
	productAPI.POST("/:id/refill", productHandler.RefillStock)

	// Report API routes
	reportAPI := e.Group("/api/reports", mid.AuthMiddleware)
	reportAPI.GET("/daily", reportHandler.DailyReport)
	reportAPI.GET("/monthly", reportHandler.MonthlyReport)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
