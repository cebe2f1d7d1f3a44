package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"pos-service/internal/service"
	"pos-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ReportHandler exposes the sales reporting queries.
type ReportHandler struct {
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// DailyReport returns totals for one calendar day (default today)
func (h *ReportHandler) DailyReport(c echo.Context) error {
	log := logger.FromContext(c)

	day := time.Now()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		day = parsed
	}

	summary, err := h.reports.DailySummary(c.Request().Context(), day)
	if err != nil {
		log.Error("Failed to build daily report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to build report"})
	}

	log.Info("Daily report built",
		zap.String("date", day.Format("2006-01-02")),
		zap.Int64("count", summary.Count))
	return c.JSON(http.StatusOK, summary)
}

// MonthlyReport returns totals for one calendar month (default current)
func (h *ReportHandler) MonthlyReport(c echo.Context) error {
	log := logger.FromContext(c)

	now := time.Now()
	year, month := now.Year(), now.Month()
	if raw := c.QueryParam("month"); raw != "" {
		parts := strings.SplitN(raw, "-", 2)
		if len(parts) != 2 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
		}
		y, errY := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		if errY != nil || errM != nil || m < 1 || m > 12 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
		}
		year, month = y, time.Month(m)
	}

	summary, err := h.reports.MonthlySummary(c.Request().Context(), year, month)
	if err != nil {
		log.Error("Failed to build monthly report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to build report"})
	}

	log.Info("Monthly report built",
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int64("count", summary.Count))
	return c.JSON(http.StatusOK, summary)
}
