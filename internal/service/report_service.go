package service

import (
	"context"
	"fmt"
	"time"

	"pos-service/internal/model"
	"pos-service/prometheus"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesSummary aggregates completed sales over a period. Voided
// transactions are excluded.
type SalesSummary struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Count        int64           `json:"count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	ProfitAmount decimal.Decimal `json:"profit_amount"`
}

// ReportService answers the dashboard and reporting queries.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// DailySummary reports completed sales for one calendar day.
func (s *ReportService) DailySummary(ctx context.Context, day time.Time) (*SalesSummary, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)
	return s.summarize(ctx, from, to)
}

// MonthlySummary reports completed sales for one calendar month.
func (s *ReportService) MonthlySummary(ctx context.Context, year int, month time.Month) (*SalesSummary, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)
	return s.summarize(ctx, from, to)
}

func (s *ReportService) summarize(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	defer prometheus.TrackDBOperation("sales_summary")(time.Now())

	summary := &SalesSummary{From: from, To: to}

	var row struct {
		Count        int64
		Subtotal     decimal.Decimal
		TotalTax     decimal.Decimal
		GrandTotal   decimal.Decimal
		ProfitAmount decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("status = ? AND created_at >= ? AND created_at < ?", model.StatusCompleted, from, to).
		Select("COUNT(*) as count, " +
			"COALESCE(SUM(subtotal), 0) as subtotal, " +
			"COALESCE(SUM(total_tax), 0) as total_tax, " +
			"COALESCE(SUM(grand_total), 0) as grand_total, " +
			"COALESCE(SUM(profit_amount), 0) as profit_amount").
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("summarize sales: %w", err)
	}

	summary.Count = row.Count
	summary.Subtotal = row.Subtotal
	summary.TotalTax = row.TotalTax
	summary.GrandTotal = row.GrandTotal
	summary.ProfitAmount = row.ProfitAmount
	return summary, nil
}
