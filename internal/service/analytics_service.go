package service

import (
	"context"
	"time"

	"spice-store/internal/domain"
	"spice-store/internal/repository"
)

// SalesReport is the response of the sales analytics endpoint.
type SalesReport struct {
	Period string                    `json:"period"`
	Totals []repository.StatusCounts `json:"totals"`
	Trend  []repository.DailyPoint   `json:"trend"`
}

// DashboardSummary compares today against yesterday and the store's
// lifetime numbers.
type DashboardSummary struct {
	Today        repository.PeriodSummary `json:"today"`
	Yesterday    repository.PeriodSummary `json:"yesterday"`
	Overall      repository.PeriodSummary `json:"overall"`
	PendingCount int                      `json:"pending_count"`
	LowStock     int                      `json:"low_stock"`
	OutOfStock   int                      `json:"out_of_stock"`
}

// AnalyticsService exposes the read-only reporting endpoints. Everything is
// recomputed per request; there is no caching layer.
type AnalyticsService interface {
	Sales(ctx context.Context, period string) (*SalesReport, error)
	TopProducts(ctx context.Context, period string, limit int) ([]repository.ProductSales, error)
	CategoryPerformance(ctx context.Context, period string) ([]repository.CategorySales, error)
	LowStock(ctx context.Context) ([]*domain.Product, error)
	OutOfStock(ctx context.Context) ([]*domain.Product, error)
	PendingStockRisks(ctx context.Context) ([]repository.PendingStockRisk, error)
	Dashboard(ctx context.Context) (*DashboardSummary, error)
}

type analyticsService struct {
	analyticsRepo repository.AnalyticsRepository
	orderRepo     repository.OrderRepository
	lowStockLevel int
}

// NewAnalyticsService creates a new instance of AnalyticsService.
func NewAnalyticsService(
	analyticsRepo repository.AnalyticsRepository,
	orderRepo repository.OrderRepository,
	lowStockLevel int,
) AnalyticsService {
	if lowStockLevel <= 0 {
		lowStockLevel = 5
	}
	return &analyticsService{
		analyticsRepo: analyticsRepo,
		orderRepo:     orderRepo,
		lowStockLevel: lowStockLevel,
	}
}

// Sales aggregates totals and the daily trend over a period.
func (s *analyticsService) Sales(ctx context.Context, period string) (*SalesReport, error) {
	since, err := PeriodStart(period, time.Now())
	if err != nil {
		return nil, err
	}

	totals, err := s.orderRepo.StatsByStatus(ctx, since)
	if err != nil {
		return nil, err
	}
	trend, err := s.orderRepo.DailyTrend(ctx, since)
	if err != nil {
		return nil, err
	}

	return &SalesReport{Period: period, Totals: totals, Trend: trend}, nil
}

// TopProducts returns the best sellers over a period.
func (s *analyticsService) TopProducts(ctx context.Context, period string, limit int) ([]repository.ProductSales, error) {
	since, err := PeriodStart(period, time.Now())
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.analyticsRepo.TopProducts(ctx, since, limit)
}

// CategoryPerformance aggregates sales per category over a period.
func (s *analyticsService) CategoryPerformance(ctx context.Context, period string) ([]repository.CategorySales, error) {
	since, err := PeriodStart(period, time.Now())
	if err != nil {
		return nil, err
	}
	return s.analyticsRepo.CategoryPerformance(ctx, since)
}

func (s *analyticsService) LowStock(ctx context.Context) ([]*domain.Product, error) {
	return s.analyticsRepo.LowStock(ctx, s.lowStockLevel)
}

func (s *analyticsService) OutOfStock(ctx context.Context) ([]*domain.Product, error) {
	return s.analyticsRepo.OutOfStock(ctx)
}

func (s *analyticsService) PendingStockRisks(ctx context.Context) ([]repository.PendingStockRisk, error) {
	return s.analyticsRepo.PendingStockRisks(ctx, s.lowStockLevel)
}

// Dashboard assembles the landing-page summary.
func (s *analyticsService) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	now := time.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfYesterday := startOfToday.AddDate(0, 0, -1)

	today, err := s.analyticsRepo.SummaryBetween(ctx, startOfToday, now)
	if err != nil {
		return nil, err
	}
	yesterday, err := s.analyticsRepo.SummaryBetween(ctx, startOfYesterday, startOfToday)
	if err != nil {
		return nil, err
	}
	overall, err := s.analyticsRepo.SummaryOverall(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := s.orderRepo.StatsByStatus(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	pendingCount := 0
	for _, sc := range pending {
		if sc.Status == domain.OrderStatusPending {
			pendingCount = sc.Count
		}
	}

	lowStock, err := s.analyticsRepo.LowStock(ctx, s.lowStockLevel)
	if err != nil {
		return nil, err
	}
	outOfStock, err := s.analyticsRepo.OutOfStock(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		Today:        today,
		Yesterday:    yesterday,
		Overall:      overall,
		PendingCount: pendingCount,
		LowStock:     len(lowStock),
		OutOfStock:   len(outOfStock),
	}, nil
}
