package service

import (
	"context"

	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository"
)

const (
	dashboardRecentLoans  = 5
	dashboardRecentEvents = 10
)

type dashboardService struct {
	dashRepo  repository.DashboardRepository
	loanRepo  repository.LoanRepository
	eventRepo repository.EventRepository
	loans     LoanService
}

func NewDashboardService(
	dashRepo repository.DashboardRepository,
	loanRepo repository.LoanRepository,
	eventRepo repository.EventRepository,
	loans LoanService,
) DashboardService {
	return &dashboardService{
		dashRepo:  dashRepo,
		loanRepo:  loanRepo,
		eventRepo: eventRepo,
		loans:     loans,
	}
}

// GetStats sweeps overdue loans first so the counts reflect today.
func (s *dashboardService) GetStats(ctx context.Context) (*domain.DashboardStats, error) {
	logger.EnterMethod("dashboardService.GetStats")

	if _, err := s.loans.SweepOverdue(ctx); err != nil {
		return nil, exitWithError("dashboardService.GetStats", err)
	}

	counts, err := s.dashRepo.Counts(ctx)
	if err != nil {
		return nil, exitWithError("dashboardService.GetStats", err)
	}
	loans, err := s.loanRepo.List(ctx, domain.LoanFilter{Limit: dashboardRecentLoans})
	if err != nil {
		return nil, exitWithError("dashboardService.GetStats", err)
	}
	events, err := s.eventRepo.List(ctx, domain.EventFilter{Limit: dashboardRecentEvents})
	if err != nil {
		return nil, exitWithError("dashboardService.GetStats", err)
	}

	stats := &domain.DashboardStats{
		DashboardCounts: *counts,
		RecentLoans:     loans,
		RecentEvents:    events,
	}
	logger.ExitMethod("dashboardService.GetStats", "activeLoans", stats.ActiveLoans, "overdueLoans", stats.OverdueLoans)
	return stats, nil
}
