package service

import (
	"time"

	"siops/internal/repository"
)

type DashboardService interface {
	GetStockMovement(days int) ([]repository.StockMovementData, error)
	GetDashboardStats(days int) (*repository.DashboardStats, error)
}

type dashboardService struct {
	movementRepo repository.MovementRepository
}

func NewDashboardService(mRepo repository.MovementRepository) DashboardService {
	return &dashboardService{movementRepo: mRepo}
}

func (s *dashboardService) GetStockMovement(days int) ([]repository.StockMovementData, error) {
	startDate, endDate := window(days)
	return s.movementRepo.GetStockMovement(startDate, endDate)
}

// GetDashboardStats reports stock totals and the sales of the last days.
func (s *dashboardService) GetDashboardStats(days int) (*repository.DashboardStats, error) {
	startDate, endDate := window(days)
	return s.movementRepo.GetDashboardStats(startDate, endDate)
}

func window(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = 7
	}
	endDate := time.Now()
	return endDate.AddDate(0, 0, -days), endDate
}
