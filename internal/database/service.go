package database

import (
	"github.com/robalyx/doorbell/internal/database/service"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all service operations.
type Service struct {
	gate  *service.GateService
	stats *service.StatsService
}

// NewService creates a new service instance with all services.
func NewService(db *bun.DB, repo *Repository, logger *zap.Logger) *Service {
	return &Service{
		gate:  service.NewGate(db, repo.Arrival(), repo.Notification(), logger),
		stats: service.NewStats(repo.Arrival(), repo.Community(), logger),
	}
}

// Gate returns the dedup gate service.
func (s *Service) Gate() *service.GateService {
	return s.gate
}

// Stats returns the stats service.
func (s *Service) Stats() *service.StatsService {
	return s.stats
}
