package service

import (
	"context"
	"time"

	"github.com/robalyx/doorbell/internal/database/models"
	"go.uber.org/zap"
)

// DatabaseStats summarizes the persisted state for the operator stats query.
type DatabaseStats struct {
	ActiveCommunities int `json:"active_communities"`
	TotalArrivals     int `json:"total_arrivals"`
	Arrivals24h       int `json:"arrivals_24h"`
}

// StatsService aggregates counters across the store.
type StatsService struct {
	arrivals    *models.ArrivalModel
	communities *models.CommunityModel
	logger      *zap.Logger
}

// NewStats creates a new stats service instance.
func NewStats(arrivals *models.ArrivalModel, communities *models.CommunityModel, logger *zap.Logger) *StatsService {
	return &StatsService{
		arrivals:    arrivals,
		communities: communities,
		logger:      logger.Named("stats"),
	}
}

// Get collects the current database statistics.
func (s *StatsService) Get(ctx context.Context) (*DatabaseStats, error) {
	active, err := s.communities.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	total, err := s.arrivals.CountSince(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	recent, err := s.arrivals.CountSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	return &DatabaseStats{
		ActiveCommunities: active,
		TotalArrivals:     total,
		Arrivals24h:       recent,
	}, nil
}
