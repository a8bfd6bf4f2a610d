package database

import (
	"github.com/robalyx/doorbell/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all model operations.
type Repository struct {
	arrival      *models.ArrivalModel
	notification *models.NotificationModel
	community    *models.CommunityModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		arrival:      models.NewArrival(db, logger),
		notification: models.NewNotification(db, logger),
		community:    models.NewCommunity(db, logger),
	}
}

// Arrival returns the arrival log model.
func (r *Repository) Arrival() *models.ArrivalModel {
	return r.arrival
}

// Notification returns the notification ledger model.
func (r *Repository) Notification() *models.NotificationModel {
	return r.notification
}

// Community returns the community registry model.
func (r *Repository) Community() *models.CommunityModel {
	return r.community
}
