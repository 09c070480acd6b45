package repository

import (
	"context"
	"time"

	"afipws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthTicketRepository interface {
	Create(ctx context.Context, t *model.AuthTicket) error
	// FindActive returns the unexpired ticket with the latest expiration for
	// an owner/service pair, or gorm.ErrRecordNotFound.
	FindActive(ctx context.Context, ownerID uuid.UUID, service string, now time.Time) (*model.AuthTicket, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type authTicketRepo struct{ db *gorm.DB }

func NewAuthTicketRepository(db *gorm.DB) AuthTicketRepository { return &authTicketRepo{db: db} }

func (r *authTicketRepo) Create(ctx context.Context, t *model.AuthTicket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *authTicketRepo) FindActive(ctx context.Context, ownerID uuid.UUID, service string, now time.Time) (*model.AuthTicket, error) {
	var t model.AuthTicket
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("owner_id = ? AND service = ? AND expires > ?", ownerID, service, now).
		Order("expires DESC").
		First(&t).Error
	return &t, err
}

func (r *authTicketRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires <= ?", now).Delete(&model.AuthTicket{})
	return res.RowsAffected, res.Error
}
