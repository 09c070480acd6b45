package repository

import (
	"context"

	"afipws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PointOfSalesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.PointOfSales, error)
	FindByOwnerAndNumber(ctx context.Context, ownerID uuid.UUID, number int) (*model.PointOfSales, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.PointOfSales, error)
	Create(ctx context.Context, pos *model.PointOfSales) error
	Update(ctx context.Context, pos *model.PointOfSales) error
}

type pointOfSalesRepo struct{ db *gorm.DB }

func NewPointOfSalesRepository(db *gorm.DB) PointOfSalesRepository {
	return &pointOfSalesRepo{db: db}
}

func (r *pointOfSalesRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PointOfSales, error) {
	var pos model.PointOfSales
	err := r.db.WithContext(ctx).First(&pos, id).Error
	return &pos, err
}

func (r *pointOfSalesRepo) FindByOwnerAndNumber(ctx context.Context, ownerID uuid.UUID, number int) (*model.PointOfSales, error) {
	var pos model.PointOfSales
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND number = ?", ownerID, number).
		First(&pos).Error
	return &pos, err
}

func (r *pointOfSalesRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.PointOfSales, error) {
	var list []model.PointOfSales
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("number").
		Find(&list).Error
	return list, err
}

func (r *pointOfSalesRepo) Create(ctx context.Context, pos *model.PointOfSales) error {
	return r.db.WithContext(ctx).Create(pos).Error
}

func (r *pointOfSalesRepo) Update(ctx context.Context, pos *model.PointOfSales) error {
	return r.db.WithContext(ctx).Save(pos).Error
}
