package repository

import (
	"context"

	"afipws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaxpayerRepository interface {
	Create(ctx context.Context, t *model.Taxpayer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Taxpayer, error)
	FindByCUIT(ctx context.Context, cuit int64) (*model.Taxpayer, error)
	List(ctx context.Context) ([]model.Taxpayer, error)
	Update(ctx context.Context, t *model.Taxpayer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type taxpayerRepo struct{ db *gorm.DB }

func NewTaxpayerRepository(db *gorm.DB) TaxpayerRepository { return &taxpayerRepo{db: db} }

func (r *taxpayerRepo) Create(ctx context.Context, t *model.Taxpayer) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *taxpayerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Taxpayer, error) {
	var t model.Taxpayer
	err := r.db.WithContext(ctx).Preload("PointsOfSales").First(&t, id).Error
	return &t, err
}

func (r *taxpayerRepo) FindByCUIT(ctx context.Context, cuit int64) (*model.Taxpayer, error) {
	var t model.Taxpayer
	err := r.db.WithContext(ctx).Where("cuit = ?", cuit).First(&t).Error
	return &t, err
}

func (r *taxpayerRepo) List(ctx context.Context) ([]model.Taxpayer, error) {
	var taxpayers []model.Taxpayer
	err := r.db.WithContext(ctx).Order("name").Find(&taxpayers).Error
	return taxpayers, err
}

func (r *taxpayerRepo) Update(ctx context.Context, t *model.Taxpayer) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *taxpayerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Taxpayer{}, id).Error
}
