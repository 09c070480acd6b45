package repository

import (
	"context"

	"afipws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ValidationRepository interface {
	Create(ctx context.Context, v *model.ReceiptValidation) error
	FindByReceiptID(ctx context.Context, receiptID uuid.UUID) (*model.ReceiptValidation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type validationRepo struct{ db *gorm.DB }

func NewValidationRepository(db *gorm.DB) ValidationRepository { return &validationRepo{db: db} }

func (r *validationRepo) Create(ctx context.Context, v *model.ReceiptValidation) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *validationRepo) FindByReceiptID(ctx context.Context, receiptID uuid.UUID) (*model.ReceiptValidation, error) {
	var v model.ReceiptValidation
	err := r.db.WithContext(ctx).
		Preload("Observations").
		Where("receipt_id = ?", receiptID).
		First(&v).Error
	return &v, err
}

func (r *validationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Select("Observations").Delete(&model.ReceiptValidation{ID: id}).Error
}

type ObservationRepository interface {
	// GetOrCreate resolves an observation by its (code, message) identity,
	// creating the row on first sight.
	GetOrCreate(ctx context.Context, code int, message string) (*model.Observation, error)
}

type observationRepo struct{ db *gorm.DB }

func NewObservationRepository(db *gorm.DB) ObservationRepository { return &observationRepo{db: db} }

func (r *observationRepo) GetOrCreate(ctx context.Context, code int, message string) (*model.Observation, error) {
	obs := model.Observation{Code: code, Message: message}
	err := r.db.WithContext(ctx).
		Where(model.Observation{Code: code, Message: message}).
		FirstOrCreate(&obs).Error
	return &obs, err
}
