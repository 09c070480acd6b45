package repository

import (
	"context"
	"errors"

	"afipws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ParamTypeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.ParamType, error)
	FindByKindAndCode(ctx context.Context, kind model.ParamKind, code string) (*model.ParamType, error)
	ListByKind(ctx context.Context, kind model.ParamKind) ([]model.ParamType, error)
	// GetOrCreate resolves a type by (kind, code), creating the row with the
	// supplied description and validity window on first sight. Existing rows
	// keep their stored description.
	GetOrCreate(ctx context.Context, p *model.ParamType) (bool, error)
}

type paramTypeRepo struct{ db *gorm.DB }

func NewParamTypeRepository(db *gorm.DB) ParamTypeRepository { return &paramTypeRepo{db: db} }

func (r *paramTypeRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ParamType, error) {
	var p model.ParamType
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *paramTypeRepo) FindByKindAndCode(ctx context.Context, kind model.ParamKind, code string) (*model.ParamType, error) {
	var p model.ParamType
	err := r.db.WithContext(ctx).
		Where("kind = ? AND code = ?", kind, code).
		First(&p).Error
	return &p, err
}

func (r *paramTypeRepo) ListByKind(ctx context.Context, kind model.ParamKind) ([]model.ParamType, error) {
	var list []model.ParamType
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("code").
		Find(&list).Error
	return list, err
}

func (r *paramTypeRepo) GetOrCreate(ctx context.Context, p *model.ParamType) (bool, error) {
	res := r.db.WithContext(ctx).
		Where(model.ParamType{Kind: p.Kind, Code: p.Code}).
		FirstOrCreate(p)
	return res.RowsAffected == 1, res.Error
}

type ClientVatConditionRepository interface {
	List(ctx context.Context) ([]model.ClientVatCondition, error)
	FindByCode(ctx context.Context, code string) (*model.ClientVatCondition, error)
	// UpdateOrCreate upserts a condition by code, refreshing description and
	// class. Reports whether a row was created.
	UpdateOrCreate(ctx context.Context, c *model.ClientVatCondition) (bool, error)
}

type clientVatConditionRepo struct{ db *gorm.DB }

func NewClientVatConditionRepository(db *gorm.DB) ClientVatConditionRepository {
	return &clientVatConditionRepo{db: db}
}

func (r *clientVatConditionRepo) List(ctx context.Context) ([]model.ClientVatCondition, error) {
	var list []model.ClientVatCondition
	err := r.db.WithContext(ctx).Order("code").Find(&list).Error
	return list, err
}

func (r *clientVatConditionRepo) FindByCode(ctx context.Context, code string) (*model.ClientVatCondition, error) {
	var c model.ClientVatCondition
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error
	return &c, err
}

func (r *clientVatConditionRepo) UpdateOrCreate(ctx context.Context, c *model.ClientVatCondition) (bool, error) {
	var existing model.ClientVatCondition
	err := r.db.WithContext(ctx).Where("code = ?", c.Code).First(&existing).Error
	if err == nil {
		existing.Description = c.Description
		existing.CmpClase = c.CmpClase
		*c = existing
		return false, r.db.WithContext(ctx).Save(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return true, r.db.WithContext(ctx).Create(c).Error
}
