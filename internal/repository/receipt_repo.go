package repository

import (
	"context"
	"errors"
	"time"

	"afipws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// receiptPreloads is the association graph needed to serialize a receipt for
// AFIP and to render it back to clients.
var receiptPreloads = []string{
	"PointOfSales",
	"PointOfSales.Owner",
	"ReceiptType",
	"Concept",
	"DocumentType",
	"Currency",
	"ClientVatCondition",
	"RelatedReceipts",
	"RelatedReceipts.ReceiptType",
	"RelatedReceipts.PointOfSales",
	"Entries",
	"Entries.VatType",
	"Taxes",
	"Taxes.TaxType",
	"Vats",
	"Vats.VatType",
	"Optionals",
	"Optionals.OptionalType",
	"Validation",
	"Validation.Observations",
}

type ReceiptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, r *model.Receipt) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Receipt, error)
	FindByNumber(ctx context.Context, posID, typeID uuid.UUID, number int64) (*model.Receipt, error)
	// FindForValidation loads the given receipts with the full association
	// graph, ordered by issued date then creation order.
	FindForValidation(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*model.Receipt, error)
	List(ctx context.Context, filter ReceiptFilter) ([]model.Receipt, int64, error)
	// ClaimNumber assigns a number to a receipt only if it is still
	// unnumbered; reports whether the claim won.
	ClaimNumber(ctx context.Context, tx *gorm.DB, id uuid.UUID, number int64) (bool, error)
	// ReleaseNumbers clears the numbers of the given receipts that hold no
	// validation, freeing them for the next round.
	ReleaseNumbers(ctx context.Context, ids []uuid.UUID) (int64, error)
	// MostRecentApprovedDate returns the issued date of the newest approved
	// receipt in a (point of sale, receipt type) sequence, or nil.
	MostRecentApprovedDate(ctx context.Context, posID, typeID uuid.UUID) (*time.Time, error)
	// UpdateIssuedDate rewrites a receipt's issued date only while it is
	// still unnumbered; reports whether the update applied.
	UpdateIssuedDate(ctx context.Context, id uuid.UUID, date time.Time) (bool, error)
	// ListUnconfirmed returns numbered receipts that still hold no
	// validation, oldest first. These are submission casualties waiting for
	// remote reconciliation.
	ListUnconfirmed(ctx context.Context, limit int) ([]*model.Receipt, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

// ReceiptFilter narrows and pages receipt listings.
type ReceiptFilter struct {
	PointOfSalesID *uuid.UUID
	ReceiptTypeID  *uuid.UUID
	Validated      *bool
	Page           int
	Limit          int
}

type receiptRepo struct{ db *gorm.DB }

func NewReceiptRepository(db *gorm.DB) ReceiptRepository { return &receiptRepo{db: db} }

func (r *receiptRepo) DB() *gorm.DB { return r.db }

func (r *receiptRepo) Create(ctx context.Context, tx *gorm.DB, receipt *model.Receipt) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(receipt).Error
}

func withPreloads(q *gorm.DB) *gorm.DB {
	for _, p := range receiptPreloads {
		q = q.Preload(p)
	}
	return q
}

func (r *receiptRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Receipt, error) {
	var receipt model.Receipt
	err := withPreloads(r.db.WithContext(ctx)).First(&receipt, id).Error
	return &receipt, err
}

func (r *receiptRepo) FindByNumber(ctx context.Context, posID, typeID uuid.UUID, number int64) (*model.Receipt, error) {
	var receipt model.Receipt
	err := withPreloads(r.db.WithContext(ctx)).
		Where("point_of_sales_id = ? AND receipt_type_id = ? AND receipt_number = ?", posID, typeID, number).
		First(&receipt).Error
	return &receipt, err
}

func (r *receiptRepo) FindForValidation(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*model.Receipt, error) {
	if tx == nil {
		tx = r.db
	}
	var receipts []*model.Receipt
	err := withPreloads(tx.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("issued_date, created_at").
		Find(&receipts).Error
	return receipts, err
}

func (r *receiptRepo) ListUnconfirmed(ctx context.Context, limit int) ([]*model.Receipt, error) {
	if limit <= 0 {
		limit = 50
	}
	sub := r.db.Model(&model.ReceiptValidation{}).Select("receipt_id")
	var receipts []*model.Receipt
	err := withPreloads(r.db.WithContext(ctx)).
		Where("receipt_number IS NOT NULL").
		Where("id NOT IN (?)", sub).
		Order("created_at").
		Limit(limit).
		Find(&receipts).Error
	return receipts, err
}

func (r *receiptRepo) List(ctx context.Context, filter ReceiptFilter) ([]model.Receipt, int64, error) {
	var receipts []model.Receipt
	var total int64

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Receipt{})
	if filter.PointOfSalesID != nil {
		q = q.Where("point_of_sales_id = ?", *filter.PointOfSalesID)
	}
	if filter.ReceiptTypeID != nil {
		q = q.Where("receipt_type_id = ?", *filter.ReceiptTypeID)
	}
	if filter.Validated != nil {
		sub := r.db.Model(&model.ReceiptValidation{}).
			Select("receipt_id").
			Where("result = ?", model.ResultApproved)
		if *filter.Validated {
			q = q.Where("id IN (?)", sub)
		} else {
			q = q.Where("id NOT IN (?)", sub)
		}
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := withPreloads(q).
		Order("issued_date DESC, created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&receipts).Error
	return receipts, total, err
}

func (r *receiptRepo) ClaimNumber(ctx context.Context, tx *gorm.DB, id uuid.UUID, number int64) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).Model(&model.Receipt{}).
		Where("id = ? AND receipt_number IS NULL", id).
		Update("receipt_number", number)
	return res.RowsAffected == 1, res.Error
}

func (r *receiptRepo) ReleaseNumbers(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sub := r.db.Model(&model.ReceiptValidation{}).Select("receipt_id")
	res := r.db.WithContext(ctx).Model(&model.Receipt{}).
		Where("id IN ? AND id NOT IN (?)", ids, sub).
		Update("receipt_number", nil)
	return res.RowsAffected, res.Error
}

func (r *receiptRepo) MostRecentApprovedDate(ctx context.Context, posID, typeID uuid.UUID) (*time.Time, error) {
	var receipt model.Receipt
	err := r.db.WithContext(ctx).
		Joins("JOIN receipt_validations rv ON rv.receipt_id = receipts.id AND rv.result = ?", model.ResultApproved).
		Where("receipts.point_of_sales_id = ? AND receipts.receipt_type_id = ?", posID, typeID).
		Order("receipts.issued_date DESC").
		First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt.IssuedDate, nil
}

func (r *receiptRepo) UpdateIssuedDate(ctx context.Context, id uuid.UUID, date time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Receipt{}).
		Where("id = ? AND receipt_number IS NULL", id).
		Update("issued_date", date)
	return res.RowsAffected == 1, res.Error
}

func (r *receiptRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Receipt{}, id).Error
}
