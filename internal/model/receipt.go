package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt is a fiscal receipt, as sent to AFIP.
//
// AFIP allows submitting ranges of receipts, but invoices are modelled
// individually here; applications relate their own Sale/Order entities to a
// Receipt. All Document* fields describe the recipient.
//
// ReceiptNumber MUST NOT be set by application code: it is assigned during
// validation and treated as read-only. The sole exception is importing
// previously-validated receipts from another system.
type Receipt struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`

	PointOfSalesID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uni_receipt_number_seq"`
	PointOfSales   *PointOfSales `gorm:"foreignKey:PointOfSalesID"`

	ReceiptTypeID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uni_receipt_number_seq"`
	ReceiptType   *ParamType `gorm:"foreignKey:ReceiptTypeID"`

	ConceptID uuid.UUID  `gorm:"type:uuid;not null"`
	Concept   *ParamType `gorm:"foreignKey:ConceptID"`

	DocumentTypeID uuid.UUID  `gorm:"type:uuid;not null"`
	DocumentType   *ParamType `gorm:"foreignKey:DocumentTypeID"`
	DocumentNumber int64      `gorm:"not null"`

	// ReceiptNumber stays null until the sequencer claims a number; numbers of
	// approved receipts are never reused or changed.
	ReceiptNumber *int64 `gorm:"uniqueIndex:uni_receipt_number_seq"`

	// IssuedDate may diverge up to 5 days into the past for goods, 14 for
	// services; see ApproximateDate.
	IssuedDate time.Time `gorm:"type:date;not null"`

	// TotalAmount must equal NetUntaxed + NetTaxed + ExemptAmount plus the sum
	// of all taxes and vats.
	TotalAmount decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	// NetUntaxed is the portion to which taxes do not apply (ImpTotConc).
	// Zero for C-type receipts.
	NetUntaxed decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	// NetTaxed is the portion to which taxes apply (ImpNeto). For C-type
	// receipts this equals the subtotal.
	NetTaxed decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	// ExemptAmount applies only to tax-exempt issuers (ImpOpEx).
	ExemptAmount decimal.Decimal `gorm:"type:decimal(15,2);not null"`

	ServiceStart   *time.Time `gorm:"type:date"`
	ServiceEnd     *time.Time `gorm:"type:date"`
	ExpirationDate *time.Time `gorm:"type:date"`

	CurrencyID    uuid.UUID       `gorm:"type:uuid;not null"`
	Currency      *ParamType      `gorm:"foreignKey:CurrencyID"`
	CurrencyQuote decimal.Decimal `gorm:"type:decimal(10,6);not null;default:1"`

	RelatedReceipts []*Receipt `gorm:"many2many:receipt_related_receipts"`

	ClientVatConditionID *uuid.UUID          `gorm:"type:uuid"`
	ClientVatCondition   *ClientVatCondition `gorm:"foreignKey:ClientVatConditionID"`

	Entries    []ReceiptEntry     `gorm:"foreignKey:ReceiptID"`
	Taxes      []Tax              `gorm:"foreignKey:ReceiptID"`
	Vats       []Vat              `gorm:"foreignKey:ReceiptID"`
	Optionals  []Optional         `gorm:"foreignKey:ReceiptID"`
	Validation *ReceiptValidation `gorm:"foreignKey:ReceiptID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Receipt) TableName() string { return "receipts" }

// TotalVat is the sum of all loaded Vat rows.
func (r *Receipt) TotalVat() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.Vats {
		total = total.Add(v.Amount)
	}
	return total
}

// TotalTax is the sum of all loaded Tax rows.
func (r *Receipt) TotalTax() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.Taxes {
		total = total.Add(t.Amount)
	}
	return total
}

// FormattedNumber renders the number in the usual "0001-00003087" format, or
// "" while unnumbered. Requires PointOfSales to be loaded.
func (r *Receipt) FormattedNumber() string {
	if r.ReceiptNumber == nil || r.PointOfSales == nil {
		return ""
	}
	return fmt.Sprintf("%04d-%08d", r.PointOfSales.Number, *r.ReceiptNumber)
}

// IsValidated reports whether this receipt holds an approved validation.
// Requires Validation to be loaded.
func (r *Receipt) IsValidated() bool {
	if r.ReceiptNumber == nil || r.Validation == nil {
		return false
	}
	return r.Validation.Result == ResultApproved
}

// ReceiptEntry is one line of a receipt's printable detail; one instance per
// product or service. Entries carry their own vat type because a single
// receipt can mix products under different aliquots.
type ReceiptEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;index"`

	Description string          `gorm:"type:varchar(128);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	// Discount is a net amount subtracted from the row total; must be >= 0
	// and <= quantity*unit_price (enforced with check constraints).
	Discount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0;check:discount >= 0;check:discount <= quantity * unit_price"`

	VatTypeID *uuid.UUID `gorm:"type:uuid"`
	VatType   *ParamType `gorm:"foreignKey:VatTypeID"`
}

func (ReceiptEntry) TableName() string { return "receipt_entries" }

// TotalPrice is quantity * unit price - discount.
func (e *ReceiptEntry) TotalPrice() decimal.Decimal {
	return e.Quantity.Mul(e.UnitPrice).Sub(e.Discount)
}

// Tax is a non-VAT tax (type + amount) applied to a receipt.
type Tax struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;index"`

	TaxTypeID   uuid.UUID  `gorm:"type:uuid;not null"`
	TaxType     *ParamType `gorm:"foreignKey:TaxTypeID"`
	Description string     `gorm:"type:varchar(80);not null"`

	BaseAmount decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Aliquot    decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null"`
}

func (Tax) TableName() string { return "receipt_taxes" }

// ComputeAmount assigns and returns base * aliquot / 100.
func (t *Tax) ComputeAmount() decimal.Decimal {
	t.Amount = t.BaseAmount.Mul(t.Aliquot).Div(decimal.NewFromInt(100))
	return t.Amount
}

// Vat is a VAT breakdown row (type + amounts) for a receipt.
type Vat struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;index"`

	VatTypeID uuid.UUID  `gorm:"type:uuid;not null"`
	VatType   *ParamType `gorm:"foreignKey:VatTypeID"`

	BaseAmount decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null"`
}

func (Vat) TableName() string { return "receipt_vats" }

// Optional is an optional data field (type + value) attached to a receipt.
type Optional struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;index"`

	OptionalTypeID uuid.UUID  `gorm:"type:uuid;not null"`
	OptionalType   *ParamType `gorm:"foreignKey:OptionalTypeID"`

	Value string `gorm:"type:varchar(250);not null"`
}

func (Optional) TableName() string { return "receipt_optionals" }
