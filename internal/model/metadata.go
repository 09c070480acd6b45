package model

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ParamKind discriminates the AFIP metadata tables that share one schema.
// Upstream exposes them as separate WSDL operations with identical result
// shapes, so they are stored as one entity with a kind column instead of a
// class hierarchy.
type ParamKind string

const (
	KindReceiptType  ParamKind = "receipt_type"
	KindConceptType  ParamKind = "concept_type"
	KindDocumentType ParamKind = "document_type"
	KindVatType      ParamKind = "vat_type"
	KindTaxType      ParamKind = "tax_type"
	KindCurrencyType ParamKind = "currency_type"
	KindOptionalType ParamKind = "optional_type"
)

// ParamKinds lists every metadata kind, in population order.
func ParamKinds() []ParamKind {
	return []ParamKind{
		KindReceiptType,
		KindConceptType,
		KindDocumentType,
		KindVatType,
		KindTaxType,
		KindCurrencyType,
		KindOptionalType,
	}
}

// ReceiptDateOffset maps a concept type code to the maximum age, in days,
// AFIP accepts for an issued date: 5 for goods (1), 14 for services (2) and
// for goods-and-services (3).
var ReceiptDateOffset = map[string]int{"1": 5, "2": 14, "3": 14}

// ParamType is one row of AFIP metadata: a receipt type, concept type,
// document type, vat/tax aliquot, currency or optional field definition.
type ParamType struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Kind ParamKind `gorm:"type:varchar(16);not null;uniqueIndex:uni_param_kind_code"`
	// Code is AFIP's identifier within the kind. Most kinds use up to 3
	// characters; optional types use 4.
	Code        string `gorm:"type:varchar(4);not null;uniqueIndex:uni_param_kind_code"`
	Description string `gorm:"type:varchar(250);not null"`
	ValidFrom   *time.Time
	ValidTo     *time.Time
}

func (ParamType) TableName() string { return "param_types" }

func (p *ParamType) String() string {
	return fmt.Sprintf("%s (%s)", p.Description, p.Code)
}

var vatPercentRe = regexp.MustCompile(`^([0-9]{1,2}\.?[0-9]{0,2})%$`)

// Aliquot parses the percentage in a vat type's description ("21%") into a
// factor usable for calculation (0.21). AFIP requires round-half-even when
// applying it; shopspring/decimal's RoundBank does exactly that.
func (p *ParamType) Aliquot() (decimal.Decimal, error) {
	m := vatPercentRe.FindStringSubmatch(p.Description)
	if m == nil {
		return decimal.Zero, fmt.Errorf("description %q is not a percentage", p.Description)
	}
	pct, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, err
	}
	return pct.Div(decimal.NewFromInt(100)), nil
}

// ClientVatCondition is the recipient-side VAT condition required on certain
// receipt types. Unlike the ParamType kinds it carries an extra class field,
// so it is modelled separately.
type ClientVatCondition struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code        string    `gorm:"type:varchar(3);not null;uniqueIndex"`
	Description string    `gorm:"type:varchar(250);not null"`
	CmpClase    string    `gorm:"type:varchar(10);not null"`
}

func (ClientVatCondition) TableName() string { return "client_vat_conditions" }
