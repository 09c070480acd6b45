package model

import (
	"time"

	"github.com/google/uuid"
)

// Valid VAT conditions for the issuing entity.
// http://www.afip.gov.ar/afip/resol1415_anexo2.html
var VatConditions = []string{
	"IVA Responsable Inscripto",
	"IVA Responsable No Inscripto",
	"IVA Exento",
	"No Responsable IVA",
	"Responsable Monotributo",
}

// PointOfSales represents an emission point registered with AFIP.
//
// Points of sale are created via AFIP's web interface; rows here are synced
// from the FEParamGetPtosVenta operation. Deleting or editing them locally
// does not affect the upstream registration.
//
// The issuing_* fields plus VatCondition, GrossIncomeCondition and SalesTerms
// are never sent to AFIP; they exist only so external renderers can produce
// printable receipts.
type PointOfSales struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number int       `gorm:"not null;uniqueIndex:uni_pos_number_owner"`
	// IssuanceType indicates whether this POS emits using CAE or CAEA.
	// AFIP caps this field at 200 bytes.
	IssuanceType string `gorm:"type:varchar(200);not null"`
	Blocked      bool   `gorm:"not null;default:false"`
	DropDate     *time.Time

	OwnerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uni_pos_number_owner"`
	Owner   *Taxpayer `gorm:"foreignKey:OwnerID"`

	// Print-only metadata.
	IssuingName          *string `gorm:"type:varchar(128)"`
	IssuingAddress       *string `gorm:"type:text"`
	IssuingEmail         *string `gorm:"type:varchar(128)"`
	VatCondition         *string `gorm:"type:varchar(48)"`
	GrossIncomeCondition *string `gorm:"type:varchar(48)"`
	SalesTerms           *string `gorm:"type:varchar(48)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PointOfSales) TableName() string { return "points_of_sales" }
