package model

import (
	"time"

	"github.com/google/uuid"
)

// Validation results as reported by AFIP.
const (
	ResultApproved = "A"
	ResultRejected = "R"
)

// Observation is a diagnostic (code, message) pair returned by AFIP. Codes
// are reused across validations, so observations are stored once and linked
// from every validation that reports them.
type Observation struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code    int       `gorm:"not null;uniqueIndex:uni_observation_code_message"`
	Message string    `gorm:"type:varchar(255);not null;uniqueIndex:uni_observation_code_message"`
}

func (Observation) TableName() string { return "observations" }

// ReceiptValidation is the terminal outcome of validating one receipt. It
// records the authority-issued CAE and its expiration, and is never mutated
// after creation.
type ReceiptValidation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Receipt   *Receipt  `gorm:"foreignKey:ReceiptID"`

	Result        string    `gorm:"type:varchar(1);not null"`
	ProcessedDate time.Time `gorm:"not null"`
	// CAE is the authorization code issued by AFIP.
	CAE           string    `gorm:"type:varchar(14);not null"`
	CAEExpiration time.Time `gorm:"type:date;not null"`

	Observations []Observation `gorm:"many2many:validation_observations"`

	CreatedAt time.Time
}

func (ReceiptValidation) TableName() string { return "receipt_validations" }
