package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"afipws/internal/afipcrypto"
)

// Taxpayer represents a fiscal identity registered with AFIP.
//
// Multiple rows may represent the same real-world taxpayer, each with a
// different key/certificate pair. Key and Certificate hold PEM-encoded data.
type Taxpayer struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string    `gorm:"type:varchar(32);not null"`
	CUIT int64     `gorm:"column:cuit;not null"`
	// Key and Certificate are PEM blocks. Either may be empty for a taxpayer
	// that has not completed enrollment yet.
	Key         *string `gorm:"type:text"`
	Certificate *string `gorm:"type:text"`
	// IsSandboxed selects AFIP's homologation servers instead of production.
	IsSandboxed bool `gorm:"not null;default:false"`
	// CertificateExpiration caches the embedded expiry of Certificate. It is
	// refreshed on save; nil when there is no certificate.
	CertificateExpiration *time.Time
	ActiveSince           time.Time `gorm:"type:date"`

	PointsOfSales []PointOfSales `gorm:"foreignKey:OwnerID"`
	AuthTickets   []AuthTicket   `gorm:"foreignKey:OwnerID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Taxpayer) TableName() string { return "taxpayers" }

// BeforeSave caches the certificate expiration so that lookups never need to
// re-parse the PEM block.
func (t *Taxpayer) BeforeSave(_ *gorm.DB) error {
	exp, err := t.GetCertificateExpiration()
	if err != nil {
		return err
	}
	t.CertificateExpiration = exp
	return nil
}

// GetCertificateExpiration parses the current certificate and returns its
// not-after timestamp, or nil when no certificate is attached. Prefer the
// cached CertificateExpiration field for stored instances.
func (t *Taxpayer) GetCertificateExpiration() (*time.Time, error) {
	if t.Certificate == nil || *t.Certificate == "" {
		return nil, nil
	}
	cert, err := afipcrypto.ParseCertificate([]byte(*t.Certificate))
	if err != nil {
		return nil, err
	}
	exp := cert.NotAfter.UTC()
	return &exp, nil
}

// GenerateKey creates a private key for this taxpayer if it does not have
// one. An existing key is never overwritten unless force is true, to avoid
// clobbering a potentially in-use key. Returns true iff a key was created.
// The caller is responsible for persisting the instance.
func (t *Taxpayer) GenerateKey(force bool) (bool, error) {
	if t.Key != nil && *t.Key != "" && !force {
		return false, nil
	}
	pem, err := afipcrypto.CreateKey()
	if err != nil {
		return false, err
	}
	s := string(pem)
	t.Key = &s
	return true, nil
}

// GenerateCSR builds a certificate signing request with this taxpayer's key.
// The CSR is uploaded to AFIP's website, which returns the certificate to be
// stored in the Certificate field. Safe to use when renewing an expired
// certificate on a production system.
func (t *Taxpayer) GenerateCSR(basename string) ([]byte, error) {
	return afipcrypto.CreateCSR(
		[]byte(deref(t.Key)),
		t.Name,
		basename,
		t.CUIT,
	)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
