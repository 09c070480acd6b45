package dto

// CreateTaxpayerRequest registers a fiscal identity. Key and Certificate are
// PEM blocks; both may be omitted and generated/uploaded later.
type CreateTaxpayerRequest struct {
	Name        string  `json:"name"         validate:"required,max=32"`
	CUIT        int64   `json:"cuit"         validate:"required,cuit"`
	Key         *string `json:"key"`
	Certificate *string `json:"certificate"`
	IsSandboxed bool    `json:"is_sandboxed"`
	ActiveSince string  `json:"active_since" validate:"required,datetime=2006-01-02"`
}

type TaxpayerResponse struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	CUIT                  int64   `json:"cuit"`
	IsSandboxed           bool    `json:"is_sandboxed"`
	HasKey                bool    `json:"has_key"`
	HasCertificate        bool    `json:"has_certificate"`
	CertificateExpiration *string `json:"certificate_expiration"`
	ActiveSince           string  `json:"active_since"`
}

// CSRRequest asks for a certificate signing request to upload to AFIP.
type CSRRequest struct {
	Basename string `json:"basename" validate:"required,max=48"`
}

type PointOfSalesResponse struct {
	ID           string  `json:"id"`
	Number       int     `json:"number"`
	IssuanceType string  `json:"issuance_type"`
	Blocked      bool    `json:"blocked"`
	DropDate     *string `json:"drop_date"`
}

type SyncPointsOfSalesResponse struct {
	PointsOfSales []PointOfSalesResponse `json:"points_of_sales"`
	Created       int                    `json:"created"`
}
