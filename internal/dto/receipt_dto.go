package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// EntryRequest is one printable line of the receipt.
type EntryRequest struct {
	Description string          `json:"description" validate:"required,max=128"`
	Quantity    decimal.Decimal `json:"quantity"    validate:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"  validate:"required"`
	Discount    decimal.Decimal `json:"discount"    validate:"min=0"`
	VatCode     *string         `json:"vat_code"`
}

type VatRequest struct {
	VatCode    string          `json:"vat_code"    validate:"required"`
	BaseAmount decimal.Decimal `json:"base_amount" validate:"required"`
	Amount     decimal.Decimal `json:"amount"      validate:"required"`
}

type TaxRequest struct {
	TaxCode     string          `json:"tax_code"    validate:"required"`
	Description string          `json:"description" validate:"required,max=80"`
	BaseAmount  decimal.Decimal `json:"base_amount" validate:"required"`
	Aliquot     decimal.Decimal `json:"aliquot"     validate:"required"`
	Amount      decimal.Decimal `json:"amount"      validate:"required"`
}

type OptionalRequest struct {
	OptionalCode string `json:"optional_code" validate:"required"`
	Value        string `json:"value"         validate:"required,max=250"`
}

// CreateReceiptRequest creates one unvalidated receipt. Type fields carry
// AFIP codes ("6" = Factura B, concept "1" = products...), resolved against
// the synced metadata tables.
type CreateReceiptRequest struct {
	PointOfSalesID  string  `json:"point_of_sales_id" validate:"required,uuid"`
	ReceiptTypeCode string  `json:"receipt_type_code" validate:"required"`
	ConceptCode     string  `json:"concept_code"      validate:"required"`
	DocumentTypeCode string `json:"document_type_code" validate:"required"`
	DocumentNumber  int64   `json:"document_number"   validate:"min=0"`
	IssuedDate      string  `json:"issued_date"       validate:"required,datetime=2006-01-02"`

	TotalAmount  decimal.Decimal `json:"total_amount"  validate:"required"`
	NetUntaxed   decimal.Decimal `json:"net_untaxed"`
	NetTaxed     decimal.Decimal `json:"net_taxed"`
	ExemptAmount decimal.Decimal `json:"exempt_amount"`

	ServiceStart   *string `json:"service_start"   validate:"omitempty,datetime=2006-01-02"`
	ServiceEnd     *string `json:"service_end"     validate:"omitempty,datetime=2006-01-02"`
	ExpirationDate *string `json:"expiration_date" validate:"omitempty,datetime=2006-01-02"`

	CurrencyCode  string          `json:"currency_code"  validate:"required"`
	CurrencyQuote decimal.Decimal `json:"currency_quote"`

	ClientVatConditionCode *string  `json:"client_vat_condition_code"`
	RelatedReceiptIDs      []string `json:"related_receipt_ids" validate:"omitempty,dive,uuid"`

	Entries   []EntryRequest    `json:"entries"   validate:"omitempty,dive"`
	Vats      []VatRequest      `json:"vats"      validate:"omitempty,dive"`
	Taxes     []TaxRequest      `json:"taxes"     validate:"omitempty,dive"`
	Optionals []OptionalRequest `json:"optionals" validate:"omitempty,dive"`
}

// ValidateReceiptsRequest submits a batch for CAE authorization. All receipts
// must share one (point of sale, receipt type) sequence.
type ValidateReceiptsRequest struct {
	ReceiptIDs []string `json:"receipt_ids" validate:"required,min=1,dive,uuid"`
}

// ReceiptFilter is bound from the query string of GET /v1/receipts.
type ReceiptFilter struct {
	PointOfSalesID string `form:"point_of_sales_id" validate:"omitempty,uuid"`
	ReceiptType    string `form:"receipt_type"`
	Validated      *bool  `form:"validated"`
	Page           int    `form:"page,default=1"   validate:"min=1"`
	Limit          int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type EntryResponse struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	VatCode     *string         `json:"vat_code,omitempty"`
}

type ValidationResponse struct {
	Result        string   `json:"result"`
	CAE           string   `json:"cae"`
	CAEExpiration string   `json:"cae_expiration"`
	ProcessedDate string   `json:"processed_date"`
	Observations  []string `json:"observations,omitempty"`
}

type ReceiptResponse struct {
	ID              string          `json:"id"`
	PointOfSales    int             `json:"point_of_sales"`
	ReceiptType     string          `json:"receipt_type"`
	Concept         string          `json:"concept"`
	DocumentType    string          `json:"document_type"`
	DocumentNumber  int64           `json:"document_number"`
	ReceiptNumber   *int64          `json:"receipt_number"`
	FormattedNumber string          `json:"formatted_number,omitempty"`
	IssuedDate      string          `json:"issued_date"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	NetUntaxed      decimal.Decimal `json:"net_untaxed"`
	NetTaxed        decimal.Decimal `json:"net_taxed"`
	ExemptAmount    decimal.Decimal `json:"exempt_amount"`
	TotalVat        decimal.Decimal `json:"total_vat"`
	TotalTax        decimal.Decimal `json:"total_tax"`
	Currency        string          `json:"currency"`
	CurrencyQuote   decimal.Decimal `json:"currency_quote"`

	Entries    []EntryResponse     `json:"entries,omitempty"`
	Validation *ValidationResponse `json:"validation,omitempty"`

	CreatedAt string `json:"created_at"`
}

type ReceiptListResponse struct {
	Data  []ReceiptResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// ValidateReceiptsResponse reports the outcome of a synchronous validation.
type ValidateReceiptsResponse struct {
	Rejections []string `json:"rejections"`
}

// AsyncAcceptedResponse is returned by the async validation endpoint.
type AsyncAcceptedResponse struct {
	JobID string `json:"job_id"`
}

// ApproximateDateResponse reports whether a stale issued date was moved.
type ApproximateDateResponse struct {
	Changed    bool   `json:"changed"`
	IssuedDate string `json:"issued_date"`
}
