package dto

// PopulateRequest selects which metadata tables to sync; empty Kinds means
// all of them plus client VAT conditions.
type PopulateRequest struct {
	Kinds []string `json:"kinds" validate:"omitempty,dive,oneof=receipt_type concept_type document_type vat_type tax_type currency_type optional_type"`
}

type PopulateResponse struct {
	Created map[string]int `json:"created"`
}

type ParamTypeResponse struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	ValidFrom   *string `json:"valid_from"`
	ValidTo     *string `json:"valid_to"`
}
