package afip

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"afipws/internal/model"
)

// Wire formats for AFIP's date-like fields.
const (
	wireDate     = "20060102"
	wireDatetime = "20060102150405"
	// traTimestamp is the TRA timestamp layout: RFC3339 with explicit UTC
	// offset, no sub-second precision.
	traTimestamp = "2006-01-02T15:04:05-07:00"
)

// FormatDate renders a calendar date the way WSFE expects it.
func FormatDate(t time.Time) string { return t.Format(wireDate) }

// ParseDate decodes a mandatory WSFE date field.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(wireDate, s, model.ArgentinaTZ)
}

// ParseDateMaybe decodes an optional WSFE date field; empty input yields nil.
func ParseDateMaybe(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseDatetime decodes a WSFE processing timestamp.
func ParseDatetime(s string) (time.Time, error) {
	return time.ParseInLocation(wireDatetime, s, model.ArgentinaTZ)
}

// loginTicketRequest is the TRA document signed and sent to WSAA. Field order
// is part of the protocol.
type loginTicketRequestDoc struct {
	XMLName xml.Name `xml:"loginTicketRequest"`
	Version string   `xml:"version,attr"`
	Header  struct {
		UniqueID       int64  `xml:"uniqueId"`
		GenerationTime string `xml:"generationTime"`
		ExpirationTime string `xml:"expirationTime"`
	} `xml:"header"`
	Service string `xml:"service"`
}

// SerializeLoginTicketRequest builds the canonical TRA document for a ticket:
// deterministic field order and timestamps carrying the taxpayer's local UTC
// offset.
func SerializeLoginTicketRequest(ticket *model.AuthTicket) ([]byte, error) {
	doc := loginTicketRequestDoc{Version: "1.0", Service: ticket.Service}
	doc.Header.UniqueID = ticket.UniqueID
	doc.Header.GenerationTime = ticket.Generated.In(model.ArgentinaTZ).Format(traTimestamp)
	doc.Header.ExpirationTime = ticket.Expires.In(model.ArgentinaTZ).Format(traTimestamp)

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("afip: encode login ticket request: %w", err)
	}
	return append(out, '\n'), nil
}

// SerializeAuth encodes an authorized ticket into the credential block
// required by every authenticated WSFE operation.
func SerializeAuth(ticket *model.AuthTicket, cuit int64) Auth {
	return Auth{Token: ticket.Token, Sign: ticket.Signature, Cuit: cuit}
}

// paramOperations maps each metadata kind to its WSFE operation. This is the
// whole difference between the upstream metadata "types": same schema, one
// operation name each.
var paramOperations = map[model.ParamKind]string{
	model.KindReceiptType:  "FEParamGetTiposCbte",
	model.KindConceptType:  "FEParamGetTiposConcepto",
	model.KindDocumentType: "FEParamGetTiposDoc",
	model.KindVatType:      "FEParamGetTiposIva",
	model.KindTaxType:      "FEParamGetTiposTributos",
	model.KindCurrencyType: "FEParamGetTiposMonedas",
	model.KindOptionalType: "FEParamGetTiposOpcional",
}

// ParamOperation resolves the WSFE operation that serves a metadata kind.
func ParamOperation(kind model.ParamKind) (string, error) {
	op, ok := paramOperations[kind]
	if !ok {
		return "", fmt.Errorf("afip: no metadata operation for kind %q", kind)
	}
	return op, nil
}

// SerializeReceiptBatch encodes a groupable batch into a WSFE submission
// block. Every receipt must already be numbered and must have its type,
// concept, document type, currency, vats and taxes loaded.
func SerializeReceiptBatch(receipts []*model.Receipt) (FECAERequest, error) {
	var req FECAERequest
	if len(receipts) == 0 {
		return req, fmt.Errorf("afip: empty receipt batch")
	}

	first := receipts[0]
	typeCode, err := strconv.Atoi(first.ReceiptType.Code)
	if err != nil {
		return req, fmt.Errorf("afip: receipt type code %q: %w", first.ReceiptType.Code, err)
	}
	req.Header = FECAEHeader{
		CantReg:  len(receipts),
		PtoVta:   first.PointOfSales.Number,
		CbteTipo: typeCode,
	}

	for _, r := range receipts {
		detail, err := serializeReceipt(r)
		if err != nil {
			return req, err
		}
		req.Details = append(req.Details, detail)
	}
	return req, nil
}

func serializeReceipt(r *model.Receipt) (FECAEDetail, error) {
	var d FECAEDetail
	if r.ReceiptNumber == nil {
		return d, fmt.Errorf("afip: receipt %s has no number assigned", r.ID)
	}

	concept, err := strconv.Atoi(r.Concept.Code)
	if err != nil {
		return d, fmt.Errorf("afip: concept code %q: %w", r.Concept.Code, err)
	}
	docType, err := strconv.Atoi(r.DocumentType.Code)
	if err != nil {
		return d, fmt.Errorf("afip: document type code %q: %w", r.DocumentType.Code, err)
	}

	d = FECAEDetail{
		Concepto:   concept,
		DocTipo:    docType,
		DocNro:     r.DocumentNumber,
		CbteDesde:  *r.ReceiptNumber,
		CbteHasta:  *r.ReceiptNumber,
		CbteFch:    FormatDate(r.IssuedDate),
		ImpTotal:   r.TotalAmount.StringFixed(2),
		ImpTotConc: r.NetUntaxed.StringFixed(2),
		ImpNeto:    r.NetTaxed.StringFixed(2),
		ImpOpEx:    r.ExemptAmount.StringFixed(2),
		ImpTrib:    r.TotalTax().StringFixed(2),
		ImpIVA:     r.TotalVat().StringFixed(2),
		MonId:      r.Currency.Code,
		MonCotiz:   r.CurrencyQuote.String(),
	}

	// Service dates only apply when the concept covers services.
	if concept != 1 {
		if r.ServiceStart != nil {
			d.FchServDesde = FormatDate(*r.ServiceStart)
		}
		if r.ServiceEnd != nil {
			d.FchServHasta = FormatDate(*r.ServiceEnd)
		}
		if r.ExpirationDate != nil {
			d.FchVtoPago = FormatDate(*r.ExpirationDate)
		}
	}

	if r.ClientVatCondition != nil {
		d.CondicionIVAReceptorId = r.ClientVatCondition.Code
	}

	for _, related := range r.RelatedReceipts {
		if related.ReceiptNumber == nil {
			continue
		}
		relType, err := strconv.Atoi(related.ReceiptType.Code)
		if err != nil {
			return d, fmt.Errorf("afip: related receipt type code %q: %w", related.ReceiptType.Code, err)
		}
		d.CbtesAsoc = append(d.CbtesAsoc, AssociatedReceipt{
			Tipo:   relType,
			PtoVta: related.PointOfSales.Number,
			Nro:    *related.ReceiptNumber,
		})
	}

	for _, tax := range r.Taxes {
		d.Tributos = append(d.Tributos, TributoEntry{
			Id:      tax.TaxType.Code,
			Desc:    tax.Description,
			BaseImp: tax.BaseAmount.StringFixed(2),
			Alic:    tax.Aliquot.StringFixed(2),
			Importe: tax.Amount.StringFixed(2),
		})
	}

	for _, vat := range r.Vats {
		d.Iva = append(d.Iva, AlicIvaEntry{
			Id:      vat.VatType.Code,
			BaseImp: vat.BaseAmount.StringFixed(2),
			Importe: vat.Amount.StringFixed(2),
		})
	}

	for _, opt := range r.Optionals {
		d.Opcional = append(d.Opcional, OpcionalEntry{
			Id:    opt.OptionalType.Code,
			Valor: opt.Value,
		})
	}

	return d, nil
}
