package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"afipws/internal/dto"
	"afipws/internal/model"
	"afipws/internal/repository"
)

// ReceiptService creates and reads receipts through the HTTP surface,
// resolving AFIP type codes against the synced metadata tables.
type ReceiptService interface {
	Create(ctx context.Context, req dto.CreateReceiptRequest) (*dto.ReceiptResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ReceiptResponse, error)
	List(ctx context.Context, filter dto.ReceiptFilter) (*dto.ReceiptListResponse, error)
}

type receiptService struct {
	receipts   repository.ReceiptRepository
	params     repository.ParamTypeRepository
	conditions repository.ClientVatConditionRepository
	pos        repository.PointOfSalesRepository
}

func NewReceiptService(
	receipts repository.ReceiptRepository,
	params repository.ParamTypeRepository,
	conditions repository.ClientVatConditionRepository,
	pos repository.PointOfSalesRepository,
) ReceiptService {
	return &receiptService{receipts: receipts, params: params, conditions: conditions, pos: pos}
}

func (s *receiptService) Create(ctx context.Context, req dto.CreateReceiptRequest) (*dto.ReceiptResponse, error) {
	posID, err := uuid.Parse(req.PointOfSalesID)
	if err != nil {
		return nil, err
	}
	pointOfSales, err := s.pos.FindByID(ctx, posID)
	if err != nil {
		return nil, fmt.Errorf("point of sales %s: %w", req.PointOfSalesID, err)
	}

	receiptType, err := s.resolve(ctx, model.KindReceiptType, req.ReceiptTypeCode)
	if err != nil {
		return nil, err
	}
	concept, err := s.resolve(ctx, model.KindConceptType, req.ConceptCode)
	if err != nil {
		return nil, err
	}
	documentType, err := s.resolve(ctx, model.KindDocumentType, req.DocumentTypeCode)
	if err != nil {
		return nil, err
	}
	currency, err := s.resolve(ctx, model.KindCurrencyType, req.CurrencyCode)
	if err != nil {
		return nil, err
	}

	issued, err := time.ParseInLocation("2006-01-02", req.IssuedDate, model.ArgentinaTZ)
	if err != nil {
		return nil, err
	}

	quote := req.CurrencyQuote
	if quote.IsZero() {
		quote = decimal.NewFromInt(1)
	}

	receipt := &model.Receipt{
		PointOfSalesID: pointOfSales.ID,
		ReceiptTypeID:  receiptType.ID,
		ConceptID:      concept.ID,
		DocumentTypeID: documentType.ID,
		DocumentNumber: req.DocumentNumber,
		IssuedDate:     issued,
		TotalAmount:    req.TotalAmount,
		NetUntaxed:     req.NetUntaxed,
		NetTaxed:       req.NetTaxed,
		ExemptAmount:   req.ExemptAmount,
		CurrencyID:     currency.ID,
		CurrencyQuote:  quote,
	}

	if receipt.ServiceStart, err = parseDateMaybe(req.ServiceStart); err != nil {
		return nil, err
	}
	if receipt.ServiceEnd, err = parseDateMaybe(req.ServiceEnd); err != nil {
		return nil, err
	}
	if receipt.ExpirationDate, err = parseDateMaybe(req.ExpirationDate); err != nil {
		return nil, err
	}

	if req.ClientVatConditionCode != nil {
		cond, err := s.conditions.FindByCode(ctx, *req.ClientVatConditionCode)
		if err != nil {
			return nil, fmt.Errorf("client vat condition %q: %w", *req.ClientVatConditionCode, err)
		}
		receipt.ClientVatConditionID = &cond.ID
	}

	for _, idStr := range req.RelatedReceiptIDs {
		relID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		related, err := s.receipts.FindByID(ctx, relID)
		if err != nil {
			return nil, fmt.Errorf("related receipt %s: %w", idStr, err)
		}
		receipt.RelatedReceipts = append(receipt.RelatedReceipts, related)
	}

	for _, e := range req.Entries {
		entry := model.ReceiptEntry{
			Description: e.Description,
			Quantity:    e.Quantity,
			UnitPrice:   e.UnitPrice,
			Discount:    e.Discount,
		}
		if e.VatCode != nil {
			vt, err := s.resolve(ctx, model.KindVatType, *e.VatCode)
			if err != nil {
				return nil, err
			}
			entry.VatTypeID = &vt.ID
		}
		receipt.Entries = append(receipt.Entries, entry)
	}
	for _, v := range req.Vats {
		vt, err := s.resolve(ctx, model.KindVatType, v.VatCode)
		if err != nil {
			return nil, err
		}
		receipt.Vats = append(receipt.Vats, model.Vat{
			VatTypeID:  vt.ID,
			BaseAmount: v.BaseAmount,
			Amount:     v.Amount,
		})
	}
	for _, t := range req.Taxes {
		tt, err := s.resolve(ctx, model.KindTaxType, t.TaxCode)
		if err != nil {
			return nil, err
		}
		receipt.Taxes = append(receipt.Taxes, model.Tax{
			TaxTypeID:   tt.ID,
			Description: t.Description,
			BaseAmount:  t.BaseAmount,
			Aliquot:     t.Aliquot,
			Amount:      t.Amount,
		})
	}
	for _, o := range req.Optionals {
		ot, err := s.resolve(ctx, model.KindOptionalType, o.OptionalCode)
		if err != nil {
			return nil, err
		}
		receipt.Optionals = append(receipt.Optionals, model.Optional{
			OptionalTypeID: ot.ID,
			Value:          o.Value,
		})
	}

	// Receipt plus entries/vats/taxes as one atomic insert.
	err = runTx(ctx, s.receipts.DB(), func(tx *gorm.DB) error {
		return s.receipts.Create(ctx, tx, receipt)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, receipt.ID)
}

func (s *receiptService) Get(ctx context.Context, id uuid.UUID) (*dto.ReceiptResponse, error) {
	receipt, err := s.receipts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return receiptToResponse(receipt), nil
}

func (s *receiptService) List(ctx context.Context, filter dto.ReceiptFilter) (*dto.ReceiptListResponse, error) {
	repoFilter := repository.ReceiptFilter{
		Validated: filter.Validated,
		Page:      filter.Page,
		Limit:     filter.Limit,
	}
	if filter.PointOfSalesID != "" {
		posID, err := uuid.Parse(filter.PointOfSalesID)
		if err != nil {
			return nil, err
		}
		repoFilter.PointOfSalesID = &posID
	}
	if filter.ReceiptType != "" {
		rt, err := s.resolve(ctx, model.KindReceiptType, filter.ReceiptType)
		if err != nil {
			return nil, err
		}
		repoFilter.ReceiptTypeID = &rt.ID
	}

	receipts, total, err := s.receipts.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	resp := &dto.ReceiptListResponse{
		Data:  make([]dto.ReceiptResponse, len(receipts)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range receipts {
		resp.Data[i] = *receiptToResponse(&receipts[i])
	}
	return resp, nil
}

func (s *receiptService) resolve(ctx context.Context, kind model.ParamKind, code string) (*model.ParamType, error) {
	p, err := s.params.FindByKindAndCode(ctx, kind, code)
	if err != nil {
		return nil, fmt.Errorf("unknown %s code %q: %w", kind, code, err)
	}
	return p, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parseDateMaybe(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", *s, model.ArgentinaTZ)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func receiptToResponse(r *model.Receipt) *dto.ReceiptResponse {
	resp := &dto.ReceiptResponse{
		ID:              r.ID.String(),
		DocumentNumber:  r.DocumentNumber,
		ReceiptNumber:   r.ReceiptNumber,
		FormattedNumber: r.FormattedNumber(),
		IssuedDate:      r.IssuedDate.Format("2006-01-02"),
		TotalAmount:     r.TotalAmount,
		NetUntaxed:      r.NetUntaxed,
		NetTaxed:        r.NetTaxed,
		ExemptAmount:    r.ExemptAmount,
		TotalVat:        r.TotalVat(),
		TotalTax:        r.TotalTax(),
		CurrencyQuote:   r.CurrencyQuote,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.PointOfSales != nil {
		resp.PointOfSales = r.PointOfSales.Number
	}
	if r.ReceiptType != nil {
		resp.ReceiptType = r.ReceiptType.Code
	}
	if r.Concept != nil {
		resp.Concept = r.Concept.Code
	}
	if r.DocumentType != nil {
		resp.DocumentType = r.DocumentType.Code
	}
	if r.Currency != nil {
		resp.Currency = r.Currency.Code
	}

	for _, e := range r.Entries {
		entry := dto.EntryResponse{
			Description: e.Description,
			Quantity:    e.Quantity,
			UnitPrice:   e.UnitPrice,
			Discount:    e.Discount,
			TotalPrice:  e.TotalPrice(),
		}
		if e.VatType != nil {
			code := e.VatType.Code
			entry.VatCode = &code
		}
		resp.Entries = append(resp.Entries, entry)
	}

	if r.Validation != nil {
		v := &dto.ValidationResponse{
			Result:        r.Validation.Result,
			CAE:           r.Validation.CAE,
			CAEExpiration: r.Validation.CAEExpiration.Format("2006-01-02"),
			ProcessedDate: r.Validation.ProcessedDate.Format(time.RFC3339),
		}
		for _, o := range r.Validation.Observations {
			v.Observations = append(v.Observations, fmt.Sprintf("Error %d: %s", o.Code, o.Message))
		}
		resp.Validation = v
	}
	return resp
}
