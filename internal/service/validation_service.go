package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"afipws/internal/afip"
	"afipws/internal/model"
	"afipws/internal/repository"
)

// ValidationService runs the CAE authorization pipeline: number assignment,
// batch submission and terminal validation records. It never retries on its
// own; retry policy lives in the worker layer.
type ValidationService interface {
	// Validate submits the given receipts to AFIP as one batch and returns
	// the rejection messages for receipts AFIP refused. An empty slice with a
	// nil error means every receipt was approved.
	Validate(ctx context.Context, ids []uuid.UUID, ticket *model.AuthTicket) ([]string, error)
	// Revalidate fetches the remote state of an already-submitted receipt and
	// persists a validation if AFIP reports it approved. Returns nil without
	// error when AFIP does not know the receipt or rejected it.
	Revalidate(ctx context.Context, receipt *model.Receipt) (*model.ReceiptValidation, error)
	// ApproximateDate pushes a stale issued date forward into AFIP's
	// acceptance window. Reports whether the date changed.
	ApproximateDate(ctx context.Context, receipt *model.Receipt) (bool, error)
}

type validationService struct {
	receipts     repository.ReceiptRepository
	validations  repository.ValidationRepository
	observations repository.ObservationRepository
	sequencer    SequencerService
	tickets      TicketService
	gateway      afip.Gateway
}

func NewValidationService(
	receipts repository.ReceiptRepository,
	validations repository.ValidationRepository,
	observations repository.ObservationRepository,
	sequencer SequencerService,
	tickets TicketService,
	gateway afip.Gateway,
) ValidationService {
	return &validationService{
		receipts:     receipts,
		validations:  validations,
		observations: observations,
		sequencer:    sequencer,
		tickets:      tickets,
		gateway:      gateway,
	}
}

func (s *validationService) Validate(ctx context.Context, ids []uuid.UUID, ticket *model.AuthTicket) ([]string, error) {
	// Numbers must be durably committed before the network call; an ambient
	// transaction would defer that commit and a later rollback could discard
	// numbers AFIP already approved.
	if repository.InTransaction(s.receipts.DB()) {
		return nil, ErrInsideTransaction
	}

	receipts, err := s.receipts.FindForValidation(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	// Receipts that already hold a validation are final.
	pending := receipts[:0]
	for _, r := range receipts {
		if r.Validation == nil {
			pending = append(pending, r)
		}
	}
	if err := s.sequencer.CheckGroupable(pending); err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	if ticket == nil {
		ticket, err = s.tickets.GetOrCreateTicket(ctx, pending[0].PointOfSales.Owner, afip.ServiceWSFE)
		if err != nil {
			return nil, err
		}
	}
	// A ticket loaded straight from storage may not carry its owner; the
	// batch's point of sales identifies the same taxpayer.
	if ticket.Owner == nil {
		ticket.Owner = pending[0].PointOfSales.Owner
	}

	// Durability checkpoint: numbers are committed before talking to AFIP,
	// so a crash mid-submission can be reconciled via Revalidate.
	err = runTx(ctx, s.receipts.DB(), func(tx *gorm.DB) error {
		return s.sequencer.AssignNumbers(ctx, tx, pending, ticket)
	})
	if err != nil {
		return nil, err
	}

	rejections, err := s.submit(ctx, pending, ticket)

	// Receipts that ended up without a validation give their numbers back so
	// the sequence has no holes on the next round. Failures here are logged,
	// not returned: the submission outcome is already decided.
	var unconfirmed []uuid.UUID
	for _, r := range pending {
		if r.Validation == nil {
			unconfirmed = append(unconfirmed, r.ID)
		}
	}
	if err == nil {
		if _, relErr := s.receipts.ReleaseNumbers(ctx, unconfirmed); relErr != nil {
			log.Error().Err(relErr).Msg("releasing unvalidated receipt numbers")
		}
	}

	return rejections, err
}

// submit runs one FECAESolicitar round trip and applies its results.
func (s *validationService) submit(ctx context.Context, receipts []*model.Receipt, ticket *model.AuthTicket) ([]string, error) {
	req, err := afip.SerializeReceiptBatch(receipts)
	if err != nil {
		return nil, err
	}

	owner := ticket.Owner
	env := afip.EnvironmentFor(owner.IsSandboxed)
	auth := afip.SerializeAuth(ticket, owner.CUIT)

	resp, err := s.gateway.AuthorizeReceipts(ctx, env, auth, req)
	if err != nil {
		// Transport errors and remote errors propagate as-is; numbered
		// receipts stay unconfirmed for Revalidate to reconcile.
		return nil, err
	}

	processed, err := afip.ParseDatetime(resp.Header.FchProceso)
	if err != nil {
		return nil, fmt.Errorf("parse processing date %q: %w", resp.Header.FchProceso, err)
	}

	byNumber := make(map[int64]*model.Receipt, len(receipts))
	for _, r := range receipts {
		byNumber[*r.ReceiptNumber] = r
	}

	var rejections []string
	for _, detail := range resp.Details {
		receipt := byNumber[detail.CbteDesde]
		if receipt == nil {
			log.Warn().Int64("number", detail.CbteDesde).Msg("result for unknown receipt number")
			continue
		}

		if detail.Resultado == model.ResultApproved {
			if err := s.recordApproval(ctx, receipt, &detail, processed); err != nil {
				return rejections, err
			}
			continue
		}

		for _, obs := range detail.Observations {
			rejections = append(rejections, fmt.Sprintf("Error %d: %s", obs.Code, obs.Msg))
		}
	}
	return rejections, nil
}

func (s *validationService) recordApproval(ctx context.Context, receipt *model.Receipt, detail *afip.FECAEDetailResponse, processed time.Time) error {
	expiration, err := afip.ParseDate(detail.CAEFchVto)
	if err != nil {
		return fmt.Errorf("parse CAE expiration %q: %w", detail.CAEFchVto, err)
	}

	validation := &model.ReceiptValidation{
		ReceiptID:     receipt.ID,
		Result:        model.ResultApproved,
		ProcessedDate: processed,
		CAE:           detail.CAE,
		CAEExpiration: expiration,
	}
	for _, o := range detail.Observations {
		obs, err := s.observations.GetOrCreate(ctx, o.Code, o.Msg)
		if err != nil {
			return err
		}
		validation.Observations = append(validation.Observations, *obs)
	}

	if err := s.validations.Create(ctx, validation); err != nil {
		return err
	}
	receipt.Validation = validation

	log.Info().
		Str("receipt", receipt.FormattedNumber()).
		Str("cae", validation.CAE).
		Msg("receipt validated")
	return nil
}

func (s *validationService) Revalidate(ctx context.Context, receipt *model.Receipt) (*model.ReceiptValidation, error) {
	if receipt.Validation != nil {
		return receipt.Validation, nil
	}
	if receipt.ReceiptNumber == nil {
		return nil, nil
	}

	owner := receipt.PointOfSales.Owner
	ticket, err := s.tickets.GetOrCreateTicket(ctx, owner, afip.ServiceWSFE)
	if err != nil {
		return nil, err
	}

	typeCode, err := strconv.Atoi(receipt.ReceiptType.Code)
	if err != nil {
		return nil, err
	}

	env := afip.EnvironmentFor(owner.IsSandboxed)
	auth := afip.SerializeAuth(ticket, owner.CUIT)
	info, err := s.gateway.QueryReceipt(ctx, env, auth, afip.ReceiptQuery{
		ReceiptType:   typeCode,
		ReceiptNumber: *receipt.ReceiptNumber,
		PointOfSales:  receipt.PointOfSales.Number,
	})
	if err != nil {
		// AFIP not knowing the receipt is a negative answer, not a failure.
		var remote *afip.RemoteError
		if errors.As(err, &remote) {
			return nil, nil
		}
		return nil, err
	}

	if info.Resultado != model.ResultApproved {
		return nil, nil
	}

	expiration, err := afip.ParseDate(info.FchVto)
	if err != nil {
		return nil, fmt.Errorf("parse CAE expiration %q: %w", info.FchVto, err)
	}
	processed, err := afip.ParseDatetime(info.FchProceso)
	if err != nil {
		return nil, fmt.Errorf("parse processing date %q: %w", info.FchProceso, err)
	}

	validation := &model.ReceiptValidation{
		ReceiptID:     receipt.ID,
		Result:        model.ResultApproved,
		ProcessedDate: processed,
		CAE:           info.CodAutorizacion,
		CAEExpiration: expiration,
	}
	for _, o := range info.Observations {
		obs, err := s.observations.GetOrCreate(ctx, o.Code, o.Msg)
		if err != nil {
			return nil, err
		}
		validation.Observations = append(validation.Observations, *obs)
	}
	if err := s.validations.Create(ctx, validation); err != nil {
		return nil, err
	}
	receipt.Validation = validation
	return validation, nil
}

func (s *validationService) ApproximateDate(ctx context.Context, receipt *model.Receipt) (bool, error) {
	if receipt.ReceiptNumber != nil {
		return false, nil
	}

	offset, ok := model.ReceiptDateOffset[receipt.Concept.Code]
	if !ok {
		return false, fmt.Errorf("no date offset for concept code %q", receipt.Concept.Code)
	}

	now := time.Now().In(model.ArgentinaTZ)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, model.ArgentinaTZ)
	oldest := today.AddDate(0, 0, -offset)

	// Never date a receipt before the newest approved one: AFIP requires
	// dates to be monotonic within a sequence.
	recent, err := s.receipts.MostRecentApprovedDate(ctx, receipt.PointOfSalesID, receipt.ReceiptTypeID)
	if err != nil {
		return false, err
	}
	if recent != nil && recent.After(oldest) {
		oldest = *recent
	}

	if !receipt.IssuedDate.Before(oldest) {
		return false, nil
	}

	ok, err = s.receipts.UpdateIssuedDate(ctx, receipt.ID, oldest)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("receipt %s was numbered concurrently, date left unchanged", receipt.ID)
	}
	receipt.IssuedDate = oldest
	return true, nil
}
