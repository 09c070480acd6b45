package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"afipws/internal/afip"
	"afipws/internal/model"
	"afipws/internal/repository"
)

// SequencerService assigns AFIP-consecutive numbers to receipts. The remote
// last-authorized number is the source of truth: local state never advances
// the sequence on its own.
type SequencerService interface {
	// CheckGroupable verifies all receipts share one (point of sale, receipt
	// type) sequence.
	CheckGroupable(receipts []*model.Receipt) error
	// FetchLastReceiptNumber asks AFIP for the last authorized number of a
	// sequence.
	FetchLastReceiptNumber(ctx context.Context, pos *model.PointOfSales, receiptType *model.ParamType, ticket *model.AuthTicket) (int64, error)
	// AssignNumbers claims consecutive numbers for every unnumbered receipt,
	// in issued-date order. Claims are compare-and-set so a lost race leaves
	// the receipt unnumbered rather than double-assigned.
	AssignNumbers(ctx context.Context, tx *gorm.DB, receipts []*model.Receipt, ticket *model.AuthTicket) error
}

type sequencerService struct {
	receipts repository.ReceiptRepository
	gateway  afip.Gateway
}

func NewSequencerService(receipts repository.ReceiptRepository, gateway afip.Gateway) SequencerService {
	return &sequencerService{receipts: receipts, gateway: gateway}
}

func (s *sequencerService) CheckGroupable(receipts []*model.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}
	posID := receipts[0].PointOfSalesID
	typeID := receipts[0].ReceiptTypeID
	for _, r := range receipts[1:] {
		if r.PointOfSalesID != posID || r.ReceiptTypeID != typeID {
			return ErrCannotValidateTogether
		}
	}
	return nil
}

func (s *sequencerService) FetchLastReceiptNumber(ctx context.Context, pos *model.PointOfSales, receiptType *model.ParamType, ticket *model.AuthTicket) (int64, error) {
	typeCode, err := strconv.Atoi(receiptType.Code)
	if err != nil {
		return 0, err
	}
	env := afip.EnvironmentFor(ticket.Owner.IsSandboxed)
	auth := afip.SerializeAuth(ticket, ticket.Owner.CUIT)
	return s.gateway.LastAuthorized(ctx, env, auth, pos.Number, typeCode)
}

func (s *sequencerService) AssignNumbers(ctx context.Context, tx *gorm.DB, receipts []*model.Receipt, ticket *model.AuthTicket) error {
	var first *model.Receipt
	for _, r := range receipts {
		if r.ReceiptNumber == nil {
			first = r
			break
		}
	}
	if first == nil {
		return nil
	}

	next, err := s.FetchLastReceiptNumber(ctx, first.PointOfSales, first.ReceiptType, ticket)
	if err != nil {
		return err
	}
	next++

	// Receipts arrive ordered by (issued date, creation order); numbers
	// follow that order so AFIP's date monotonicity check passes.
	for _, r := range receipts {
		if r.ReceiptNumber != nil {
			continue
		}
		claimed, err := s.receipts.ClaimNumber(ctx, tx, r.ID, next)
		if err != nil {
			return err
		}
		if !claimed {
			// Concurrent claim on this receipt; its number belongs to the
			// competing batch now.
			log.Warn().
				Str("receipt_id", r.ID.String()).
				Int64("number", next).
				Msg("lost receipt number claim, skipping")
			continue
		}
		n := next
		r.ReceiptNumber = &n
		next++
	}
	return nil
}
