package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"afipws/internal/afip"
	"afipws/internal/afipcrypto"
	"afipws/internal/model"
	"afipws/internal/repository"
)

// TaxpayerPicker chooses which taxpayer authenticates when the caller does
// not care. The default takes the first by name; multi-tenant deployments
// inject their own policy.
type TaxpayerPicker func(taxpayers []model.Taxpayer) *model.Taxpayer

// FirstTaxpayer is the default picker: deterministic, first row in name
// order.
func FirstTaxpayer(taxpayers []model.Taxpayer) *model.Taxpayer {
	if len(taxpayers) == 0 {
		return nil
	}
	return &taxpayers[0]
}

type TicketService interface {
	// Authorize creates, signs and submits a fresh ticket request, persisting
	// the ticket once WSAA grants credentials.
	Authorize(ctx context.Context, taxpayer *model.Taxpayer, service string) (*model.AuthTicket, error)
	// GetOrCreateTicket returns a live ticket for the taxpayer, authorizing a
	// new one only when none exists.
	GetOrCreateTicket(ctx context.Context, taxpayer *model.Taxpayer, service string) (*model.AuthTicket, error)
	// GetAnyActive returns any live ticket for the given service, picking a
	// taxpayer to authenticate with when none exists.
	GetAnyActive(ctx context.Context, service string) (*model.AuthTicket, error)
}

type ticketService struct {
	tickets   repository.AuthTicketRepository
	taxpayers repository.TaxpayerRepository
	gateway   afip.Gateway
	picker    TaxpayerPicker

	// group collapses concurrent refreshes of the same (taxpayer, service)
	// pair into one WSAA round trip.
	group singleflight.Group
}

func NewTicketService(
	tickets repository.AuthTicketRepository,
	taxpayers repository.TaxpayerRepository,
	gateway afip.Gateway,
	picker TaxpayerPicker,
) TicketService {
	if picker == nil {
		picker = FirstTaxpayer
	}
	return &ticketService{tickets: tickets, taxpayers: taxpayers, gateway: gateway, picker: picker}
}

func (s *ticketService) Authorize(ctx context.Context, taxpayer *model.Taxpayer, service string) (*model.AuthTicket, error) {
	ticket := model.NewAuthTicket(taxpayer, service)

	tra, err := afip.SerializeLoginTicketRequest(ticket)
	if err != nil {
		return nil, err
	}

	signed, err := afipcrypto.Sign(tra, certPEM(taxpayer), keyPEM(taxpayer))
	if err != nil {
		return nil, fmt.Errorf("sign login ticket request: %w", err)
	}
	cms := base64.StdEncoding.EncodeToString(signed)

	env := afip.EnvironmentFor(taxpayer.IsSandboxed)
	token, sign, err := s.gateway.LoginCms(ctx, env, cms)
	if err != nil {
		return nil, mapLoginError(err)
	}

	ticket.Token = token
	ticket.Signature = sign
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	log.Info().
		Int64("cuit", taxpayer.CUIT).
		Str("service", service).
		Time("expires", ticket.Expires).
		Msg("authorization ticket issued")
	return ticket, nil
}

// mapLoginError translates WSAA's two well-known certificate faults into
// sentinel errors; anything else fault-like becomes an AuthenticationError.
// Transport errors pass through untouched.
func mapLoginError(err error) error {
	var fault *afip.RemoteFault
	if !errors.As(err, &fault) {
		return err
	}
	switch {
	case strings.Contains(fault.Message, "Certificado expirado"):
		return ErrCertificateExpired
	case strings.Contains(fault.Message, "Certificado no emitido por AC de confianza"):
		return ErrUntrustedCertificate
	default:
		return &AuthenticationError{Err: fault}
	}
}

func (s *ticketService) GetOrCreateTicket(ctx context.Context, taxpayer *model.Taxpayer, service string) (*model.AuthTicket, error) {
	key := taxpayer.ID.String() + "/" + service
	v, err, _ := s.group.Do(key, func() (any, error) {
		ticket, err := s.tickets.FindActive(ctx, taxpayer.ID, service, time.Now())
		if err == nil {
			// Credentials are useless without the owner they sign for.
			if ticket.Owner == nil {
				ticket.Owner = taxpayer
			}
			return ticket, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return s.Authorize(ctx, taxpayer, service)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.AuthTicket), nil
}

func (s *ticketService) GetAnyActive(ctx context.Context, service string) (*model.AuthTicket, error) {
	taxpayers, err := s.taxpayers.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range taxpayers {
		ticket, err := s.tickets.FindActive(ctx, taxpayers[i].ID, service, time.Now())
		if err == nil {
			if ticket.Owner == nil {
				ticket.Owner = &taxpayers[i]
			}
			return ticket, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	taxpayer := s.picker(taxpayers)
	if taxpayer == nil {
		return nil, ErrNoTaxpayerAvailable
	}
	return s.GetOrCreateTicket(ctx, taxpayer, service)
}

func certPEM(t *model.Taxpayer) []byte {
	if t.Certificate == nil {
		return nil
	}
	return []byte(*t.Certificate)
}

func keyPEM(t *model.Taxpayer) []byte {
	if t.Key == nil {
		return nil
	}
	return []byte(*t.Key)
}
