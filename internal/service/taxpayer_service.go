package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"afipws/internal/dto"
	"afipws/internal/model"
	"afipws/internal/repository"
)

type TaxpayerService interface {
	Create(ctx context.Context, req dto.CreateTaxpayerRequest) (*dto.TaxpayerResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.TaxpayerResponse, error)
	List(ctx context.Context) ([]dto.TaxpayerResponse, error)
	// GenerateKey creates a private key for the taxpayer unless it already
	// has one. Reports whether a key was created.
	GenerateKey(ctx context.Context, id uuid.UUID) (bool, error)
	// GenerateCSR returns a PEM certificate signing request to upload to
	// AFIP's certificate management page.
	GenerateCSR(ctx context.Context, id uuid.UUID, basename string) ([]byte, error)
}

type taxpayerService struct {
	taxpayers repository.TaxpayerRepository
}

func NewTaxpayerService(taxpayers repository.TaxpayerRepository) TaxpayerService {
	return &taxpayerService{taxpayers: taxpayers}
}

func (s *taxpayerService) Create(ctx context.Context, req dto.CreateTaxpayerRequest) (*dto.TaxpayerResponse, error) {
	activeSince, err := time.ParseInLocation("2006-01-02", req.ActiveSince, model.ArgentinaTZ)
	if err != nil {
		return nil, err
	}
	taxpayer := &model.Taxpayer{
		Name:        req.Name,
		CUIT:        req.CUIT,
		Key:         req.Key,
		Certificate: req.Certificate,
		IsSandboxed: req.IsSandboxed,
		ActiveSince: activeSince,
	}
	if err := s.taxpayers.Create(ctx, taxpayer); err != nil {
		return nil, err
	}
	return taxpayerToResponse(taxpayer), nil
}

func (s *taxpayerService) Get(ctx context.Context, id uuid.UUID) (*dto.TaxpayerResponse, error) {
	taxpayer, err := s.taxpayers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return taxpayerToResponse(taxpayer), nil
}

func (s *taxpayerService) List(ctx context.Context) ([]dto.TaxpayerResponse, error) {
	taxpayers, err := s.taxpayers.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.TaxpayerResponse, len(taxpayers))
	for i := range taxpayers {
		resp[i] = *taxpayerToResponse(&taxpayers[i])
	}
	return resp, nil
}

func (s *taxpayerService) GenerateKey(ctx context.Context, id uuid.UUID) (bool, error) {
	taxpayer, err := s.taxpayers.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	created, err := taxpayer.GenerateKey(false)
	if err != nil || !created {
		return false, err
	}
	return true, s.taxpayers.Update(ctx, taxpayer)
}

func (s *taxpayerService) GenerateCSR(ctx context.Context, id uuid.UUID, basename string) ([]byte, error) {
	taxpayer, err := s.taxpayers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return taxpayer.GenerateCSR(basename)
}

func taxpayerToResponse(t *model.Taxpayer) *dto.TaxpayerResponse {
	resp := &dto.TaxpayerResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		CUIT:        t.CUIT,
		IsSandboxed: t.IsSandboxed,
		HasKey:      t.Key != nil && *t.Key != "",
		HasCertificate: t.Certificate != nil &&
			*t.Certificate != "",
		ActiveSince: t.ActiveSince.Format("2006-01-02"),
	}
	if t.CertificateExpiration != nil {
		s := t.CertificateExpiration.Format(time.RFC3339)
		resp.CertificateExpiration = &s
	}
	return resp
}
