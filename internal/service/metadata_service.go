package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"afipws/internal/afip"
	"afipws/internal/model"
	"afipws/internal/repository"
)

// MetadataService syncs AFIP's parameter tables and the taxpayer's registered
// points of sale into local storage.
type MetadataService interface {
	// PopulateParamType loads one metadata table, creating unseen rows.
	PopulateParamType(ctx context.Context, kind model.ParamKind, ticket *model.AuthTicket) (created int, err error)
	// PopulateAll loads every metadata table plus the client VAT condition
	// table, using any live ticket.
	PopulateAll(ctx context.Context) error
	// FetchPointsOfSales syncs the taxpayer's emission points, returning the
	// created or updated rows and how many were new. Blocked points of sale
	// unknown locally are not created.
	FetchPointsOfSales(ctx context.Context, taxpayer *model.Taxpayer, ticket *model.AuthTicket) ([]model.PointOfSales, int, error)
}

type metadataService struct {
	params     repository.ParamTypeRepository
	conditions repository.ClientVatConditionRepository
	pos        repository.PointOfSalesRepository
	tickets    TicketService
	gateway    afip.Gateway
}

func NewMetadataService(
	params repository.ParamTypeRepository,
	conditions repository.ClientVatConditionRepository,
	pos repository.PointOfSalesRepository,
	tickets TicketService,
	gateway afip.Gateway,
) MetadataService {
	return &metadataService{
		params:     params,
		conditions: conditions,
		pos:        pos,
		tickets:    tickets,
		gateway:    gateway,
	}
}

func (s *metadataService) PopulateParamType(ctx context.Context, kind model.ParamKind, ticket *model.AuthTicket) (int, error) {
	operation, err := afip.ParamOperation(kind)
	if err != nil {
		return 0, err
	}

	if ticket == nil {
		ticket, err = s.tickets.GetAnyActive(ctx, afip.ServiceWSFE)
		if err != nil {
			return 0, err
		}
	}

	env := afip.EnvironmentFor(ticket.Owner.IsSandboxed)
	auth := afip.SerializeAuth(ticket, ticket.Owner.CUIT)
	records, err := s.gateway.FetchParams(ctx, env, auth, operation)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, rec := range records {
		validFrom, err := afip.ParseDateMaybe(rec.FchDesde)
		if err != nil {
			return created, err
		}
		// AFIP writes the literal string "NULL" for open-ended rows.
		validTo := rec.FchHasta
		if validTo == "NULL" {
			validTo = ""
		}
		until, err := afip.ParseDateMaybe(validTo)
		if err != nil {
			return created, err
		}

		p := &model.ParamType{
			Kind:        kind,
			Code:        rec.Id,
			Description: rec.Desc,
			ValidFrom:   validFrom,
			ValidTo:     until,
		}
		isNew, err := s.params.GetOrCreate(ctx, p)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}

	log.Info().Str("kind", string(kind)).Int("created", created).Msg("metadata table populated")
	return created, nil
}

func (s *metadataService) PopulateAll(ctx context.Context) error {
	ticket, err := s.tickets.GetAnyActive(ctx, afip.ServiceWSFE)
	if err != nil {
		return err
	}
	for _, kind := range model.ParamKinds() {
		if _, err := s.PopulateParamType(ctx, kind, ticket); err != nil {
			return err
		}
	}
	return s.populateClientVatConditions(ctx, ticket)
}

func (s *metadataService) populateClientVatConditions(ctx context.Context, ticket *model.AuthTicket) error {
	env := afip.EnvironmentFor(ticket.Owner.IsSandboxed)
	auth := afip.SerializeAuth(ticket, ticket.Owner.CUIT)
	records, err := s.gateway.FetchClientVatConditions(ctx, env, auth)
	if err != nil {
		return err
	}
	for _, rec := range records {
		c := &model.ClientVatCondition{
			Code:        rec.Id,
			Description: rec.Desc,
			CmpClase:    rec.CmpClase,
		}
		if _, err := s.conditions.UpdateOrCreate(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *metadataService) FetchPointsOfSales(ctx context.Context, taxpayer *model.Taxpayer, ticket *model.AuthTicket) ([]model.PointOfSales, int, error) {
	var err error
	if ticket == nil {
		ticket, err = s.tickets.GetOrCreateTicket(ctx, taxpayer, afip.ServiceWSFE)
		if err != nil {
			return nil, 0, err
		}
	}

	env := afip.EnvironmentFor(taxpayer.IsSandboxed)
	auth := afip.SerializeAuth(ticket, taxpayer.CUIT)
	records, err := s.gateway.FetchPointsOfSales(ctx, env, auth)
	if err != nil {
		return nil, 0, err
	}

	known, err := s.pos.ListByOwner(ctx, taxpayer.ID)
	if err != nil {
		return nil, 0, err
	}
	byNumber := make(map[int]*model.PointOfSales, len(known))
	for i := range known {
		byNumber[known[i].Number] = &known[i]
	}

	var synced []model.PointOfSales
	created := 0
	for _, rec := range records {
		dropDate, err := afip.ParseDateMaybe(rec.FchBaja)
		if err != nil {
			return synced, created, err
		}

		if existing, ok := byNumber[rec.Nro]; ok {
			if existing.IssuanceType == rec.EmisionTipo &&
				existing.Blocked == rec.Blocked() &&
				timePtrEqual(existing.DropDate, dropDate) {
				continue
			}
			existing.IssuanceType = rec.EmisionTipo
			existing.Blocked = rec.Blocked()
			existing.DropDate = dropDate
			if err := s.pos.Update(ctx, existing); err != nil {
				return synced, created, err
			}
			synced = append(synced, *existing)
			continue
		}

		// Blocked points of sale cannot emit; no point creating them.
		if rec.Blocked() {
			continue
		}
		pos := model.PointOfSales{
			Number:       rec.Nro,
			IssuanceType: rec.EmisionTipo,
			DropDate:     dropDate,
			OwnerID:      taxpayer.ID,
		}
		if err := s.pos.Create(ctx, &pos); err != nil {
			return synced, created, err
		}
		created++
		synced = append(synced, pos)
	}
	return synced, created, nil
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
