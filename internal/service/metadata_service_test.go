package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afipws/internal/afip"
	"afipws/internal/model"
)

type metadataFixture struct {
	params     *stubParamTypeRepo
	conditions *stubClientVatConditionRepo
	pos        *stubPointOfSalesRepo
	gateway    *stubGateway
	svc        MetadataService

	taxpayer *model.Taxpayer
	ticket   *model.AuthTicket
}

func newMetadataFixture(t *testing.T) *metadataFixture {
	t.Helper()

	taxpayer := testTaxpayer(t)
	ticket := model.NewAuthTicket(taxpayer, afip.ServiceWSFE)
	ticket.Token, ticket.Signature = "tok", "sig"

	f := &metadataFixture{
		params:     &stubParamTypeRepo{},
		conditions: &stubClientVatConditionRepo{},
		pos:        &stubPointOfSalesRepo{},
		gateway:    &stubGateway{},
		taxpayer:   taxpayer,
		ticket:     ticket,
	}

	tickets := &stubTicketRepo{}
	require.NoError(t, tickets.Create(context.Background(), ticket))
	taxpayers := &stubTaxpayerRepo{}
	require.NoError(t, taxpayers.Create(context.Background(), taxpayer))
	ticketSvc := NewTicketService(tickets, taxpayers, f.gateway, nil)

	f.svc = NewMetadataService(f.params, f.conditions, f.pos, ticketSvc, f.gateway)
	return f
}

func TestPopulateParamTypeCreatesOnce(t *testing.T) {
	f := newMetadataFixture(t)
	f.gateway.paramsFn = func(_ context.Context, _ afip.Environment, _ afip.Auth, operation string) ([]afip.ParamRecord, error) {
		assert.Equal(t, "FEParamGetTiposCbte", operation)
		return []afip.ParamRecord{
			{Id: "1", Desc: "Factura A", FchDesde: "20100917", FchHasta: "NULL"},
			{Id: "6", Desc: "Factura B", FchDesde: "20100917", FchHasta: "20301231"},
		}, nil
	}

	created, err := f.svc.PopulateParamType(context.Background(), model.KindReceiptType, f.ticket)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// AFIP's literal "NULL" means open-ended validity.
	got, err := f.params.FindByKindAndCode(context.Background(), model.KindReceiptType, "1")
	require.NoError(t, err)
	assert.Nil(t, got.ValidTo)
	require.NotNil(t, got.ValidFrom)

	bounded, err := f.params.FindByKindAndCode(context.Background(), model.KindReceiptType, "6")
	require.NoError(t, err)
	require.NotNil(t, bounded.ValidTo)

	// A second sync sees every row as known.
	created, err = f.svc.PopulateParamType(context.Background(), model.KindReceiptType, f.ticket)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, f.params.params, 2)
}

func TestPopulateAllCoversEveryKind(t *testing.T) {
	f := newMetadataFixture(t)

	var operations []string
	f.gateway.paramsFn = func(_ context.Context, _ afip.Environment, _ afip.Auth, operation string) ([]afip.ParamRecord, error) {
		operations = append(operations, operation)
		return []afip.ParamRecord{{Id: "1", Desc: "row", FchDesde: "20100917", FchHasta: "NULL"}}, nil
	}
	f.gateway.condFn = func(context.Context, afip.Environment, afip.Auth) ([]afip.ClientVatRecord, error) {
		return []afip.ClientVatRecord{
			{Id: "1", Desc: "IVA Responsable Inscripto", CmpClase: "A/M/C"},
			{Id: "5", Desc: "Consumidor Final", CmpClase: "B/C"},
		}, nil
	}

	require.NoError(t, f.svc.PopulateAll(context.Background()))
	assert.Len(t, operations, len(model.ParamKinds()))
	assert.Len(t, f.conditions.conditions, 2)

	// Idempotent: a second full sync updates in place.
	require.NoError(t, f.svc.PopulateAll(context.Background()))
	assert.Len(t, f.conditions.conditions, 2)
	assert.Len(t, f.params.params, len(model.ParamKinds()))
}

func TestFetchPointsOfSalesSync(t *testing.T) {
	f := newMetadataFixture(t)

	// Number 1 is already known and unchanged, number 2 known but blocked
	// remotely since the last sync.
	require.NoError(t, f.pos.Create(context.Background(), &model.PointOfSales{
		ID: uuid.New(), Number: 1, IssuanceType: "CAE", OwnerID: f.taxpayer.ID,
	}))
	require.NoError(t, f.pos.Create(context.Background(), &model.PointOfSales{
		ID: uuid.New(), Number: 2, IssuanceType: "CAE", OwnerID: f.taxpayer.ID,
	}))

	f.gateway.posFn = func(context.Context, afip.Environment, afip.Auth) ([]afip.PointOfSaleRecord, error) {
		return []afip.PointOfSaleRecord{
			{Nro: 1, EmisionTipo: "CAE", Bloqueado: "N"},
			{Nro: 2, EmisionTipo: "CAE", Bloqueado: "S", FchBaja: "20250801"},
			{Nro: 3, EmisionTipo: "CAE", Bloqueado: "N"},
			{Nro: 4, EmisionTipo: "CAE", Bloqueado: "S"},
		}, nil
	}

	synced, created, err := f.svc.FetchPointsOfSales(context.Background(), f.taxpayer, f.ticket)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Unchanged and blocked-unknown points of sale are left out.
	require.Len(t, synced, 2)
	assert.Equal(t, 2, synced[0].Number)
	assert.True(t, synced[0].Blocked)
	require.NotNil(t, synced[0].DropDate)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, model.ArgentinaTZ), synced[0].DropDate.In(model.ArgentinaTZ))
	assert.Equal(t, 3, synced[1].Number)

	// Number 4 was blocked and unknown: never created.
	_, err = f.pos.FindByOwnerAndNumber(context.Background(), f.taxpayer.ID, 4)
	assert.Error(t, err)
	assert.Len(t, f.pos.points, 3)
}

func TestFetchPointsOfSalesUnchangedIsNoop(t *testing.T) {
	f := newMetadataFixture(t)
	require.NoError(t, f.pos.Create(context.Background(), &model.PointOfSales{
		ID: uuid.New(), Number: 1, IssuanceType: "CAE", OwnerID: f.taxpayer.ID,
	}))
	f.gateway.posFn = func(context.Context, afip.Environment, afip.Auth) ([]afip.PointOfSaleRecord, error) {
		return []afip.PointOfSaleRecord{{Nro: 1, EmisionTipo: "CAE", Bloqueado: "N"}}, nil
	}

	synced, created, err := f.svc.FetchPointsOfSales(context.Background(), f.taxpayer, f.ticket)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, synced)
}
