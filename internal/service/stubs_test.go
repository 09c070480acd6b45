package service

// In-memory collaborator stubs shared by the service tests. Each carries a
// compile-time interface check so a drifting repository signature fails the
// build here instead of at runtime.

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"afipws/internal/afip"
	"afipws/internal/model"
	"afipws/internal/repository"
)

// ── TaxpayerRepository stub ───────────────────────────────────────────────────

type stubTaxpayerRepo struct {
	taxpayers []model.Taxpayer
}

func (r *stubTaxpayerRepo) Create(_ context.Context, t *model.Taxpayer) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.taxpayers = append(r.taxpayers, *t)
	return nil
}

func (r *stubTaxpayerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Taxpayer, error) {
	for i := range r.taxpayers {
		if r.taxpayers[i].ID == id {
			return &r.taxpayers[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubTaxpayerRepo) FindByCUIT(_ context.Context, cuit int64) (*model.Taxpayer, error) {
	for i := range r.taxpayers {
		if r.taxpayers[i].CUIT == cuit {
			return &r.taxpayers[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubTaxpayerRepo) List(_ context.Context) ([]model.Taxpayer, error) {
	out := make([]model.Taxpayer, len(r.taxpayers))
	copy(out, r.taxpayers)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubTaxpayerRepo) Update(_ context.Context, t *model.Taxpayer) error {
	for i := range r.taxpayers {
		if r.taxpayers[i].ID == t.ID {
			r.taxpayers[i] = *t
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubTaxpayerRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i := range r.taxpayers {
		if r.taxpayers[i].ID == id {
			r.taxpayers = append(r.taxpayers[:i], r.taxpayers[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ repository.TaxpayerRepository = (*stubTaxpayerRepo)(nil)

// ── AuthTicketRepository stub ─────────────────────────────────────────────────

type stubTicketRepo struct {
	tickets []model.AuthTicket
}

func (r *stubTicketRepo) Create(_ context.Context, t *model.AuthTicket) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.tickets = append(r.tickets, *t)
	return nil
}

func (r *stubTicketRepo) FindActive(_ context.Context, ownerID uuid.UUID, service string, now time.Time) (*model.AuthTicket, error) {
	var best *model.AuthTicket
	for i := range r.tickets {
		t := &r.tickets[i]
		if t.OwnerID != ownerID || t.Service != service || !now.Before(t.Expires) {
			continue
		}
		if best == nil || t.Expires.After(best.Expires) {
			best = t
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (r *stubTicketRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var kept []model.AuthTicket
	var dropped int64
	for _, t := range r.tickets {
		if now.Before(t.Expires) {
			kept = append(kept, t)
		} else {
			dropped++
		}
	}
	r.tickets = kept
	return dropped, nil
}

var _ repository.AuthTicketRepository = (*stubTicketRepo)(nil)

// ── ReceiptRepository stub ────────────────────────────────────────────────────

type stubReceiptRepo struct {
	receipts []*model.Receipt // insertion order
	released []uuid.UUID
	// claimRejects simulates a concurrent claim on these receipt IDs.
	claimRejects map[uuid.UUID]bool
	recentDate   *time.Time
	db           *gorm.DB
}

func newStubReceiptRepo() *stubReceiptRepo {
	return &stubReceiptRepo{claimRejects: map[uuid.UUID]bool{}}
}

func (r *stubReceiptRepo) DB() *gorm.DB { return r.db }

func (r *stubReceiptRepo) Create(_ context.Context, _ *gorm.DB, receipt *model.Receipt) error {
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	receipt.CreatedAt = time.Now()
	r.receipts = append(r.receipts, receipt)
	return nil
}

func (r *stubReceiptRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Receipt, error) {
	for _, rec := range r.receipts {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubReceiptRepo) FindByNumber(_ context.Context, posID, typeID uuid.UUID, number int64) (*model.Receipt, error) {
	for _, rec := range r.receipts {
		if rec.PointOfSalesID == posID && rec.ReceiptTypeID == typeID &&
			rec.ReceiptNumber != nil && *rec.ReceiptNumber == number {
			return rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubReceiptRepo) FindForValidation(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*model.Receipt, error) {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*model.Receipt
	for _, rec := range r.receipts {
		if wanted[rec.ID] {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IssuedDate.Before(out[j].IssuedDate) })
	return out, nil
}

func (r *stubReceiptRepo) List(_ context.Context, _ repository.ReceiptFilter) ([]model.Receipt, int64, error) {
	out := make([]model.Receipt, len(r.receipts))
	for i, rec := range r.receipts {
		out[i] = *rec
	}
	return out, int64(len(out)), nil
}

func (r *stubReceiptRepo) ClaimNumber(_ context.Context, _ *gorm.DB, id uuid.UUID, number int64) (bool, error) {
	if r.claimRejects[id] {
		return false, nil
	}
	for _, rec := range r.receipts {
		if rec.ID == id {
			if rec.ReceiptNumber != nil {
				return false, nil
			}
			n := number
			rec.ReceiptNumber = &n
			return true, nil
		}
	}
	return false, gorm.ErrRecordNotFound
}

func (r *stubReceiptRepo) ReleaseNumbers(_ context.Context, ids []uuid.UUID) (int64, error) {
	var released int64
	for _, id := range ids {
		for _, rec := range r.receipts {
			if rec.ID == id && rec.Validation == nil && rec.ReceiptNumber != nil {
				rec.ReceiptNumber = nil
				r.released = append(r.released, id)
				released++
			}
		}
	}
	return released, nil
}

func (r *stubReceiptRepo) MostRecentApprovedDate(_ context.Context, _, _ uuid.UUID) (*time.Time, error) {
	return r.recentDate, nil
}

func (r *stubReceiptRepo) UpdateIssuedDate(_ context.Context, id uuid.UUID, date time.Time) (bool, error) {
	for _, rec := range r.receipts {
		if rec.ID == id {
			if rec.ReceiptNumber != nil {
				return false, nil
			}
			rec.IssuedDate = date
			return true, nil
		}
	}
	return false, nil
}

func (r *stubReceiptRepo) ListUnconfirmed(_ context.Context, limit int) ([]*model.Receipt, error) {
	var out []*model.Receipt
	for _, rec := range r.receipts {
		if rec.ReceiptNumber != nil && rec.Validation == nil {
			out = append(out, rec)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubReceiptRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, rec := range r.receipts {
		if rec.ID == id {
			r.receipts = append(r.receipts[:i], r.receipts[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ repository.ReceiptRepository = (*stubReceiptRepo)(nil)

// ── ValidationRepository / ObservationRepository stubs ────────────────────────

type stubValidationRepo struct {
	validations []*model.ReceiptValidation
}

func (r *stubValidationRepo) Create(_ context.Context, v *model.ReceiptValidation) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.validations = append(r.validations, v)
	return nil
}

func (r *stubValidationRepo) FindByReceiptID(_ context.Context, receiptID uuid.UUID) (*model.ReceiptValidation, error) {
	for _, v := range r.validations {
		if v.ReceiptID == receiptID {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubValidationRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, v := range r.validations {
		if v.ID == id {
			r.validations = append(r.validations[:i], r.validations[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ repository.ValidationRepository = (*stubValidationRepo)(nil)

type stubObservationRepo struct {
	observations []model.Observation
}

func (r *stubObservationRepo) GetOrCreate(_ context.Context, code int, message string) (*model.Observation, error) {
	for i := range r.observations {
		if r.observations[i].Code == code && r.observations[i].Message == message {
			return &r.observations[i], nil
		}
	}
	r.observations = append(r.observations, model.Observation{ID: uuid.New(), Code: code, Message: message})
	return &r.observations[len(r.observations)-1], nil
}

var _ repository.ObservationRepository = (*stubObservationRepo)(nil)

// ── ParamType / ClientVatCondition / PointOfSales stubs ───────────────────────

type stubParamTypeRepo struct {
	params []model.ParamType
}

func (r *stubParamTypeRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ParamType, error) {
	for i := range r.params {
		if r.params[i].ID == id {
			return &r.params[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubParamTypeRepo) FindByKindAndCode(_ context.Context, kind model.ParamKind, code string) (*model.ParamType, error) {
	for i := range r.params {
		if r.params[i].Kind == kind && r.params[i].Code == code {
			return &r.params[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubParamTypeRepo) ListByKind(_ context.Context, kind model.ParamKind) ([]model.ParamType, error) {
	var out []model.ParamType
	for _, p := range r.params {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubParamTypeRepo) GetOrCreate(_ context.Context, p *model.ParamType) (bool, error) {
	for i := range r.params {
		if r.params[i].Kind == p.Kind && r.params[i].Code == p.Code {
			*p = r.params[i]
			return false, nil
		}
	}
	p.ID = uuid.New()
	r.params = append(r.params, *p)
	return true, nil
}

var _ repository.ParamTypeRepository = (*stubParamTypeRepo)(nil)

type stubClientVatConditionRepo struct {
	conditions []model.ClientVatCondition
}

func (r *stubClientVatConditionRepo) List(_ context.Context) ([]model.ClientVatCondition, error) {
	return r.conditions, nil
}

func (r *stubClientVatConditionRepo) FindByCode(_ context.Context, code string) (*model.ClientVatCondition, error) {
	for i := range r.conditions {
		if r.conditions[i].Code == code {
			return &r.conditions[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubClientVatConditionRepo) UpdateOrCreate(_ context.Context, c *model.ClientVatCondition) (bool, error) {
	for i := range r.conditions {
		if r.conditions[i].Code == c.Code {
			r.conditions[i].Description = c.Description
			r.conditions[i].CmpClase = c.CmpClase
			*c = r.conditions[i]
			return false, nil
		}
	}
	c.ID = uuid.New()
	r.conditions = append(r.conditions, *c)
	return true, nil
}

var _ repository.ClientVatConditionRepository = (*stubClientVatConditionRepo)(nil)

type stubPointOfSalesRepo struct {
	points []model.PointOfSales
}

func (r *stubPointOfSalesRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PointOfSales, error) {
	for i := range r.points {
		if r.points[i].ID == id {
			return &r.points[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPointOfSalesRepo) FindByOwnerAndNumber(_ context.Context, ownerID uuid.UUID, number int) (*model.PointOfSales, error) {
	for i := range r.points {
		if r.points[i].OwnerID == ownerID && r.points[i].Number == number {
			return &r.points[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPointOfSalesRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.PointOfSales, error) {
	var out []model.PointOfSales
	for _, p := range r.points {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubPointOfSalesRepo) Create(_ context.Context, pos *model.PointOfSales) error {
	if pos.ID == uuid.Nil {
		pos.ID = uuid.New()
	}
	r.points = append(r.points, *pos)
	return nil
}

func (r *stubPointOfSalesRepo) Update(_ context.Context, pos *model.PointOfSales) error {
	for i := range r.points {
		if r.points[i].ID == pos.ID {
			r.points[i] = *pos
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

var _ repository.PointOfSalesRepository = (*stubPointOfSalesRepo)(nil)

// ── Gateway stub ──────────────────────────────────────────────────────────────

// stubGateway implements afip.Gateway with overridable behavior per method.
type stubGateway struct {
	loginFn     func(ctx context.Context, env afip.Environment, cms string) (string, string, error)
	authorizeFn func(ctx context.Context, env afip.Environment, auth afip.Auth, req afip.FECAERequest) (*afip.FECAEResponse, error)
	lastFn      func(ctx context.Context, env afip.Environment, auth afip.Auth, pos, receiptType int) (int64, error)
	queryFn     func(ctx context.Context, env afip.Environment, auth afip.Auth, q afip.ReceiptQuery) (*afip.ReceiptInfo, error)
	posFn       func(ctx context.Context, env afip.Environment, auth afip.Auth) ([]afip.PointOfSaleRecord, error)
	paramsFn    func(ctx context.Context, env afip.Environment, auth afip.Auth, operation string) ([]afip.ParamRecord, error)
	condFn      func(ctx context.Context, env afip.Environment, auth afip.Auth) ([]afip.ClientVatRecord, error)
}

func (g *stubGateway) LoginCms(ctx context.Context, env afip.Environment, cms string) (string, string, error) {
	if g.loginFn == nil {
		return "stub-token", "stub-sign", nil
	}
	return g.loginFn(ctx, env, cms)
}

func (g *stubGateway) AuthorizeReceipts(ctx context.Context, env afip.Environment, auth afip.Auth, req afip.FECAERequest) (*afip.FECAEResponse, error) {
	return g.authorizeFn(ctx, env, auth, req)
}

func (g *stubGateway) LastAuthorized(ctx context.Context, env afip.Environment, auth afip.Auth, pos, receiptType int) (int64, error) {
	if g.lastFn == nil {
		return 0, nil
	}
	return g.lastFn(ctx, env, auth, pos, receiptType)
}

func (g *stubGateway) QueryReceipt(ctx context.Context, env afip.Environment, auth afip.Auth, q afip.ReceiptQuery) (*afip.ReceiptInfo, error) {
	return g.queryFn(ctx, env, auth, q)
}

func (g *stubGateway) FetchPointsOfSales(ctx context.Context, env afip.Environment, auth afip.Auth) ([]afip.PointOfSaleRecord, error) {
	return g.posFn(ctx, env, auth)
}

func (g *stubGateway) FetchParams(ctx context.Context, env afip.Environment, auth afip.Auth, operation string) ([]afip.ParamRecord, error) {
	return g.paramsFn(ctx, env, auth, operation)
}

func (g *stubGateway) FetchClientVatConditions(ctx context.Context, env afip.Environment, auth afip.Auth) ([]afip.ClientVatRecord, error) {
	return g.condFn(ctx, env, auth)
}

var _ afip.Gateway = (*stubGateway)(nil)

// ── Transaction-bound gorm handle ─────────────────────────────────────────────

// txConnPool mimics the connection gorm hands to transaction participants:
// a plain ConnPool that additionally commits and rolls back.
type txConnPool struct{}

func (txConnPool) PrepareContext(context.Context, string) (*sql.Stmt, error) { return nil, nil }
func (txConnPool) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (txConnPool) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (txConnPool) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
func (txConnPool) Commit() error                                                    { return nil }
func (txConnPool) Rollback() error                                                  { return nil }

var _ gorm.ConnPool = txConnPool{}
var _ gorm.TxCommitter = txConnPool{}

// transactionDB builds a gorm handle that reports as being inside a
// transaction without touching a database.
func transactionDB() *gorm.DB {
	return &gorm.DB{Statement: &gorm.Statement{ConnPool: txConnPool{}}}
}
