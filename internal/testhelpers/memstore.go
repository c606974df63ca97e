package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/utils"
)

/* ───────────── in-memory store ───────────── */

type MemState struct {
	NextID   int64
	Devices  map[int64]models.Device
	Sims     map[int64]models.Sim
	Boitiers map[int64]models.Boitier
	Subs     map[int64]models.Subscription
	Vehicles map[int64]models.Vehicle
	Clients  map[int64]models.Client
	Ledger   map[string]models.StockLedgerEntry
}

func NewMemState() *MemState {
	return &MemState{
		Devices:  map[int64]models.Device{},
		Sims:     map[int64]models.Sim{},
		Boitiers: map[int64]models.Boitier{},
		Subs:     map[int64]models.Subscription{},
		Vehicles: map[int64]models.Vehicle{},
		Clients:  map[int64]models.Client{},
		Ledger:   map[string]models.StockLedgerEntry{},
	}
}

func (s *MemState) clone() *MemState {
	c := NewMemState()
	c.NextID = s.NextID
	for k, v := range s.Devices {
		v.BoitierID = copyPtr(v.BoitierID)
		c.Devices[k] = v
	}
	for k, v := range s.Sims {
		v.BoitierID = copyPtr(v.BoitierID)
		c.Sims[k] = v
	}
	for k, v := range s.Boitiers {
		v.VehicleID, v.TraccarID = copyPtr(v.VehicleID), copyPtr(v.TraccarID)
		c.Boitiers[k] = v
	}
	for k, v := range s.Subs {
		c.Subs[k] = v
	}
	for k, v := range s.Vehicles {
		c.Vehicles[k] = v
	}
	for k, v := range s.Clients {
		c.Clients[k] = v
	}
	for k, v := range s.Ledger {
		c.Ledger[k] = v
	}
	return c
}

func (s *MemState) id() int64 {
	s.NextID++
	return s.NextID
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MemUnitOfWork snapshots the state on WithinTx and restores it when fn fails.
type MemUnitOfWork struct {
	State *MemState
	Now   time.Time
}

func NewMemUnitOfWork(now time.Time) *MemUnitOfWork {
	return &MemUnitOfWork{State: NewMemState(), Now: now}
}

func (u *MemUnitOfWork) WithinTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	snapshot := u.State.clone()
	if err := fn(u); err != nil {
		u.State = snapshot
		return err
	}
	return nil
}

func (u *MemUnitOfWork) Devices() repositories.DeviceRepository             { return memDevices{u} }
func (u *MemUnitOfWork) Sims() repositories.SimRepository                   { return memSims{u} }
func (u *MemUnitOfWork) StockLedger() repositories.StockLedgerRepository    { return memLedger{u} }
func (u *MemUnitOfWork) Boitiers() repositories.BoitierRepository           { return memBoitiers{u} }
func (u *MemUnitOfWork) Subscriptions() repositories.SubscriptionRepository { return memSubs{u} }
func (u *MemUnitOfWork) Vehicles() repositories.VehicleRepository           { return memVehicles{u} }
func (u *MemUnitOfWork) Clients() repositories.ClientRepository             { return memClients{u} }

// uniqueViolation mirrors the error Postgres returns for a UNIQUE column.
func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func tagFor(n int) pgconn.CommandTag {
	return pgconn.CommandTag(fmt.Sprintf("UPDATE %d", n))
}

func statusIn(s models.UnitStatus, in []models.UnitStatus) bool {
	for _, x := range in {
		if x == s {
			return true
		}
	}
	return false
}

func pageOf[T any](items []T, p repositories.Page) []T {
	if p.Offset() >= len(items) {
		return nil
	}
	end := p.Offset() + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset():end]
}

type memDevices struct{ u *MemUnitOfWork }

func (r memDevices) Create(ctx context.Context, d *models.Device) error {
	d.ID = r.u.State.id()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.u.Now
	}
	r.u.State.Devices[d.ID] = *d
	return nil
}

func (r memDevices) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	d, ok := r.u.State.Devices[id]
	if !ok {
		return nil, nil
	}
	d.BoitierID = copyPtr(d.BoitierID)
	return &d, nil
}

func (r memDevices) GetByIMEI(ctx context.Context, imei string) (*models.Device, error) {
	for id, d := range r.u.State.Devices {
		if d.IMEI == imei {
			return r.GetByID(ctx, id)
		}
	}
	return nil, nil
}

func (r memDevices) List(ctx context.Context, f repositories.UnitFilter, p repositories.Page) ([]*models.Device, int, error) {
	var out []*models.Device
	for id, d := range r.u.State.Devices {
		if (f.Status == "" || d.Status == f.Status) && (f.Category == "" || d.DeviceType == f.Category) &&
			(f.Search == "" || strings.Contains(d.IMEI, f.Search)) {
			dd, _ := r.GetByID(ctx, id)
			out = append(out, dd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageOf(out, p), len(out), nil
}

func (r memDevices) UpdateStatus(ctx context.Context, id int64, from []models.UnitStatus, to models.UnitStatus, boitierID *int64) (pgconn.CommandTag, error) {
	d, ok := r.u.State.Devices[id]
	if !ok || !statusIn(d.Status, from) {
		return tagFor(0), nil
	}
	d.Status, d.BoitierID = to, copyPtr(boitierID)
	r.u.State.Devices[id] = d
	return tagFor(1), nil
}

func (r memDevices) Delete(ctx context.Context, id int64) error {
	if _, ok := r.u.State.Devices[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.u.State.Devices, id)
	return nil
}

type memSims struct{ u *MemUnitOfWork }

func (r memSims) Create(ctx context.Context, s *models.Sim) error {
	s.ID = r.u.State.id()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.u.Now
	}
	r.u.State.Sims[s.ID] = *s
	return nil
}

func (r memSims) GetByID(ctx context.Context, id int64) (*models.Sim, error) {
	s, ok := r.u.State.Sims[id]
	if !ok {
		return nil, nil
	}
	s.BoitierID = copyPtr(s.BoitierID)
	return &s, nil
}

func (r memSims) find(ctx context.Context, match func(models.Sim) bool) (*models.Sim, error) {
	for id, s := range r.u.State.Sims {
		if match(s) {
			return r.GetByID(ctx, id)
		}
	}
	return nil, nil
}

func (r memSims) GetByICCID(ctx context.Context, iccid string) (*models.Sim, error) {
	return r.find(ctx, func(s models.Sim) bool { return s.ICCID == iccid })
}

func (r memSims) GetByPhone(ctx context.Context, phone string) (*models.Sim, error) {
	return r.find(ctx, func(s models.Sim) bool { return s.Phone == phone })
}

func (r memSims) List(ctx context.Context, f repositories.UnitFilter, p repositories.Page) ([]*models.Sim, int, error) {
	var out []*models.Sim
	for id, s := range r.u.State.Sims {
		if (f.Status == "" || s.Status == f.Status) && (f.Category == "" || s.Operator == f.Category) {
			ss, _ := r.GetByID(ctx, id)
			out = append(out, ss)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageOf(out, p), len(out), nil
}

func (r memSims) UpdateStatus(ctx context.Context, id int64, from []models.UnitStatus, to models.UnitStatus, boitierID *int64) (pgconn.CommandTag, error) {
	s, ok := r.u.State.Sims[id]
	if !ok || !statusIn(s.Status, from) {
		return tagFor(0), nil
	}
	s.Status, s.BoitierID = to, copyPtr(boitierID)
	r.u.State.Sims[id] = s
	return tagFor(1), nil
}

func (r memSims) Delete(ctx context.Context, id int64) error {
	if _, ok := r.u.State.Sims[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.u.State.Sims, id)
	return nil
}

type memLedger struct{ u *MemUnitOfWork }

func ledgerMapKey(k models.StockLedgerKey) string {
	return string(k.Kind) + "|" + k.BucketDate.Format(utils.DateLayout) + "|" + k.Category
}

func (r memLedger) Increment(ctx context.Context, key models.StockLedgerKey) (int, error) {
	mk := ledgerMapKey(key)
	e, ok := r.u.State.Ledger[mk]
	if !ok {
		e = models.StockLedgerEntry{ID: r.u.State.id(), Kind: key.Kind, BucketDate: key.BucketDate, Category: key.Category}
	}
	e.Quantity++
	r.u.State.Ledger[mk] = e
	return e.Quantity, nil
}

func (r memLedger) Decrement(ctx context.Context, key models.StockLedgerKey) (int, bool, error) {
	mk := ledgerMapKey(key)
	e, ok := r.u.State.Ledger[mk]
	if !ok || e.Quantity <= 0 {
		return 0, false, nil
	}
	e.Quantity--
	r.u.State.Ledger[mk] = e
	return e.Quantity, true, nil
}

func (r memLedger) DeleteIfEmpty(ctx context.Context, key models.StockLedgerKey) error {
	mk := ledgerMapKey(key)
	if e, ok := r.u.State.Ledger[mk]; ok && e.Quantity <= 0 {
		delete(r.u.State.Ledger, mk)
	}
	return nil
}

func (r memLedger) Get(ctx context.Context, key models.StockLedgerKey) (*models.StockLedgerEntry, error) {
	e, ok := r.u.State.Ledger[ledgerMapKey(key)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r memLedger) List(ctx context.Context, f repositories.LedgerFilter) ([]*models.StockLedgerEntry, error) {
	var out []*models.StockLedgerEntry
	for _, e := range r.u.State.Ledger {
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if !f.From.IsZero() && e.BucketDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.BucketDate.After(f.To) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return ledgerMapKey(out[i].Key()) < ledgerMapKey(out[j].Key()) })
	return out, nil
}

type memBoitiers struct{ u *MemUnitOfWork }

func (r memBoitiers) Create(ctx context.Context, b *models.Boitier) error {
	for _, other := range r.u.State.Boitiers {
		if other.DeviceID == b.DeviceID {
			return uniqueViolation("boitiers_device_id_key")
		}
		if other.SimID == b.SimID {
			return uniqueViolation("boitiers_sim_id_key")
		}
	}
	b.ID = r.u.State.id()
	b.CreatedAt = r.u.Now
	r.u.State.Boitiers[b.ID] = *b
	return nil
}

func (r memBoitiers) GetByID(ctx context.Context, id int64) (*models.Boitier, error) {
	b, ok := r.u.State.Boitiers[id]
	if !ok {
		return nil, nil
	}
	b.VehicleID, b.TraccarID = copyPtr(b.VehicleID), copyPtr(b.TraccarID)
	return &b, nil
}

func (r memBoitiers) GetByIDForUpdate(ctx context.Context, id int64) (*models.Boitier, error) {
	return r.GetByID(ctx, id)
}

func (r memBoitiers) ListByVehicleID(ctx context.Context, vehicleID int64) ([]*models.Boitier, error) {
	var out []*models.Boitier
	for id, b := range r.u.State.Boitiers {
		if b.VehicleID != nil && *b.VehicleID == vehicleID {
			bb, _ := r.GetByID(ctx, id)
			out = append(out, bb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memBoitiers) List(ctx context.Context, f repositories.BoitierFilter, p repositories.Page) ([]*models.Boitier, int, error) {
	var out []*models.Boitier
	for id, b := range r.u.State.Boitiers {
		if f.Assigned != nil && *f.Assigned != b.IsAssigned() {
			continue
		}
		if f.VehicleID != 0 && (b.VehicleID == nil || *b.VehicleID != f.VehicleID) {
			continue
		}
		bb, _ := r.GetByID(ctx, id)
		out = append(out, bb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageOf(out, p), len(out), nil
}

func (r memBoitiers) Update(ctx context.Context, b *models.Boitier) error {
	if _, ok := r.u.State.Boitiers[b.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *b
	stored.VehicleID, stored.TraccarID = copyPtr(b.VehicleID), copyPtr(b.TraccarID)
	r.u.State.Boitiers[b.ID] = stored
	return nil
}

func (r memBoitiers) Delete(ctx context.Context, id int64) error {
	if _, ok := r.u.State.Boitiers[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.u.State.Boitiers, id)
	return nil
}

type memSubs struct{ u *MemUnitOfWork }

func (r memSubs) Create(ctx context.Context, s *models.Subscription) error {
	s.ID = r.u.State.id()
	s.CreatedAt = r.u.Now
	r.u.State.Subs[s.ID] = *s
	return nil
}

func (r memSubs) ListByBoitierID(ctx context.Context, boitierID int64) ([]*models.Subscription, error) {
	var out []*models.Subscription
	for _, s := range r.u.State.Subs {
		if s.BoitierID == boitierID {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memSubs) ListCurrentEnds(ctx context.Context) ([]repositories.CurrentEnd, error) {
	latest := map[int64]time.Time{}
	for _, s := range r.u.State.Subs {
		if cur, ok := latest[s.BoitierID]; !ok || s.EndDate.After(cur) {
			latest[s.BoitierID] = s.EndDate
		}
	}
	var out []repositories.CurrentEnd
	for id, end := range latest {
		out = append(out, repositories.CurrentEnd{BoitierID: id, EndDate: end})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BoitierID < out[j].BoitierID })
	return out, nil
}

func (r memSubs) UpdateDates(ctx context.Context, s *models.Subscription) error {
	stored, ok := r.u.State.Subs[s.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.StartDate, stored.EndDate = s.StartDate, s.EndDate
	r.u.State.Subs[s.ID] = stored
	return nil
}

func (r memSubs) DeleteByBoitierID(ctx context.Context, boitierID int64) error {
	for id, s := range r.u.State.Subs {
		if s.BoitierID == boitierID {
			delete(r.u.State.Subs, id)
		}
	}
	return nil
}

type memVehicles struct{ u *MemUnitOfWork }

func (r memVehicles) Create(ctx context.Context, v *models.Vehicle) error {
	for _, other := range r.u.State.Vehicles {
		if other.Matricule == v.Matricule {
			return uniqueViolation("vehicles_matricule_key")
		}
	}
	v.ID = r.u.State.id()
	v.CreatedAt, v.UpdatedAt = r.u.Now, r.u.Now
	r.u.State.Vehicles[v.ID] = *v
	return nil
}

func (r memVehicles) GetByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	v, ok := r.u.State.Vehicles[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r memVehicles) GetByMatricule(ctx context.Context, matricule string) (*models.Vehicle, error) {
	for _, v := range r.u.State.Vehicles {
		if v.Matricule == matricule {
			v := v
			return &v, nil
		}
	}
	return nil, nil
}

func (r memVehicles) List(ctx context.Context, f repositories.VehicleFilter, p repositories.Page) ([]*models.Vehicle, int, error) {
	var out []*models.Vehicle
	for _, v := range r.u.State.Vehicles {
		if f.ClientID != 0 && v.ClientID != f.ClientID {
			continue
		}
		v := v
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pageOf(out, p), len(out), nil
}

func (r memVehicles) Update(ctx context.Context, v *models.Vehicle) error {
	if _, ok := r.u.State.Vehicles[v.ID]; !ok {
		return pgx.ErrNoRows
	}
	v.UpdatedAt = r.u.Now
	r.u.State.Vehicles[v.ID] = *v
	return nil
}

func (r memVehicles) Delete(ctx context.Context, id int64) error {
	if _, ok := r.u.State.Vehicles[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.u.State.Vehicles, id)
	return nil
}

type memClients struct{ u *MemUnitOfWork }

func (r memClients) Create(ctx context.Context, c *models.Client) error {
	c.ID = r.u.State.id()
	c.CreatedAt = r.u.Now
	r.u.State.Clients[c.ID] = *c
	return nil
}

func (r memClients) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	c, ok := r.u.State.Clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
