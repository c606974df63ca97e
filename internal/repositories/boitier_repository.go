package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/poofware/fleet-service/internal/models"
)

// BoitierFilter narrows boitier listings. Assigned nil means "any".
type BoitierFilter struct {
	Assigned  *bool
	VehicleID int64
	Search    string // matches device IMEI or SIM phone
}

type BoitierRepository interface {
	Create(ctx context.Context, b *models.Boitier) error

	GetByID(ctx context.Context, id int64) (*models.Boitier, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Boitier, error)
	ListByVehicleID(ctx context.Context, vehicleID int64) ([]*models.Boitier, error)
	List(ctx context.Context, f BoitierFilter, p Page) ([]*models.Boitier, int, error)

	Update(ctx context.Context, b *models.Boitier) error
	Delete(ctx context.Context, id int64) error
}

type boitierRepo struct {
	db DB
}

func NewBoitierRepository(db DB) BoitierRepository {
	return &boitierRepo{db: db}
}

func (r *boitierRepo) Create(ctx context.Context, b *models.Boitier) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO boitiers (device_id, sim_id, vehicle_id, traccar_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`, b.DeviceID, b.SimID, b.VehicleID, b.TraccarID).Scan(&b.ID, &b.CreatedAt)
}

func (r *boitierRepo) GetByID(ctx context.Context, id int64) (*models.Boitier, error) {
	return scanBoitier(r.db.QueryRow(ctx, baseSelectBoitier()+" WHERE b.id=$1", id))
}

func (r *boitierRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Boitier, error) {
	return scanBoitier(r.db.QueryRow(ctx, baseSelectBoitier()+" WHERE b.id=$1 FOR UPDATE", id))
}

func (r *boitierRepo) ListByVehicleID(ctx context.Context, vehicleID int64) ([]*models.Boitier, error) {
	rows, err := r.db.Query(ctx, baseSelectBoitier()+" WHERE b.vehicle_id=$1 ORDER BY b.id", vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBoitiers(rows)
}

func (r *boitierRepo) List(ctx context.Context, f BoitierFilter, p Page) ([]*models.Boitier, int, error) {
	var w where
	if f.Assigned != nil {
		if *f.Assigned {
			w.add("b.vehicle_id IS NOT NULL")
		} else {
			w.add("b.vehicle_id IS NULL")
		}
	}
	if f.VehicleID != 0 {
		w.add("b.vehicle_id=?", f.VehicleID)
	}
	if f.Search != "" {
		w.add(`EXISTS (
			SELECT 1 FROM devices d, sims s
			WHERE d.id = b.device_id AND s.id = b.sim_id
			  AND (d.imei ILIKE ? OR s.phone ILIKE ?))`, "%"+f.Search+"%", "%"+f.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM boitiers b"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, args := w.pageSQL(p)
	rows, err := r.db.Query(ctx, baseSelectBoitier()+w.sql()+" ORDER BY b.created_at DESC, b.id DESC"+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := scanBoitiers(rows)
	return out, total, err
}

func (r *boitierRepo) Update(ctx context.Context, b *models.Boitier) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE boitiers
		SET device_id=$1, sim_id=$2, vehicle_id=$3, traccar_id=$4
		WHERE id=$5
	`, b.DeviceID, b.SimID, b.VehicleID, b.TraccarID, b.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *boitierRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM boitiers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func baseSelectBoitier() string {
	return `
		SELECT b.id, b.device_id, b.sim_id, b.vehicle_id, b.traccar_id, b.created_at
		FROM boitiers b`
}

func scanBoitier(row pgx.Row) (*models.Boitier, error) {
	var b models.Boitier
	if err := row.Scan(&b.ID, &b.DeviceID, &b.SimID, &b.VehicleID, &b.TraccarID, &b.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func scanBoitiers(rows pgx.Rows) ([]*models.Boitier, error) {
	var out []*models.Boitier
	for rows.Next() {
		b, err := scanBoitier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
