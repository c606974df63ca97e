package repositories

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/fleet-service/internal/models"
)

/* ───────────── public interface ───────────── */

// UnitFilter narrows device and SIM listings. Zero values mean "any".
type UnitFilter struct {
	Status   models.UnitStatus
	Category string
	Search   string
}

type DeviceRepository interface {
	Create(ctx context.Context, d *models.Device) error

	GetByID(ctx context.Context, id int64) (*models.Device, error)
	GetByIMEI(ctx context.Context, imei string) (*models.Device, error)
	List(ctx context.Context, f UnitFilter, p Page) ([]*models.Device, int, error)

	// UpdateStatus moves the device to `to` and sets its boitier link, but
	// only while its current status is one of `from`.
	UpdateStatus(ctx context.Context, id int64, from []models.UnitStatus, to models.UnitStatus, boitierID *int64) (pgconn.CommandTag, error)
	Delete(ctx context.Context, id int64) error
}

/* ───────────── implementation ───────────── */

type deviceRepo struct {
	db DB
}

func NewDeviceRepository(db DB) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) Create(ctx context.Context, d *models.Device) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO devices (imei, device_type, status, boitier_id, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING id, created_at
	`, d.IMEI, d.DeviceType, string(d.Status), d.BoitierID, nullTime(d.CreatedAt)).Scan(&d.ID, &d.CreatedAt)
}

func (r *deviceRepo) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	row := r.db.QueryRow(ctx, baseSelectDevice()+" WHERE id=$1", id)
	return r.scanDevice(row)
}

func (r *deviceRepo) GetByIMEI(ctx context.Context, imei string) (*models.Device, error) {
	row := r.db.QueryRow(ctx, baseSelectDevice()+" WHERE imei=$1", imei)
	return r.scanDevice(row)
}

func (r *deviceRepo) List(ctx context.Context, f UnitFilter, p Page) ([]*models.Device, int, error) {
	var w where
	if f.Status != "" {
		w.add("status=?", string(f.Status))
	}
	if f.Category != "" {
		w.add("device_type=?", f.Category)
	}
	if f.Search != "" {
		w.add("imei ILIKE ?", "%"+f.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM devices"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, args := w.pageSQL(p)
	rows, err := r.db.Query(ctx, baseSelectDevice()+w.sql()+" ORDER BY created_at DESC, id DESC"+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.Device
	for rows.Next() {
		d, err := r.scanDevice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *deviceRepo) UpdateStatus(
	ctx context.Context,
	id int64,
	from []models.UnitStatus,
	to models.UnitStatus,
	boitierID *int64,
) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
		UPDATE devices
		SET status=$1, boitier_id=$2
		WHERE id=$3 AND status = ANY($4)
	`, string(to), boitierID, id, statusStrings(from))
}

func (r *deviceRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM devices WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

/* ---------- internals ---------- */

func baseSelectDevice() string {
	return `
		SELECT id, imei, device_type, status, boitier_id, created_at
		FROM devices`
}

func (r *deviceRepo) scanDevice(row pgx.Row) (*models.Device, error) {
	var d models.Device
	if err := row.Scan(&d.ID, &d.IMEI, &d.DeviceType, &d.Status, &d.BoitierID, &d.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
