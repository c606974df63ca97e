package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/poofware/fleet-service/internal/models"
)

// VehicleFilter narrows vehicle listings; zero values mean "any".
type VehicleFilter struct {
	ClientID    int64
	VehicleType string
	Search      string
}

type VehicleRepository interface {
	Create(ctx context.Context, v *models.Vehicle) error

	GetByID(ctx context.Context, id int64) (*models.Vehicle, error)
	GetByMatricule(ctx context.Context, matricule string) (*models.Vehicle, error)
	List(ctx context.Context, f VehicleFilter, p Page) ([]*models.Vehicle, int, error)

	Update(ctx context.Context, v *models.Vehicle) error
	Delete(ctx context.Context, id int64) error
}

type vehicleRepo struct {
	db DB
}

func NewVehicleRepository(db DB) VehicleRepository {
	return &vehicleRepo{db: db}
}

func (r *vehicleRepo) Create(ctx context.Context, v *models.Vehicle) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO vehicles (matricule, client_id, vehicle_type, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, v.Matricule, v.ClientID, v.VehicleType).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

func (r *vehicleRepo) GetByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	return scanVehicle(r.db.QueryRow(ctx, baseSelectVehicle()+" WHERE id=$1", id))
}

func (r *vehicleRepo) GetByMatricule(ctx context.Context, matricule string) (*models.Vehicle, error) {
	return scanVehicle(r.db.QueryRow(ctx, baseSelectVehicle()+" WHERE matricule=$1", matricule))
}

func (r *vehicleRepo) List(ctx context.Context, f VehicleFilter, p Page) ([]*models.Vehicle, int, error) {
	var w where
	if f.ClientID != 0 {
		w.add("client_id=?", f.ClientID)
	}
	if f.VehicleType != "" {
		w.add("vehicle_type=?", f.VehicleType)
	}
	if f.Search != "" {
		w.add("matricule ILIKE ?", "%"+f.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM vehicles"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, args := w.pageSQL(p)
	rows, err := r.db.Query(ctx, baseSelectVehicle()+w.sql()+" ORDER BY created_at DESC, id DESC"+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *vehicleRepo) Update(ctx context.Context, v *models.Vehicle) error {
	return r.db.QueryRow(ctx, `
		UPDATE vehicles
		SET matricule=$1, client_id=$2, vehicle_type=$3, updated_at=NOW()
		WHERE id=$4
		RETURNING updated_at
	`, v.Matricule, v.ClientID, v.VehicleType, v.ID).Scan(&v.UpdatedAt)
}

func (r *vehicleRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func baseSelectVehicle() string {
	return `
		SELECT id, matricule, client_id, vehicle_type, created_at, updated_at
		FROM vehicles`
}

func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := row.Scan(&v.ID, &v.Matricule, &v.ClientID, &v.VehicleType, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
