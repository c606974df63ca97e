package repositories

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/fleet-service/internal/models"
)

type SimRepository interface {
	Create(ctx context.Context, s *models.Sim) error

	GetByID(ctx context.Context, id int64) (*models.Sim, error)
	GetByICCID(ctx context.Context, iccid string) (*models.Sim, error)
	GetByPhone(ctx context.Context, phone string) (*models.Sim, error)
	List(ctx context.Context, f UnitFilter, p Page) ([]*models.Sim, int, error)

	UpdateStatus(ctx context.Context, id int64, from []models.UnitStatus, to models.UnitStatus, boitierID *int64) (pgconn.CommandTag, error)
	Delete(ctx context.Context, id int64) error
}

type simRepo struct {
	db DB
}

func NewSimRepository(db DB) SimRepository {
	return &simRepo{db: db}
}

func (r *simRepo) Create(ctx context.Context, s *models.Sim) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO sims (iccid, phone, operator, status, boitier_id, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING id, created_at
	`, s.ICCID, s.Phone, s.Operator, string(s.Status), s.BoitierID, nullTime(s.CreatedAt)).Scan(&s.ID, &s.CreatedAt)
}

func (r *simRepo) GetByID(ctx context.Context, id int64) (*models.Sim, error) {
	return r.scanSim(r.db.QueryRow(ctx, baseSelectSim()+" WHERE id=$1", id))
}

func (r *simRepo) GetByICCID(ctx context.Context, iccid string) (*models.Sim, error) {
	return r.scanSim(r.db.QueryRow(ctx, baseSelectSim()+" WHERE iccid=$1", iccid))
}

func (r *simRepo) GetByPhone(ctx context.Context, phone string) (*models.Sim, error) {
	return r.scanSim(r.db.QueryRow(ctx, baseSelectSim()+" WHERE phone=$1", phone))
}

func (r *simRepo) List(ctx context.Context, f UnitFilter, p Page) ([]*models.Sim, int, error) {
	var w where
	if f.Status != "" {
		w.add("status=?", string(f.Status))
	}
	if f.Category != "" {
		w.add("operator=?", f.Category)
	}
	if f.Search != "" {
		w.add("(iccid ILIKE ? OR phone ILIKE ?)", "%"+f.Search+"%", "%"+f.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM sims"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, args := w.pageSQL(p)
	rows, err := r.db.Query(ctx, baseSelectSim()+w.sql()+" ORDER BY created_at DESC, id DESC"+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.Sim
	for rows.Next() {
		s, err := r.scanSim(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *simRepo) UpdateStatus(
	ctx context.Context,
	id int64,
	from []models.UnitStatus,
	to models.UnitStatus,
	boitierID *int64,
) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
		UPDATE sims
		SET status=$1, boitier_id=$2
		WHERE id=$3 AND status = ANY($4)
	`, string(to), boitierID, id, statusStrings(from))
}

func (r *simRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sims WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func baseSelectSim() string {
	return `
		SELECT id, iccid, phone, operator, status, boitier_id, created_at
		FROM sims`
}

func (r *simRepo) scanSim(row pgx.Row) (*models.Sim, error) {
	var s models.Sim
	if err := row.Scan(&s.ID, &s.ICCID, &s.Phone, &s.Operator, &s.Status, &s.BoitierID, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
