package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/poofware/fleet-service/internal/models"
)

// CurrentEnd is the latest subscription end date of one boitier.
type CurrentEnd struct {
	BoitierID int64
	EndDate   time.Time
}

type SubscriptionRepository interface {
	Create(ctx context.Context, s *models.Subscription) error
	ListByBoitierID(ctx context.Context, boitierID int64) ([]*models.Subscription, error)
	// ListCurrentEnds returns one row per boitier with its latest end date.
	ListCurrentEnds(ctx context.Context) ([]CurrentEnd, error)
	UpdateDates(ctx context.Context, s *models.Subscription) error
	DeleteByBoitierID(ctx context.Context, boitierID int64) error
}

type subscriptionRepo struct {
	db DB
}

func NewSubscriptionRepository(db DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) Create(ctx context.Context, s *models.Subscription) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO subscriptions (boitier_id, start_date, end_date, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, s.BoitierID, s.StartDate, s.EndDate).Scan(&s.ID, &s.CreatedAt)
}

func (r *subscriptionRepo) ListByBoitierID(ctx context.Context, boitierID int64) ([]*models.Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, boitier_id, start_date, end_date, created_at
		FROM subscriptions
		WHERE boitier_id=$1
		ORDER BY start_date, id
	`, boitierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.BoitierID, &s.StartDate, &s.EndDate, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *subscriptionRepo) ListCurrentEnds(ctx context.Context) ([]CurrentEnd, error) {
	rows, err := r.db.Query(ctx, `
		SELECT boitier_id, MAX(end_date)
		FROM subscriptions
		GROUP BY boitier_id
		ORDER BY boitier_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CurrentEnd
	for rows.Next() {
		var c CurrentEnd
		if err := rows.Scan(&c.BoitierID, &c.EndDate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *subscriptionRepo) UpdateDates(ctx context.Context, s *models.Subscription) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE subscriptions SET start_date=$1, end_date=$2 WHERE id=$3
	`, s.StartDate, s.EndDate, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *subscriptionRepo) DeleteByBoitierID(ctx context.Context, boitierID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE boitier_id=$1`, boitierID)
	return err
}
