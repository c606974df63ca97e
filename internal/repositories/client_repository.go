package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/poofware/fleet-service/internal/models"
)

type ClientRepository interface {
	Create(ctx context.Context, c *models.Client) error
	GetByID(ctx context.Context, id int64) (*models.Client, error)
}

type clientRepo struct {
	db DB
}

func NewClientRepository(db DB) ClientRepository {
	return &clientRepo{db: db}
}

func (r *clientRepo) Create(ctx context.Context, c *models.Client) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO clients (name, email, phone, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, c.Name, c.Email, c.Phone).Scan(&c.ID, &c.CreatedAt)
}

func (r *clientRepo) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	var c models.Client
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at FROM clients WHERE id=$1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
