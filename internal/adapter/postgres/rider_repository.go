package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

type riderRepository struct {
	db DB
}

func NewRiderRepository(db DB) interfaces.RiderRepository {
	return &riderRepository{db: db}
}

func (r *riderRepository) Create(ctx context.Context, rider *domain.Rider) error {
	query := `
		INSERT INTO riders (id, name, status, last_seen, deliveries_completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		rider.ID, rider.Name, string(rider.Status), rider.LastSeen, rider.DeliveriesCompleted, rider.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rider: %w", err)
	}
	return nil
}

func (r *riderRepository) FindByID(ctx context.Context, id string) (*domain.Rider, error) {
	query := `
		SELECT id, name, status, last_seen, deliveries_completed, created_at
		FROM riders
		WHERE id = $1
	`

	rider, err := scanRider(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRiderNotFound
		}
		return nil, fmt.Errorf("failed to find rider: %w", err)
	}
	return rider, nil
}

func (r *riderRepository) Update(ctx context.Context, rider *domain.Rider) error {
	query := `
		UPDATE riders
		SET name = $1, status = $2, last_seen = $3, deliveries_completed = $4
		WHERE id = $5
	`
	tag, err := r.db.Exec(ctx, query,
		rider.Name, string(rider.Status), rider.LastSeen, rider.DeliveriesCompleted, rider.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRiderNotFound
	}
	return nil
}

func (r *riderRepository) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE riders SET last_seen = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRiderNotFound
	}
	return nil
}

func (r *riderRepository) ListAll(ctx context.Context) ([]*domain.Rider, error) {
	query := `
		SELECT id, name, status, last_seen, deliveries_completed, created_at
		FROM riders
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list riders: %w", err)
	}
	defer rows.Close()

	var riders []*domain.Rider
	for rows.Next() {
		rider, err := scanRider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rider: %w", err)
		}
		riders = append(riders, rider)
	}

	return riders, rows.Err()
}

func (r *riderRepository) IncrementDeliveries(ctx context.Context, id string) error {
	query := `
		UPDATE riders
		SET deliveries_completed = deliveries_completed + 1
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment deliveries: %w", err)
	}
	return nil
}

func scanRider(row Row) (*domain.Rider, error) {
	var (
		rider  domain.Rider
		status string
	)
	if err := row.Scan(&rider.ID, &rider.Name, &status, &rider.LastSeen, &rider.DeliveriesCompleted, &rider.CreatedAt); err != nil {
		return nil, err
	}
	rider.Status = domain.RiderStatus(status)
	return &rider, nil
}
