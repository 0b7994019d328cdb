package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Domenick1991/busbooking/internal/domain"
)

type TripRepository interface {
	List(ctx context.Context) ([]domain.Trip, error)
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
	Create(ctx context.Context, trip *domain.Trip) error
	// Delete removes a trip that has no bookings. A trip with bookings yields
	// a ConflictError and is left in place.
	Delete(ctx context.Context, id int64) error
}

type PGTripRepository struct {
	db *sql.DB
}

func NewTripRepository(db *sql.DB) TripRepository {
	return &PGTripRepository{db: db}
}

const tripColumns = `id, route, departure, price_cents, seats_total, seats_left, created_at, updated_at`

func (r *PGTripRepository) List(ctx context.Context) ([]domain.Trip, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tripColumns+` FROM trips ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	trips := make([]domain.Trip, 0)
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(&t.ID, &t.Route, &t.Departure, &t.PriceCents, &t.SeatsTotal, &t.SeatsLeft, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (r *PGTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
	var t domain.Trip
	if err := row.Scan(&t.ID, &t.Route, &t.Departure, &t.PriceCents, &t.SeatsTotal, &t.SeatsLeft, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "trip", Err: err}
		}
		return nil, fmt.Errorf("get trip %d: %w", id, err)
	}
	return &t, nil
}

func (r *PGTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	trip.SeatsLeft = trip.SeatsTotal
	err := r.db.QueryRowContext(ctx, `INSERT INTO trips (route, departure, price_cents, seats_total, seats_left)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at`, trip.Route, trip.Departure, trip.PriceCents, trip.SeatsTotal).
		Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

func (r *PGTripRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trips t
		WHERE t.id = $1 AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.trip_id = t.id)`, id)
	if err != nil {
		return fmt.Errorf("delete trip %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trip %d: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("lookup trip %d: %w", id, err)
	}
	if !exists {
		return domain.NotFoundError{Resource: "trip"}
	}
	return domain.ConflictError{Resource: "trip", Msg: "Trip has bookings and cannot be deleted."}
}

var _ TripRepository = (*PGTripRepository)(nil)
