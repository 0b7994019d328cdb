package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Domenick1991/busbooking/internal/domain"
)

type BookingRepository interface {
	// Create decrements the trip's seats_left and appends the booking in one
	// transaction and returns the trip as it stands after the decrement. It
	// returns ErrNotEnoughSeats or a NotFoundError without mutating anything
	// when the booking cannot be taken.
	Create(ctx context.Context, booking *domain.Booking) (*domain.Trip, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.BookingView, error)
	ListAll(ctx context.Context) ([]domain.BookingView, error)
	GetByReference(ctx context.Context, reference string) (*domain.BookingView, error)
}

type PGBookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingViewColumns = `b.id, b.reference, b.trip_id, b.user_id, b.passenger_name, b.passenger_contact, b.seats_booked, b.created_at,
	t.route, t.departure, t.price_cents`

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) (*domain.Trip, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback()

	// The predicate is re-checked against the locked row, so concurrent
	// bookings on the same trip cannot both take the last seats.
	trip := domain.Trip{ID: booking.TripID}
	err = tx.QueryRowContext(ctx, `UPDATE trips SET seats_left = seats_left - $2, updated_at = now()
		WHERE id = $1 AND seats_left >= $2
		RETURNING seats_left, seats_total, route, departure, price_cents`, booking.TripID, booking.SeatsBooked).
		Scan(&trip.SeatsLeft, &trip.SeatsTotal, &trip.Route, &trip.Departure, &trip.PriceCents)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, booking.TripID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("lookup trip %d: %w", booking.TripID, err)
		}
		if !exists {
			return nil, domain.NotFoundError{Resource: "trip"}
		}
		return nil, ErrNotEnoughSeats
	}
	if err != nil {
		return nil, fmt.Errorf("reserve seats on trip %d: %w", booking.TripID, err)
	}

	if err := tx.QueryRowContext(ctx, `INSERT INTO bookings (reference, trip_id, user_id, passenger_name, passenger_contact, seats_booked)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		booking.Reference, booking.TripID, nullInt64(booking.UserID), booking.PassengerName, booking.PassengerContact, booking.SeatsBooked).
		Scan(&booking.ID, &booking.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return &trip, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.BookingView, error) {
	return r.list(ctx, `SELECT `+bookingViewColumns+` FROM bookings b JOIN trips t ON t.id = b.trip_id
		WHERE b.user_id = $1 ORDER BY b.created_at DESC, b.id DESC`, userID)
}

func (r *PGBookingRepository) ListAll(ctx context.Context) ([]domain.BookingView, error) {
	return r.list(ctx, `SELECT `+bookingViewColumns+` FROM bookings b JOIN trips t ON t.id = b.trip_id
		ORDER BY b.created_at DESC, b.id DESC`)
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.BookingView, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingViewColumns+` FROM bookings b JOIN trips t ON t.id = b.trip_id
		WHERE b.reference = $1`, reference)
	v, err := scanBookingView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", reference, err)
	}
	return &v, nil
}

func (r *PGBookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.BookingView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.BookingView, 0)
	for rows.Next() {
		v, err := scanBookingView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, v)
	}
	return bookings, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBookingView(s scanner) (domain.BookingView, error) {
	var (
		v      domain.BookingView
		userID sql.NullInt64
	)
	if err := s.Scan(&v.ID, &v.Reference, &v.TripID, &userID, &v.PassengerName, &v.PassengerContact, &v.SeatsBooked, &v.CreatedAt,
		&v.Route, &v.Departure, &v.PriceCents); err != nil {
		return v, err
	}
	if userID.Valid {
		id := userID.Int64
		v.UserID = &id
	}
	return v, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

var _ BookingRepository = (*PGBookingRepository)(nil)
