package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotEnoughSeats is returned by the ledger when the guarded decrement
// matched the trip but it has fewer seats left than requested.
var ErrNotEnoughSeats = errors.New("not enough seats left")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
