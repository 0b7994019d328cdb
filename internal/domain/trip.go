package domain

import "time"

type Trip struct {
	ID         int64
	Route      string
	Departure  string
	PriceCents int64
	SeatsTotal int
	SeatsLeft  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SoldOut reports whether no seats remain.
func (t Trip) SoldOut() bool {
	return t.SeatsLeft <= 0
}
