package domain

import "time"

// Booking is an append-only reservation of seats on a trip.
type Booking struct {
	ID               int64
	Reference        string
	TripID           int64
	UserID           *int64
	PassengerName    string
	PassengerContact string
	SeatsBooked      int
	CreatedAt        time.Time
}

// BookingView is a booking joined with the trip it belongs to, as shown in
// booking history and on tickets.
type BookingView struct {
	Booking
	Route      string
	Departure  string
	PriceCents int64
}

// TotalCents is the amount charged for the booking.
func (b BookingView) TotalCents() int64 {
	return b.PriceCents * int64(b.SeatsBooked)
}
