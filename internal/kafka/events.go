package kafka

import "time"

const (
	EventBookingCreated         = "booking_created"
	EventTripCreated            = "trip_created"
	EventTripDeleted            = "trip_deleted"
	EventUserRegistered         = "user_registered"
	EventPasswordResetRequested = "password_reset_requested"
	EventPasswordChanged        = "password_changed"
)

// Event is the JSON payload written to the booking and notifications topics.
// Fields that do not apply to Type are left empty.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	UserID int64  `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`

	TripID    int64  `json:"trip_id,omitempty"`
	Route     string `json:"route,omitempty"`
	Departure string `json:"departure,omitempty"`

	BookingReference string `json:"booking_reference,omitempty"`
	PassengerName    string `json:"passenger_name,omitempty"`
	Seats            int    `json:"seats,omitempty"`
	SeatsLeft        int    `json:"seats_left,omitempty"`

	ResetToken     string    `json:"reset_token,omitempty"`
	ResetExpiresAt time.Time `json:"reset_expires_at,omitzero"`
}

// Notifies reports whether the event results in an email to a user.
func (e Event) Notifies() bool {
	if e.Email == "" {
		return false
	}
	switch e.Type {
	case EventBookingCreated, EventUserRegistered, EventPasswordResetRequested, EventPasswordChanged:
		return true
	}
	return false
}
