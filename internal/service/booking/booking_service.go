package booking

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/google/uuid"
)

// InvalidSeatsMessage is shown for any seat count the ledger refuses.
const InvalidSeatsMessage = "Invalid number of seats selected."

type BookingUseCase interface {
	BookSeats(ctx context.Context, identity *auth.Identity, input BookSeatsInput) (*domain.Booking, error)
	ListBookings(ctx context.Context, identity auth.Identity) ([]domain.BookingView, error)
	GetBooking(ctx context.Context, identity auth.Identity, reference string) (*domain.BookingView, error)
}

type Cache interface {
	InvalidateTrips(ctx context.Context) error
}

type Emitter interface {
	Emit(ctx context.Context, key string, event kafka.Event) error
}

type BookingService struct {
	bookings repository.BookingRepository
	cache    Cache
	events   Emitter
}

type BookSeatsInput struct {
	TripID           int64  `json:"trip_id"`
	Seats            int    `json:"seats"`
	PassengerName    string `json:"passenger_name"`
	PassengerContact string `json:"passenger_contact"`
}

type BookingServiceOption func(*BookingService)

func WithCache(cache Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

func WithEmitter(events Emitter) BookingServiceOption {
	return func(s *BookingService) {
		s.events = events
	}
}

func NewBookingService(bookings repository.BookingRepository, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{bookings: bookings}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// BookSeats takes seats on a trip for the caller, who may be anonymous.
// A refused request leaves the trip and the booking table untouched.
func (s *BookingService) BookSeats(ctx context.Context, identity *auth.Identity, input BookSeatsInput) (*domain.Booking, error) {
	input.PassengerName = strings.TrimSpace(input.PassengerName)
	input.PassengerContact = strings.TrimSpace(input.PassengerContact)

	// seats_left is an INTEGER column; larger counts can never fit.
	if input.Seats <= 0 || input.Seats > math.MaxInt32 {
		return nil, domain.ValidationError{Field: "seats", Msg: InvalidSeatsMessage}
	}
	if input.PassengerName == "" {
		return nil, domain.ValidationError{Field: "passenger_name", Msg: "Passenger name is required."}
	}
	if input.PassengerContact == "" {
		return nil, domain.ValidationError{Field: "passenger_contact", Msg: "Passenger contact is required."}
	}

	booking := &domain.Booking{
		Reference:        uuid.NewString(),
		TripID:           input.TripID,
		PassengerName:    input.PassengerName,
		PassengerContact: input.PassengerContact,
		SeatsBooked:      input.Seats,
	}
	if identity != nil {
		userID := identity.UserID
		booking.UserID = &userID
	}

	trip, err := s.bookings.Create(ctx, booking)
	if err != nil {
		if errors.Is(err, repository.ErrNotEnoughSeats) {
			return nil, domain.ValidationError{Field: "seats", Msg: InvalidSeatsMessage}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateTrips(ctx); err != nil {
			log.Printf("WARNING: failed to invalidate trips cache after booking %s: %v", booking.Reference, err)
		}
	}

	event := kafka.Event{
		Type:             kafka.EventBookingCreated,
		TripID:           booking.TripID,
		Route:            trip.Route,
		Departure:        trip.Departure,
		BookingReference: booking.Reference,
		PassengerName:    booking.PassengerName,
		Seats:            booking.SeatsBooked,
		SeatsLeft:        trip.SeatsLeft,
	}
	if identity != nil {
		event.UserID = identity.UserID
		event.Email = identity.Email
		event.Name = identity.Name
	}
	s.emit(ctx, booking.Reference, event)

	return booking, nil
}

// ListBookings returns the caller's bookings, newest first. Admins see all bookings.
func (s *BookingService) ListBookings(ctx context.Context, identity auth.Identity) ([]domain.BookingView, error) {
	if identity.IsAdmin() {
		return s.bookings.ListAll(ctx)
	}
	return s.bookings.ListByUser(ctx, identity.UserID)
}

func (s *BookingService) GetBooking(ctx context.Context, identity auth.Identity, reference string) (*domain.BookingView, error) {
	if _, err := uuid.Parse(reference); err != nil {
		return nil, domain.NotFoundError{Resource: "booking"}
	}

	view, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	// Someone else's booking is reported as missing rather than forbidden.
	if !identity.IsAdmin() && (view.UserID == nil || *view.UserID != identity.UserID) {
		return nil, domain.NotFoundError{Resource: "booking"}
	}
	return view, nil
}

func (s *BookingService) emit(ctx context.Context, key string, event kafka.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for %s: %v", event.Type, key, err)
	}
}

var _ BookingUseCase = (*BookingService)(nil)
