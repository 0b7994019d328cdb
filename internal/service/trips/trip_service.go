package trips

import (
	"context"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/repository"
)

// maxPriceCents keeps prices well inside int64 cents.
const maxPriceCents = 1_000_000_000_00

type TripUseCase interface {
	List(ctx context.Context) ([]domain.Trip, error)
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
	Create(ctx context.Context, identity auth.Identity, input CreateTripInput) (*domain.Trip, error)
	Delete(ctx context.Context, identity auth.Identity, id int64) error
}

type TripCache interface {
	GetTrips(ctx context.Context) ([]domain.Trip, error)
	TripsGeneration(ctx context.Context) (int64, error)
	SetTrips(ctx context.Context, trips []domain.Trip, gen int64) error
	InvalidateTrips(ctx context.Context) error
}

type Emitter interface {
	Emit(ctx context.Context, key string, event kafka.Event) error
}

type TripService struct {
	repo   repository.TripRepository
	cache  TripCache
	events Emitter
}

type CreateTripInput struct {
	Route     string  `json:"route"`
	Departure string  `json:"departure"`
	Price     float64 `json:"price"`
	Seats     int     `json:"seats"`
}

func NewTripService(repo repository.TripRepository, cache TripCache, events Emitter) *TripService {
	return &TripService{repo: repo, cache: cache, events: events}
}

func (s *TripService) List(ctx context.Context) ([]domain.Trip, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}
	if cached, err := s.cache.GetTrips(ctx); err == nil && cached != nil {
		return cached, nil
	}

	// The generation is read before the store so a booking that commits and
	// invalidates in between makes the write-back a no-op.
	gen, genErr := s.cache.TripsGeneration(ctx)
	trips, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		if err := s.cache.SetTrips(ctx, trips, gen); err != nil {
			log.Printf("WARNING: failed to cache trips: %v", err)
		}
	}
	return trips, nil
}

// GetByID always reads the store so the seat count shown before booking is current.
func (s *TripService) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TripService) Create(ctx context.Context, identity auth.Identity, input CreateTripInput) (*domain.Trip, error) {
	if !identity.IsAdmin() {
		return nil, domain.ForbiddenError{Msg: "Admins only."}
	}

	route := strings.TrimSpace(input.Route)
	departure := strings.TrimSpace(input.Departure)
	switch {
	case route == "":
		return nil, domain.ValidationError{Field: "route", Msg: "Route is required."}
	case departure == "":
		return nil, domain.ValidationError{Field: "departure", Msg: "Departure is required."}
	case input.Price < 0 || math.IsNaN(input.Price) || math.IsInf(input.Price, 0):
		return nil, domain.ValidationError{Field: "price", Msg: "Price must be a non-negative amount."}
	case math.Round(input.Price*100) > maxPriceCents:
		return nil, domain.ValidationError{Field: "price", Msg: "Price is too large."}
	case input.Seats <= 0:
		return nil, domain.ValidationError{Field: "seats", Msg: "Seats must be a positive number."}
	case input.Seats > math.MaxInt32:
		return nil, domain.ValidationError{Field: "seats", Msg: "Seats must be at most 2147483647."}
	}

	trip := &domain.Trip{
		Route:      route,
		Departure:  departure,
		PriceCents: int64(math.Round(input.Price * 100)),
		SeatsTotal: input.Seats,
		SeatsLeft:  input.Seats,
	}
	if err := s.repo.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.emit(ctx, kafka.Event{
		Type:      kafka.EventTripCreated,
		UserID:    identity.UserID,
		TripID:    trip.ID,
		Route:     trip.Route,
		Departure: trip.Departure,
		SeatsLeft: trip.SeatsLeft,
	})
	return trip, nil
}

func (s *TripService) Delete(ctx context.Context, identity auth.Identity, id int64) error {
	if !identity.IsAdmin() {
		return domain.ForbiddenError{Msg: "Admins only."}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	s.emit(ctx, kafka.Event{Type: kafka.EventTripDeleted, UserID: identity.UserID, TripID: id})
	return nil
}

func (s *TripService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTrips(ctx); err != nil {
		log.Printf("WARNING: failed to invalidate trips cache: %v", err)
	}
}

func (s *TripService) emit(ctx context.Context, event kafka.Event) {
	if s.events == nil {
		return
	}
	key := strconv.FormatInt(event.TripID, 10)
	if err := s.events.Emit(ctx, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for trip %s: %v", event.Type, key, err)
	}
}

var _ TripUseCase = (*TripService)(nil)
