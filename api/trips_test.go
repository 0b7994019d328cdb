package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/trips"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTripHandler_list(t *testing.T) {
	s := newTestServer(t)
	s.trips.On("List", mock.Anything).Return([]domain.Trip{
		{ID: 1, Route: "Jakarta - Bandung", Departure: "Mon 08:00", PriceCents: 15050, SeatsTotal: 40, SeatsLeft: 0},
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/trips", "", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp []tripResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 150.5, resp[0].Price)
	assert.True(t, resp[0].SoldOut)
	s.trips.AssertExpectations(t)
}

func TestTripHandler_list_InternalError(t *testing.T) {
	s := newTestServer(t)
	s.trips.On("List", mock.Anything).Return([]domain.Trip(nil), errors.New("connection reset")).Once()

	w := s.do(http.MethodGet, "/api/v1/trips", "", "", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestTripHandler_get(t *testing.T) {
	s := newTestServer(t)
	s.trips.On("GetByID", mock.Anything, int64(1)).Return(&domain.Trip{ID: 1, Route: "A - B", SeatsTotal: 10, SeatsLeft: 6}, nil).Once()
	s.trips.On("GetByID", mock.Anything, int64(999)).Return(nil, domain.NotFoundError{Resource: "trip"}).Once()

	w := s.do(http.MethodGet, "/api/v1/trips/1", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp tripResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.SeatsLeft)

	w = s.do(http.MethodGet, "/api/v1/trips/999", "", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/trips/abc", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTripHandler_create(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, adminUser)
	input := trips.CreateTripInput{Route: "A - B", Departure: "Tue 09:00", Price: 12.5, Seats: 30}
	s.trips.On("Create", mock.Anything, isIdentity(adminUser.ID), input).
		Return(&domain.Trip{ID: 4, Route: "A - B", Departure: "Tue 09:00", PriceCents: 1250, SeatsTotal: 30, SeatsLeft: 30}, nil).Once()

	w := s.doForm(http.MethodPost, "/api/v1/admin/trips", token, "route=A+-+B&departure=Tue+09%3A00&price=12.5&seats=30")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Trip added successfully!")
	s.trips.AssertExpectations(t)
}

func TestTripHandler_admin_RequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, regularUser)

	w := s.doJSON(http.MethodPost, "/api/v1/admin/trips", token, `{"route":"A - B","departure":"x","price":1,"seats":1}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/admin/trips/1", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.trips.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	s.trips.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestTripHandler_delete(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, adminUser)
	s.trips.On("Delete", mock.Anything, isIdentity(adminUser.ID), int64(3)).Return(nil).Once()
	s.trips.On("Delete", mock.Anything, isIdentity(adminUser.ID), int64(4)).
		Return(domain.ConflictError{Resource: "trip", Msg: "Trip has bookings and cannot be deleted."}).Once()

	w := s.do(http.MethodDelete, "/api/v1/admin/trips/3", token, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Trip deleted successfully.")

	w = s.do(http.MethodDelete, "/api/v1/admin/trips/4", token, "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Trip has bookings and cannot be deleted.")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}
