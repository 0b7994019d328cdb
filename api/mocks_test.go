package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/accounts"
	"github.com/Domenick1991/busbooking/internal/service/booking"
	"github.com/Domenick1991/busbooking/internal/service/trips"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTripUseCase struct {
	mock.Mock
}

func (m *MockTripUseCase) List(ctx context.Context) ([]domain.Trip, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Trip), args.Error(1)
}

func (m *MockTripUseCase) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trip), args.Error(1)
}

func (m *MockTripUseCase) Create(ctx context.Context, identity auth.Identity, input trips.CreateTripInput) (*domain.Trip, error) {
	args := m.Called(ctx, identity, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trip), args.Error(1)
}

func (m *MockTripUseCase) Delete(ctx context.Context, identity auth.Identity, id int64) error {
	args := m.Called(ctx, identity, id)
	return args.Error(0)
}

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) BookSeats(ctx context.Context, identity *auth.Identity, input booking.BookSeatsInput) (*domain.Booking, error) {
	args := m.Called(ctx, identity, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListBookings(ctx context.Context, identity auth.Identity) ([]domain.BookingView, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).([]domain.BookingView), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, identity auth.Identity, reference string) (*domain.BookingView, error) {
	args := m.Called(ctx, identity, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingView), args.Error(1)
}

type MockAccountUseCase struct {
	mock.Mock
}

func (m *MockAccountUseCase) Register(ctx context.Context, input accounts.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountUseCase) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountUseCase) Profile(ctx context.Context, identity auth.Identity) (*domain.User, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountUseCase) UpdateProfile(ctx context.Context, identity auth.Identity, input accounts.ProfileInput) (*domain.User, error) {
	args := m.Called(ctx, identity, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountUseCase) ChangePassword(ctx context.Context, identity auth.Identity, input accounts.ChangePasswordInput) (*domain.User, error) {
	args := m.Called(ctx, identity, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountUseCase) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAccountUseCase) ResetPassword(ctx context.Context, input accounts.ResetPasswordInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountUseCase) CreateAdmin(ctx context.Context, input accounts.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// memorySessions is an in-memory revocation store.
type memorySessions struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	cutoffs map[int64]time.Time
}

func newMemorySessions() *memorySessions {
	return &memorySessions{revoked: make(map[string]time.Time), cutoffs: make(map[int64]time.Time)}
}

func (s *memorySessions) RevokeUserSessions(_ context.Context, userID int64, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs[userID] = before
	return nil
}

func (s *memorySessions) SessionsRevokedBefore(_ context.Context, userID int64) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cutoffs[userID], nil
}

func (s *memorySessions) RevokeSession(_ context.Context, tokenID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = until
	return nil
}

func (s *memorySessions) IsSessionRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}

var (
	regularUser = &domain.User{ID: 2, Name: "Ann", Email: "ann@example.com", Role: domain.RoleUser}
	adminUser   = &domain.User{ID: 1, Name: "Root", Email: "root@example.com", Role: domain.RoleAdmin}
)

type testServer struct {
	router   *gin.Engine
	issuer   *auth.Issuer
	store    *memorySessions
	trips    *MockTripUseCase
	bookings *MockBookingUseCase
	accounts *MockAccountUseCase
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		issuer:   auth.NewIssuer("test-secret-0123456789", "busbooking-test", time.Hour),
		store:    newMemorySessions(),
		trips:    &MockTripUseCase{},
		bookings: &MockBookingUseCase{},
		accounts: &MockAccountUseCase{},
	}
	s.router = NewRouter(RouterConfig{
		Trips:    s.trips,
		Bookings: s.bookings,
		Accounts: s.accounts,
		Sessions: s.issuer,
		Store:    s.store,
		Cookie:   CookieConfig{Name: "session"},
	})
	return s
}

func (s *testServer) login(t *testing.T, user *domain.User) (string, auth.Identity) {
	t.Helper()
	token, identity, err := s.issuer.Issue(user)
	require.NoError(t, err)
	return token, identity
}

// do sends a request; a non-empty token is sent as a bearer header.
func (s *testServer) do(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, path, token, body string) *httptest.ResponseRecorder {
	return s.do(method, path, token, "application/json", strings.NewReader(body))
}

func (s *testServer) doForm(method, path, token, body string) *httptest.ResponseRecorder {
	return s.do(method, path, token, "application/x-www-form-urlencoded", strings.NewReader(body))
}

// sessionFrom extracts the token a login-like endpoint returned.
func sessionFrom(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func isIdentity(userID int64) interface{} {
	return mock.MatchedBy(func(id auth.Identity) bool { return id.UserID == userID })
}
