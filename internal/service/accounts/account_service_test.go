package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id int64, name, email, contact string) (*domain.User, error) {
	args := m.Called(ctx, id, name, email, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	args := m.Called(ctx, id, token, expiresAt)
	return args.Error(0)
}

func (m *MockUserRepository) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) Emit(ctx context.Context, key string, event kafka.Event) error {
	args := m.Called(ctx, key, event)
	return args.Error(0)
}

const resetToken = "6f1d0c3e-8a59-4b3c-9b0e-2f6f1d0c3e8a"

func newService(users *MockUserRepository, events *MockEmitter) *AccountService {
	s := NewAccountService(users, events, 30*time.Minute)
	s.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func TestAccountService_Register(t *testing.T) {
	users := &MockUserRepository{}
	events := &MockEmitter{}
	service := newService(users, events)
	ctx := context.Background()

	users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "ann@example.com" && u.Role == domain.RoleUser && u.PasswordHash != "secret1"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 3
	}).Return(nil).Once()
	events.On("Emit", ctx, "3", mock.MatchedBy(func(e kafka.Event) bool {
		return e.Type == kafka.EventUserRegistered && e.Email == "ann@example.com"
	})).Return(nil).Once()

	user, err := service.Register(ctx, RegisterInput{Name: "Ann", Email: " Ann@Example.com ", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	ok, err := auth.CheckPassword(user.PasswordHash, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)
	users.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestAccountService_Register_Validation(t *testing.T) {
	users := &MockUserRepository{}
	service := newService(users, nil)
	ctx := context.Background()

	testCases := []struct {
		name  string
		input RegisterInput
	}{
		{name: "no name", input: RegisterInput{Email: "a@b.c", Password: "secret1"}},
		{name: "no email", input: RegisterInput{Name: "A", Password: "secret1"}},
		{name: "bad email", input: RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"}},
		{name: "short password", input: RegisterInput{Name: "A", Email: "a@b.c", Password: "123"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Register(ctx, tc.input)
			assert.True(t, domain.IsValidation(err))
		})
	}
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAccountService_Register_DuplicateEmail(t *testing.T) {
	users := &MockUserRepository{}
	service := newService(users, nil)
	ctx := context.Background()

	users.On("Create", ctx, mock.Anything).Return(domain.ConflictError{Resource: "user", Msg: "Email already registered."}).Once()

	_, err := service.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	assert.True(t, domain.IsConflict(err))
	assert.EqualError(t, err, "Email already registered.")
}

func TestAccountService_CreateAdmin(t *testing.T) {
	users := &MockUserRepository{}
	service := newService(users, nil)
	ctx := context.Background()

	users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool { return u.Role == domain.RoleAdmin })).Return(nil).Once()

	user, err := service.CreateAdmin(ctx, RegisterInput{Name: "Root", Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

func TestAccountService_Authenticate(t *testing.T) {
	users := &MockUserRepository{}
	service := newService(users, nil)
	ctx := context.Background()
	stored := &domain.User{ID: 1, Email: "ann@example.com", PasswordHash: hashed(t, "secret1"), Role: domain.RoleUser}

	users.On("GetByEmail", ctx, "ann@example.com").Return(stored, nil)
	users.On("GetByEmail", ctx, "bob@example.com").Return(nil, domain.NotFoundError{Resource: "user"})

	user, err := service.Authenticate(ctx, "ANN@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, stored, user)

	_, err = service.Authenticate(ctx, "ann@example.com", "wrong")
	assert.True(t, domain.IsUnauthorized(err))
	assert.EqualError(t, err, msgInvalidCredentials)

	_, err = service.Authenticate(ctx, "bob@example.com", "secret1")
	assert.True(t, domain.IsUnauthorized(err))
	assert.EqualError(t, err, msgInvalidCredentials)
}

func TestAccountService_Authenticate_StoreError(t *testing.T) {
	users := &MockUserRepository{}
	service := newService(users, nil)
	ctx := context.Background()

	users.On("GetByEmail", ctx, "ann@example.com").Return(nil, errors.New("db down"))

	_, err := service.Authenticate(ctx, "ann@example.com", "secret1")
	assert.EqualError(t, err, "db down")
}

func TestAccountService_UpdateProfile(t *testing.T) {
	users := &MockUserRepository{}
	service := newService(users, nil)
	ctx := context.Background()
	updated := &domain.User{ID: 4, Name: "Ann B", Email: "annb@example.com", Contact: "0800"}

	users.On("UpdateProfile", ctx, int64(4), "Ann B", "annb@example.com", "0800").Return(updated, nil).Once()

	user, err := service.UpdateProfile(ctx, auth.Identity{UserID: 4}, ProfileInput{Name: " Ann B", Email: "AnnB@example.com", Contact: " 0800 "})
	require.NoError(t, err)
	assert.Equal(t, updated, user)
}

func TestAccountService_ChangePassword(t *testing.T) {
	users := &MockUserRepository{}
	events := &MockEmitter{}
	service := newService(users, events)
	ctx := context.Background()
	id := auth.Identity{UserID: 4}
	stored := &domain.User{ID: 4, Email: "ann@example.com", PasswordHash: hashed(t, "oldpass")}

	users.On("GetByID", ctx, int64(4)).Return(stored, nil)
	users.On("UpdatePassword", ctx, int64(4), mock.MatchedBy(func(hash string) bool {
		ok, _ := auth.CheckPassword(hash, "newpass")
		return ok
	})).Return(nil).Once()
	events.On("Emit", ctx, "4", mock.Anything).Return(nil).Once()

	t.Run("mismatch", func(t *testing.T) {
		_, err := service.ChangePassword(ctx, id, ChangePasswordInput{CurrentPassword: "oldpass", NewPassword: "newpass", ConfirmPassword: "other"})
		assert.EqualError(t, err, msgPasswordMismatch)
	})

	t.Run("wrong current", func(t *testing.T) {
		_, err := service.ChangePassword(ctx, id, ChangePasswordInput{CurrentPassword: "nope", NewPassword: "newpass", ConfirmPassword: "newpass"})
		assert.True(t, domain.IsUnauthorized(err))
	})

	t.Run("ok", func(t *testing.T) {
		user, err := service.ChangePassword(ctx, id, ChangePasswordInput{CurrentPassword: "oldpass", NewPassword: "newpass", ConfirmPassword: "newpass"})
		require.NoError(t, err)
		assert.Equal(t, int64(4), user.ID)
	})

	users.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestAccountService_RequestPasswordReset(t *testing.T) {
	users := &MockUserRepository{}
	events := &MockEmitter{}
	service := newService(users, events)
	ctx := context.Background()
	stored := &domain.User{ID: 9, Name: "Ann", Email: "ann@example.com"}
	wantExpiry := time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)

	users.On("GetByEmail", ctx, "ann@example.com").Return(stored, nil).Once()
	users.On("SetResetToken", ctx, int64(9), mock.AnythingOfType("string"), wantExpiry).Return(nil).Once()
	events.On("Emit", ctx, "9", mock.MatchedBy(func(e kafka.Event) bool {
		return e.Type == kafka.EventPasswordResetRequested && e.ResetToken != "" && e.ResetExpiresAt.Equal(wantExpiry)
	})).Return(nil).Once()

	require.NoError(t, service.RequestPasswordReset(ctx, "ann@example.com"))
	users.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestAccountService_RequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	users := &MockUserRepository{}
	events := &MockEmitter{}
	service := newService(users, events)
	ctx := context.Background()

	users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, domain.NotFoundError{Resource: "user"}).Once()

	assert.NoError(t, service.RequestPasswordReset(ctx, "ghost@example.com"))
	users.AssertNotCalled(t, "SetResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	future := time.Date(2026, 5, 1, 12, 10, 0, 0, time.UTC)
	past := time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC)

	t.Run("ok", func(t *testing.T) {
		users := &MockUserRepository{}
		events := &MockEmitter{}
		service := newService(users, events)

		users.On("GetByResetToken", ctx, resetToken).Return(&domain.User{ID: 2, ResetExpiresAt: &future}, nil).Once()
		users.On("ResetPassword", ctx, int64(2), mock.AnythingOfType("string")).Return(nil).Once()
		events.On("Emit", ctx, "2", mock.Anything).Return(nil).Once()

		user, err := service.ResetPassword(ctx, ResetPasswordInput{Token: resetToken, NewPassword: "newpass", ConfirmPassword: "newpass"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), user.ID)
		users.AssertExpectations(t)
	})

	t.Run("expired", func(t *testing.T) {
		users := &MockUserRepository{}
		service := newService(users, nil)

		users.On("GetByResetToken", ctx, resetToken).Return(&domain.User{ID: 2, ResetExpiresAt: &past}, nil).Once()

		_, err := service.ResetPassword(ctx, ResetPasswordInput{Token: resetToken, NewPassword: "newpass", ConfirmPassword: "newpass"})
		assert.EqualError(t, err, msgInvalidResetToken)
		users.AssertNotCalled(t, "ResetPassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown token", func(t *testing.T) {
		users := &MockUserRepository{}
		service := newService(users, nil)

		users.On("GetByResetToken", ctx, resetToken).Return(nil, domain.NotFoundError{Resource: "user"}).Once()

		_, err := service.ResetPassword(ctx, ResetPasswordInput{Token: resetToken, NewPassword: "newpass", ConfirmPassword: "newpass"})
		assert.True(t, domain.IsValidation(err))
		assert.EqualError(t, err, msgInvalidResetToken)
	})

	t.Run("malformed token", func(t *testing.T) {
		users := &MockUserRepository{}
		service := newService(users, nil)

		_, err := service.ResetPassword(ctx, ResetPasswordInput{Token: "abc", NewPassword: "newpass", ConfirmPassword: "newpass"})
		assert.EqualError(t, err, msgInvalidResetToken)
		users.AssertNotCalled(t, "GetByResetToken", mock.Anything, mock.Anything)
	})

	t.Run("mismatch", func(t *testing.T) {
		users := &MockUserRepository{}
		service := newService(users, nil)

		_, err := service.ResetPassword(ctx, ResetPasswordInput{Token: resetToken, NewPassword: "newpass", ConfirmPassword: "other"})
		assert.EqualError(t, err, msgPasswordMismatch)
	})
}
