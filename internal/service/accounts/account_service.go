package accounts

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/google/uuid"
)

const (
	minPasswordLength = 6

	msgInvalidCredentials = "Invalid email or password."
	msgPasswordMismatch   = "Passwords do not match."
	msgInvalidResetToken  = "Invalid or expired reset token."
)

type AccountUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Profile(ctx context.Context, identity auth.Identity) (*domain.User, error)
	UpdateProfile(ctx context.Context, identity auth.Identity, input ProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, identity auth.Identity, input ChangePasswordInput) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, input ResetPasswordInput) (*domain.User, error)
	CreateAdmin(ctx context.Context, input RegisterInput) (*domain.User, error)
}

type Emitter interface {
	Emit(ctx context.Context, key string, event kafka.Event) error
}

type AccountService struct {
	users    repository.UserRepository
	events   Emitter
	resetTTL time.Duration
	now      func() time.Time
}

type RegisterInput struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Contact  string `json:"contact" form:"contact"`
}

type ProfileInput struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Contact string `json:"contact" form:"contact"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type ResetPasswordInput struct {
	Token           string `json:"token" form:"token"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func NewAccountService(users repository.UserRepository, events Emitter, resetTTL time.Duration) *AccountService {
	return &AccountService{users: users, events: events, resetTTL: resetTTL, now: time.Now}
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	user, err := s.create(ctx, input, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, kafka.Event{Type: kafka.EventUserRegistered, UserID: user.ID, Email: user.Email, Name: user.Name})
	return user, nil
}

// CreateAdmin is used by the admin CLI; registration over HTTP always yields a regular user.
func (s *AccountService) CreateAdmin(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return s.create(ctx, input, domain.RoleAdmin)
}

func (s *AccountService) create(ctx context.Context, input RegisterInput, role domain.Role) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ValidationError{Field: "name", Msg: "Name is required."}
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Contact:      strings.TrimSpace(input.Contact),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.UnauthorizedError{Msg: msgInvalidCredentials}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if domain.IsNotFound(err) {
		return nil, domain.UnauthorizedError{Msg: msgInvalidCredentials}
	}
	if err != nil {
		return nil, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("check password for user %d: %w", user.ID, err)
	}
	if !ok {
		return nil, domain.UnauthorizedError{Msg: msgInvalidCredentials}
	}
	return user, nil
}

func (s *AccountService) Profile(ctx context.Context, identity auth.Identity) (*domain.User, error) {
	return s.users.GetByID(ctx, identity.UserID)
}

func (s *AccountService) UpdateProfile(ctx context.Context, identity auth.Identity, input ProfileInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ValidationError{Field: "name", Msg: "Name is required."}
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	return s.users.UpdateProfile(ctx, identity.UserID, name, email, strings.TrimSpace(input.Contact))
}

func (s *AccountService) ChangePassword(ctx context.Context, identity auth.Identity, input ChangePasswordInput) (*domain.User, error) {
	if input.NewPassword != input.ConfirmPassword {
		return nil, domain.ValidationError{Field: "confirm_password", Msg: msgPasswordMismatch}
	}
	if err := validatePassword(input.NewPassword); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	ok, err := auth.CheckPassword(user.PasswordHash, input.CurrentPassword)
	if err != nil {
		return nil, fmt.Errorf("check password for user %d: %w", user.ID, err)
	}
	if !ok {
		return nil, domain.UnauthorizedError{Msg: "Current password is incorrect."}
	}

	hash, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	s.emit(ctx, kafka.Event{Type: kafka.EventPasswordChanged, UserID: user.ID, Email: user.Email, Name: user.Name})
	return user, nil
}

// RequestPasswordReset issues a reset token for a known email. Unknown
// emails succeed silently so the endpoint cannot be used to enumerate accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.ValidationError{Field: "email", Msg: "Email is required."}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if domain.IsNotFound(err) {
		log.Printf("[ACCOUNTS] action=forgot_password result=unknown_email")
		return nil
	}
	if err != nil {
		return err
	}

	token := uuid.NewString()
	expiresAt := s.now().Add(s.resetTTL).UTC()
	if err := s.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return err
	}

	s.emit(ctx, kafka.Event{
		Type:           kafka.EventPasswordResetRequested,
		UserID:         user.ID,
		Email:          user.Email,
		Name:           user.Name,
		ResetToken:     token,
		ResetExpiresAt: expiresAt,
	})
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, input ResetPasswordInput) (*domain.User, error) {
	token := strings.TrimSpace(input.Token)
	if _, err := uuid.Parse(token); err != nil {
		return nil, domain.ValidationError{Field: "token", Msg: msgInvalidResetToken}
	}
	if input.NewPassword != input.ConfirmPassword {
		return nil, domain.ValidationError{Field: "confirm_password", Msg: msgPasswordMismatch}
	}
	if err := validatePassword(input.NewPassword); err != nil {
		return nil, err
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if domain.IsNotFound(err) {
		return nil, domain.ValidationError{Field: "token", Msg: msgInvalidResetToken}
	}
	if err != nil {
		return nil, err
	}
	if user.ResetExpiresAt == nil || !s.now().Before(*user.ResetExpiresAt) {
		return nil, domain.ValidationError{Field: "token", Msg: msgInvalidResetToken}
	}

	hash, err := auth.HashPassword(input.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.ResetPassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	s.emit(ctx, kafka.Event{Type: kafka.EventPasswordChanged, UserID: user.ID, Email: user.Email, Name: user.Name})
	return user, nil
}

func (s *AccountService) emit(ctx context.Context, event kafka.Event) {
	if s.events == nil {
		return
	}
	key := strconv.FormatInt(event.UserID, 10)
	if err := s.events.Emit(ctx, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for user %s: %v", event.Type, key, err)
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ValidationError{Field: "email", Msg: "Email is required."}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ValidationError{Field: "email", Msg: "Email address is not valid."}
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return domain.ValidationError{Field: "password", Msg: fmt.Sprintf("Password must be at least %d characters.", minPasswordLength)}
	}
	return nil
}

var _ AccountUseCase = (*AccountService)(nil)
