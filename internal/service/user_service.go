package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"petsoft/internal/domain"
	"petsoft/internal/repository"
	"petsoft/internal/validate"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists is returned when signing up with an email that is already registered.
	ErrEmailExists = errors.New("email already exists")
)

// UserService describes user lifecycle operations.
type UserService interface {
	SignUp(ctx context.Context, email, password string) (*domain.User, error)
	Authorize(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GrantAccess(ctx context.Context, email string) error
}

// UserOption customises a UserService.
type UserOption func(*userService)

// WithHashCost overrides the bcrypt cost used for new passwords.
func WithHashCost(cost int) UserOption {
	return func(s *userService) {
		s.hashCost = cost
	}
}

type userService struct {
	users    repository.UserRepository
	logger   *logrus.Logger
	hashCost int
}

func NewUserService(users repository.UserRepository, logger *logrus.Logger, opts ...UserOption) UserService {
	if logger == nil {
		logger = logrus.New()
	}
	s := &userService{
		users:    users,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp creates a user. Failures are *ActionError values; a duplicate email
// additionally matches ErrEmailExists.
func (s *userService) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	email, password, err := validate.Credentials(email, password)
	if err != nil {
		return nil, actionErr(KindInvalid, MsgInvalidForm, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, actionErr(KindPersistence, MsgCouldNotSignUp, fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, actionErr(KindConflict, MsgEmailExists, ErrEmailExists)
		}
		s.logger.WithError(err).WithField("email", email).Error("sign up failed")
		return nil, actionErr(KindPersistence, MsgCouldNotSignUp, err)
	}

	s.logger.WithField("user_id", user.ID).Info("user signed up")
	return sanitizeUser(user), nil
}

// Authorize checks credentials. Unknown users and wrong passwords both yield
// ErrInvalidCredentials.
func (s *userService) Authorize(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.WithField("email", email).Warn("login for unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.WithField("user_id", user.ID).Warn("login with wrong password")
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// GetByEmail looks a user up by email, ignoring case and surrounding space.
func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// GrantAccess marks the user with the given email as paid.
func (s *userService) GrantAccess(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errors.New("email is required")
	}
	if err := s.users.SetAccess(ctx, email, true); err != nil {
		return fmt.Errorf("grant access to %s: %w", email, err)
	}
	s.logger.WithField("email", email).Info("access granted")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Email:     user.Email,
		HasAccess: user.HasAccess,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
