package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"time"
)

var (
	ErrExists             = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPending            = errors.New("account is awaiting approval")
	ErrExpired            = errors.New("account access has expired")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must have at least 6 characters")
	ErrProtected          = errors.New("the admin account cannot be removed")
)

const minPasswordLen = 6

type Options struct {
	Store Store
	// AccessTTL limits how long an approval stays valid. Zero disables it.
	AccessTTL time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

type Service struct {
	store     Store
	accessTTL time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     opts.Store,
		accessTTL: opts.AccessTTL,
		logger:    logger,
		now:       now,
	}
}

// EnsureAdmin creates the admin account if it is missing. An existing record
// is promoted to admin but its password is left alone.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = NormalizeEmail(email)

	u, err := s.store.Get(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		if password == "" {
			return errors.New("admin password is required to create the admin account")
		}
		u = &User{Email: email, Status: StatusAdmin, CreatedAt: s.now()}
		if err := u.SetPassword(password); err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		if err := s.store.Create(ctx, u); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		s.logger.Info("admin account created", "email", email)
		return nil
	case err != nil:
		return fmt.Errorf("load admin: %w", err)
	case u.Status != StatusAdmin:
		u.Status = StatusAdmin
		s.logger.Info("account promoted to admin", "email", email)
		return s.store.Save(ctx, u)
	}
	return nil
}

// Register creates a pending account.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	u := &User{Email: email, Status: StatusPending, CreatedAt: s.now()}
	if err := u.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrExists) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("account registered", "email", email)
	return u, nil
}

// Authenticate checks credentials and returns the user only if the account
// may use the workshop.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.store.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if err := s.CheckAccess(u); err != nil {
		return nil, err
	}
	return u, nil
}

// CheckAccess reports whether u may generate right now.
func (s *Service) CheckAccess(u *User) error {
	switch u.Status {
	case StatusAdmin:
		return nil
	case StatusPending:
		return ErrPending
	case StatusApproved:
		if s.accessTTL > 0 && u.ApprovedAt != nil && s.now().Sub(*u.ApprovedAt) > s.accessTTL {
			return ErrExpired
		}
		return nil
	}
	return ErrPending
}

func (s *Service) Get(ctx context.Context, email string) (*User, error) {
	return s.store.Get(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// Approve marks a pending account approved. Approving again renews the
// access window.
func (s *Service) Approve(ctx context.Context, email string) (*User, error) {
	u, err := s.store.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Status == StatusAdmin {
		return u, nil
	}

	now := s.now()
	u.Status = StatusApproved
	u.ApprovedAt = &now
	if err := s.store.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.logger.Info("account approved", "email", u.Email)
	return u, nil
}

func (s *Service) Remove(ctx context.Context, email string) error {
	u, err := s.store.Get(ctx, email)
	if err != nil {
		return err
	}
	if u.IsAdmin() {
		return ErrProtected
	}
	if err := s.store.Delete(ctx, u.Email); err != nil {
		return err
	}
	s.logger.Info("account removed", "email", u.Email)
	return nil
}
