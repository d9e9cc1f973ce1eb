package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/socialpulse/internal/audit"
	dto "github.com/dropDatabas3/socialpulse/internal/http/dto/account"
	"github.com/dropDatabas3/socialpulse/internal/identity"
	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/repository"
	"github.com/dropDatabas3/socialpulse/internal/util"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrWrongPassword   = errors.New("current password is incorrect")
)

type AccountService interface {
	Signup(ctx context.Context, req dto.SignupRequest) (*dto.SignupResponse, error)
	Profile(ctx context.Context, user *identity.UserIdentity) (*dto.Profile, error)
	UpdateProfile(ctx context.Context, user *identity.UserIdentity, req dto.UpdateProfileRequest) (*dto.Profile, error)
	ChangePassword(ctx context.Context, user *identity.UserIdentity, req dto.ChangePasswordRequest) error
	DeleteAccount(ctx context.Context, user *identity.UserIdentity) error
	ConnectedAccounts(ctx context.Context, user *identity.UserIdentity) ([]string, error)
	SetConnectedAccounts(ctx context.Context, user *identity.UserIdentity, accounts []string) ([]string, error)
}

type accountService struct {
	deps Deps
}

func NewAccountService(d Deps) AccountService {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &accountService{deps: d}
}

// Signup creates the identity user, seeds the profile and an empty
// connected-accounts list, then tries a password sign-in. A failed
// sign-in still returns the created user without a session.
func (s *accountService) Signup(ctx context.Context, req dto.SignupRequest) (*dto.SignupResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("account"), logger.Op("Signup"))

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)

	u, err := s.deps.Identity.CreateUser(ctx, email, req.Password, name)
	if err != nil {
		return nil, err
	}

	now := s.deps.Now().UTC()
	if err := s.deps.Store.PutProfile(ctx, repository.Profile{ID: u.ID, Name: name, Email: email, CreatedAt: now}); err != nil {
		return nil, fmt.Errorf("put profile: %w", err)
	}
	if err := s.deps.Store.SetConnectedAccounts(ctx, u.ID, []string{}); err != nil {
		return nil, fmt.Errorf("init connected accounts: %w", err)
	}

	res := &dto.SignupResponse{
		Success: true,
		User:    dto.User{ID: u.ID, Email: email, Name: name},
	}
	sess, err := s.deps.Identity.SignIn(ctx, email, req.Password)
	if err != nil {
		log.Warn("sign-in after signup failed", logger.UserID(u.ID), logger.Err(err))
	} else {
		res.Session = sess
	}
	audit.Log(ctx, audit.EventAccountCreated, u.ID, logger.Email(util.MaskEmail(email)))
	return res, nil
}

func (s *accountService) Profile(ctx context.Context, user *identity.UserIdentity) (*dto.Profile, error) {
	p, err := s.deps.Store.GetProfile(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return toDTO(p), nil
}

// UpdateProfile updates the identity user first, then merges the profile
// record. A missing record is recreated from the identity.
func (s *accountService) UpdateProfile(ctx context.Context, user *identity.UserIdentity, req dto.UpdateProfileRequest) (*dto.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)

	if err := s.deps.Identity.UpdateUser(ctx, user.ID, identity.UserUpdate{Email: email, Name: name}); err != nil {
		return nil, err
	}

	now := s.deps.Now().UTC()
	p, err := s.deps.Store.GetProfile(ctx, user.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		p = &repository.Profile{ID: user.ID, CreatedAt: now}
	case err != nil:
		return nil, err
	}
	p.Name = name
	p.Email = email
	p.UpdatedAt = &now
	if err := s.deps.Store.PutProfile(ctx, *p); err != nil {
		return nil, fmt.Errorf("put profile: %w", err)
	}
	audit.Log(ctx, audit.EventProfileUpdated, user.ID)
	return toDTO(p), nil
}

// ChangePassword verifies the current password by signing in with it.
func (s *accountService) ChangePassword(ctx context.Context, user *identity.UserIdentity, req dto.ChangePasswordRequest) error {
	if user.Email == "" {
		return identity.ErrUserNotFound
	}
	if _, err := s.deps.Identity.SignIn(ctx, user.Email, req.CurrentPassword); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return ErrWrongPassword
		}
		return err
	}
	if err := s.deps.Identity.UpdateUser(ctx, user.ID, identity.UserUpdate{Password: req.NewPassword}); err != nil {
		return err
	}
	audit.Log(ctx, audit.EventPasswordChanged, user.ID)
	return nil
}

// DeleteAccount removes every key under the user's prefix, credentials
// included, and then the identity user.
func (s *accountService) DeleteAccount(ctx context.Context, user *identity.UserIdentity) error {
	n, err := s.deps.Store.DeleteUserData(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("delete user data: %w", err)
	}
	if err := s.deps.Identity.DeleteUser(ctx, user.ID); err != nil {
		return err
	}
	audit.Log(ctx, audit.EventAccountDeleted, user.ID, logger.Count(n))
	return nil
}

func (s *accountService) ConnectedAccounts(ctx context.Context, user *identity.UserIdentity) ([]string, error) {
	return s.deps.Store.ConnectedAccounts(ctx, user.ID)
}

// SetConnectedAccounts stores the list normalized to provider ids, in
// the given order and without duplicates.
func (s *accountService) SetConnectedAccounts(ctx context.Context, user *identity.UserIdentity, accounts []string) ([]string, error) {
	seen := make(map[providers.Provider]bool, len(accounts))
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		p, err := providers.Parse(a)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p.String())
	}
	if err := s.deps.Store.SetConnectedAccounts(ctx, user.ID, out); err != nil {
		return nil, err
	}
	return out, nil
}

func toDTO(p *repository.Profile) *dto.Profile {
	return &dto.Profile{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
