package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/core/errs"
	"github.com/artpar/crudgate/domain/user"
	"github.com/artpar/crudgate/ports"
	"github.com/rs/zerolog"
)

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      user.User `json:"user"`
}

// AuthDeps contains dependencies for AuthService.
type AuthDeps struct {
	Users  ports.UserStore
	Hasher ports.Hasher
	Tokens ports.TokenService
	Logger zerolog.Logger
}

// AuthService authenticates users and issues access tokens.
type AuthService struct {
	users  ports.UserStore
	hasher ports.Hasher
	tokens ports.TokenService
	logger zerolog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(deps AuthDeps) *AuthService {
	return &AuthService{
		users:  deps.Users,
		hasher: deps.Hasher,
		tokens: deps.Tokens,
		logger: deps.Logger,
	}
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords fail identically.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (Session, error) {
	if res := user.ValidateLogin(req); !res.Valid {
		return Session{}, errs.Validation("", res.Errors)
	}

	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(req.Email))
	if errors.Is(err, ports.ErrNotFound) {
		return Session{}, invalidCredentials()
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Compare(u.PasswordHash, req.Password) {
		s.logger.Debug().Int64("user_id", u.ID).Msg("login failed: wrong password")
		return Session{}, invalidCredentials()
	}
	if !u.IsActive() {
		return Session{}, errs.Forbidden("Account is suspended")
	}
	if rc, ok := s.hasher.(ports.RehashChecker); ok && rc.NeedsRehash(u.PasswordHash) {
		u = s.rehash(ctx, u, req.Password)
	}

	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info().Int64("user_id", u.ID).Msg("user logged in")
	return Session{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt, User: u}, nil
}

// rehash stores a fresh hash of password for u. Failures are logged and the
// old hash kept; the login itself has already succeeded.
func (s *AuthService) rehash(ctx context.Context, u user.User, password string) user.User {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", u.ID).Msg("password rehash failed")
		return u
	}
	updated := u
	updated.PasswordHash = hash
	if err := s.users.Update(ctx, updated); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", u.ID).Msg("password rehash not saved")
		return u
	}
	s.logger.Debug().Int64("user_id", u.ID).Msg("password rehashed")
	return updated
}

// CurrentUser returns the authenticated caller's account.
func (s *AuthService) CurrentUser(ctx context.Context) (user.User, error) {
	caller, err := CallerFrom(ctx)
	if err != nil {
		return user.User{}, err
	}
	u, err := s.users.Get(ctx, caller.UserID)
	if errors.Is(err, ports.ErrNotFound) {
		return user.User{}, errs.Unauthorized("Account no longer exists")
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// LoginOperation exposes Login to the CRUD pipeline.
func (s *AuthService) LoginOperation() crud.Operation {
	return crud.Action("session", func(req *crud.Request, _ crud.Params) (crud.Result, error) {
		var body user.LoginRequest
		if err := req.Decode(&body); err != nil {
			return crud.Result{}, err
		}
		session, err := s.Login(req.Context(), body)
		if err != nil {
			return crud.Result{}, err
		}
		return crud.NewResult(session, "Login successful", http.StatusOK, nil), nil
	})
}

// MeOperation exposes CurrentUser to the CRUD pipeline.
func (s *AuthService) MeOperation() crud.Operation {
	return crud.Action("session", func(req *crud.Request, _ crud.Params) (crud.Result, error) {
		u, err := s.CurrentUser(req.Context())
		if err != nil {
			return crud.Result{}, err
		}
		return crud.NewResult(u, "Current user retrieved successfully", http.StatusOK, nil), nil
	})
}

func invalidCredentials() error {
	return errs.Unauthorized("Invalid email or password")
}
