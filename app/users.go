// Package app contains the application services: validators and executors that
// plug domain rules and stores into the CRUD pipeline, and the AuthService.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/core/errs"
	"github.com/artpar/crudgate/domain/user"
	"github.com/artpar/crudgate/ports"
	"github.com/rs/zerolog"
)

// Request attributes set by the authenticator.
const (
	AttrUserID = "user_id"
	AttrRole   = "role"
	AttrID     = "id"
)

// UserValidator turns request bodies into user commands.
type UserValidator struct {
	// Self restricts updates to the fields a user may change on their own account.
	Self bool
}

// ValidateCreate implements crud.Validator.
func (v UserValidator) ValidateCreate(req *crud.Request) (user.Command, error) {
	var cmd user.Command
	if err := req.Decode(&cmd); err != nil {
		return cmd, err
	}
	if res := user.ValidateCreate(cmd); !res.Valid {
		return cmd, errs.Validation("", res.Errors)
	}
	return cmd, nil
}

// ValidateUpdate implements crud.Validator.
func (v UserValidator) ValidateUpdate(req *crud.Request) (user.Command, error) {
	var cmd user.Command
	if err := req.Decode(&cmd); err != nil {
		return cmd, err
	}
	res := user.ValidateUpdate(cmd)
	if v.Self {
		if cmd.Role != nil {
			res.Errors["role"] = "Role cannot be changed on your own account"
		}
		if cmd.Status != nil {
			res.Errors["status"] = "Status cannot be changed on your own account"
		}
	}
	if len(res.Errors) > 0 {
		return cmd, errs.Validation("", res.Errors)
	}
	return cmd, nil
}

var _ crud.Validator[user.Command] = UserValidator{}

// UserDeps contains dependencies for UserService.
type UserDeps struct {
	Store  ports.UserStore
	Hasher ports.Hasher
	Clock  ports.Clock
	Logger zerolog.Logger
}

// UserService executes user commands.
type UserService struct {
	store  ports.UserStore
	hasher ports.Hasher
	clock  ports.Clock
	logger zerolog.Logger
}

// NewUserService creates a user service.
func NewUserService(deps UserDeps) *UserService {
	return &UserService{
		store:  deps.Store,
		hasher: deps.Hasher,
		clock:  deps.Clock,
		logger: deps.Logger,
	}
}

// Execute creates a user.
func (s *UserService) Execute(ctx context.Context, cmd user.Command) (user.User, error) {
	u := user.New(cmd, s.clock.Now())

	if _, err := s.store.GetByEmail(ctx, u.Email); err == nil {
		return user.User{}, emailTaken()
	} else if !errors.Is(err, ports.ErrNotFound) {
		return user.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if cmd.Password != nil {
		hash, err := s.hasher.Hash(*cmd.Password)
		if err != nil {
			return user.User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}

	created, err := s.store.Create(ctx, u)
	if errors.Is(err, ports.ErrDuplicate) {
		return user.User{}, emailTaken()
	}
	if err != nil {
		return user.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Int64("user_id", created.ID).Str("role", string(created.Role)).Msg("user created")
	return created, nil
}

// ExecuteWithID updates user id.
func (s *UserService) ExecuteWithID(ctx context.Context, cmd user.Command, id int64) (user.User, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	updated := user.Apply(u, cmd, s.clock.Now())
	if cmd.Password != nil {
		hash, err := s.hasher.Hash(*cmd.Password)
		if err != nil {
			return user.User{}, fmt.Errorf("hash password: %w", err)
		}
		updated.PasswordHash = hash
	}

	switch err := s.store.Update(ctx, updated); {
	case errors.Is(err, ports.ErrDuplicate):
		return user.User{}, emailTaken()
	case errors.Is(err, ports.ErrNotFound):
		return user.User{}, userNotFound(id)
	case err != nil:
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// FindAll lists users.
func (s *UserService) FindAll(ctx context.Context) ([]user.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// FindByID loads one user.
func (s *UserService) FindByID(ctx context.Context, id int64) (user.User, error) {
	u, err := s.store.Get(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return user.User{}, userNotFound(id)
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// DeleteByID removes a user.
func (s *UserService) DeleteByID(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	if ok {
		s.logger.Info().Int64("user_id", id).Msg("user deleted")
	}
	return ok, nil
}

var _ crud.Executor[user.Command, user.User] = (*UserService)(nil)

func emailTaken() error {
	return errs.BusinessLogic("Email is already registered")
}

func userNotFound(id int64) error {
	return errs.NotFound(fmt.Sprintf("User %d not found", id))
}
