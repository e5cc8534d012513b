package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/core/errs"
	"github.com/artpar/crudgate/domain/product"
	"github.com/artpar/crudgate/domain/user"
	"github.com/artpar/crudgate/ports"
	"github.com/rs/zerolog"
)

// ProductValidator turns request bodies into product commands.
type ProductValidator struct{}

func (ProductValidator) ValidateCreate(req *crud.Request) (product.Command, error) {
	var cmd product.Command
	if err := req.Decode(&cmd); err != nil {
		return cmd, err
	}
	if res := product.ValidateCreate(cmd); !res.Valid {
		return cmd, errs.Validation("", res.Errors)
	}
	return cmd, nil
}

func (ProductValidator) ValidateUpdate(req *crud.Request) (product.Command, error) {
	var cmd product.Command
	if err := req.Decode(&cmd); err != nil {
		return cmd, err
	}
	if res := product.ValidateUpdate(cmd); !res.Valid {
		return cmd, errs.Validation("", res.Errors)
	}
	return cmd, nil
}

var _ crud.Validator[product.Command] = ProductValidator{}

// ProductDeps contains dependencies for ProductService.
type ProductDeps struct {
	Store  ports.ProductStore
	// Users, when set, confirms the caller's account still exists before a
	// product is attributed to it.
	Users  ports.UserStore
	Clock  ports.Clock
	Logger zerolog.Logger
}

// ProductService executes product commands. Writes require an authenticated
// caller; only the owner or an admin may change or delete a product.
type ProductService struct {
	store  ports.ProductStore
	users  ports.UserStore
	clock  ports.Clock
	logger zerolog.Logger
}

// NewProductService creates a product service.
func NewProductService(deps ProductDeps) *ProductService {
	return &ProductService{store: deps.Store, users: deps.Users, clock: deps.Clock, logger: deps.Logger}
}

// Execute creates a product owned by the caller.
func (s *ProductService) Execute(ctx context.Context, cmd product.Command) (product.Product, error) {
	caller, err := CallerFrom(ctx)
	if err != nil {
		return product.Product{}, err
	}
	if s.users != nil {
		if _, err := s.users.Get(ctx, caller.UserID); errors.Is(err, ports.ErrNotFound) {
			return product.Product{}, errs.Unauthorized("Account no longer exists")
		} else if err != nil {
			return product.Product{}, fmt.Errorf("get owner: %w", err)
		}
	}

	p, err := s.store.Create(ctx, product.New(cmd, caller.UserID, s.clock.Now()))
	if err != nil {
		return product.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info().Int64("product_id", p.ID).Int64("owner_id", p.OwnerID).Msg("product created")
	return p, nil
}

// ExecuteWithID updates product id.
func (s *ProductService) ExecuteWithID(ctx context.Context, cmd product.Command, id int64) (product.Product, error) {
	p, err := s.owned(ctx, id)
	if err != nil {
		return product.Product{}, err
	}

	updated := product.Apply(p, cmd, s.clock.Now())
	if err := s.store.Update(ctx, updated); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return product.Product{}, productNotFound(id)
		}
		return product.Product{}, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (s *ProductService) FindAll(ctx context.Context) ([]product.Product, error) {
	products, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *ProductService) FindByID(ctx context.Context, id int64) (product.Product, error) {
	p, err := s.store.Get(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return product.Product{}, productNotFound(id)
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// DeleteByID removes product id. A missing product reports false.
func (s *ProductService) DeleteByID(ctx context.Context, id int64) (bool, error) {
	if _, err := s.owned(ctx, id); err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	return ok, nil
}

// owned loads product id and checks the caller may modify it.
func (s *ProductService) owned(ctx context.Context, id int64) (product.Product, error) {
	caller, err := CallerFrom(ctx)
	if err != nil {
		return product.Product{}, err
	}
	p, err := s.FindByID(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if p.OwnerID != caller.UserID && caller.Role != user.RoleAdmin {
		return product.Product{}, errs.Forbidden("Only the owner may modify this product")
	}
	return p, nil
}

var _ crud.Executor[product.Command, product.Product] = (*ProductService)(nil)

func productNotFound(id int64) error {
	return errs.NotFound(fmt.Sprintf("Product %d not found", id))
}

// Caller is the authenticated identity of a request.
type Caller struct {
	UserID int64
	Role   user.Role
}

// CallerFrom reads the authenticated caller from request attributes in ctx.
func CallerFrom(ctx context.Context) (Caller, error) {
	v, ok := crud.AttributeFrom(ctx, AttrUserID)
	id, isInt := v.(int64)
	if !ok || !isInt || id <= 0 {
		return Caller{}, errs.Unauthorized("Authentication required")
	}
	role, _ := crud.AttributeFrom(ctx, AttrRole)
	r, _ := role.(user.Role)
	return Caller{UserID: id, Role: r}, nil
}
