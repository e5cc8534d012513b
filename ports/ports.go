// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/crudgate/domain/product"
	"github.com/artpar/crudgate/domain/user"
)

// Store errors shared by every store implementation.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// UserStore persists user accounts.
type UserStore interface {
	// Get retrieves a user by ID.
	Get(ctx context.Context, id int64) (user.User, error)

	// GetByEmail retrieves a user by normalized email.
	GetByEmail(ctx context.Context, email string) (user.User, error)

	// Create stores a new user and returns it with its assigned ID.
	Create(ctx context.Context, u user.User) (user.User, error)

	// Update modifies an existing user.
	Update(ctx context.Context, u user.User) error

	// Delete removes a user. It reports false if no user had the ID.
	Delete(ctx context.Context, id int64) (bool, error)

	// List returns all users ordered by ID.
	List(ctx context.Context) ([]user.User, error)

	// Count returns total user count.
	Count(ctx context.Context) (int, error)
}

// ProductStore persists products.
type ProductStore interface {
	Get(ctx context.Context, id int64) (product.Product, error)
	Create(ctx context.Context, p product.Product) (product.Product, error)
	Update(ctx context.Context, p product.Product) error
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]product.Product, error)
}

// -----------------------------------------------------------------------------
// Hasher Port
// -----------------------------------------------------------------------------

// Hasher handles password hashing.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// RehashChecker is implemented by hashers whose work factor is configurable.
// AuthService upgrades stale hashes after a successful login.
type RehashChecker interface {
	NeedsRehash(hash []byte) bool
}

// -----------------------------------------------------------------------------
// Auth Ports
// -----------------------------------------------------------------------------

// Claims are the authenticated identity carried by an access token.
type Claims struct {
	UserID    int64
	Email     string
	Role      user.Role
	TokenID   string
	ExpiresAt time.Time
}

// TokenService issues and verifies access tokens.
type TokenService interface {
	Issue(u user.User) (token string, expiresAt time.Time, err error)
	Verify(token string) (Claims, error)
}

// RateLimiter admits or rejects an action for a key.
type RateLimiter interface {
	// Allow reports whether one more event for key is admitted. When it is not,
	// retryAfter estimates when the next event would be.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}
