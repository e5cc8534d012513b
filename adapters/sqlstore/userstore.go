package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/crudgate/domain/user"
	"github.com/artpar/crudgate/ports"
)

const userColumns = `id, email, name, password_hash, role, status, created_at, updated_at`

// UserStore implements ports.UserStore.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQL user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return u, notFound(err)
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	return u, notFound(err)
}

// Create stores a new user and returns it with the generated ID.
func (s *UserStore) Create(ctx context.Context, u user.User) (user.User, error) {
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO users (email, name, password_hash, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), u.Email, u.Name, u.PasswordHash, u.Role, u.Status, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, ports.ErrDuplicate
		}
		return user.User{}, err
	}
	return u, nil
}

// Update modifies an existing user.
func (s *UserStore) Update(ctx context.Context, u user.User) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE users
		SET email = ?, name = ?, password_hash = ?, role = ?, status = ?, updated_at = ?
		WHERE id = ?
	`), u.Email, u.Name, u.PasswordHash, u.Role, u.Status, u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicate
		}
		return err
	}
	return requireRow(result)
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

// List returns all users ordered by ID.
func (s *UserStore) List(ctx context.Context) ([]user.User, error) {
	users := []user.User{}
	err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`)
	return users, err
}

// Count returns total user count.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

var _ ports.UserStore = (*UserStore)(nil)

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrNotFound
	}
	return err
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ports.ErrNotFound
	}
	return nil
}
