package sqlstore

import (
	"context"

	"github.com/artpar/crudgate/domain/product"
	"github.com/artpar/crudgate/ports"
)

const productColumns = `id, name, description, price_cents, stock, owner_id, created_at, updated_at`

// ProductStore implements ports.ProductStore.
type ProductStore struct {
	db *DB
}

// NewProductStore creates a new SQL product store.
func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) Get(ctx context.Context, id int64) (product.Product, error) {
	var p product.Product
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id)
	return p, notFound(err)
}

func (s *ProductStore) Create(ctx context.Context, p product.Product) (product.Product, error) {
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO products (name, description, price_cents, stock, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), p.Name, p.Description, p.PriceCents, p.Stock, p.OwnerID, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return product.Product{}, err
	}
	return p, nil
}

func (s *ProductStore) Update(ctx context.Context, p product.Product) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE products
		SET name = ?, description = ?, price_cents = ?, stock = ?, updated_at = ?
		WHERE id = ?
	`), p.Name, p.Description, p.PriceCents, p.Stock, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *ProductStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

func (s *ProductStore) List(ctx context.Context) ([]product.Product, error) {
	products := []product.Product{}
	err := s.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products ORDER BY id`)
	return products, err
}

var _ ports.ProductStore = (*ProductStore)(nil)
