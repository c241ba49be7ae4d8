package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/product-catalog/internal/model"
)

// ProductRepo encapsulates all database queries related to products.  It
// depends on a sql.DB connection which should be configured elsewhere.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo constructs a ProductRepo with the provided DB handle.
func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

const productColumns = "id, name, description, price, stock"

// ListProducts returns every product ordered by id, which for the
// auto-increment key is insertion order.  An empty catalog yields an empty,
// non-nil slice.
func (r *ProductRepo) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, storageErr("list products", err)
	}
	defer rows.Close()

	out := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storageErr("list products", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list products", err)
	}
	return out, nil
}

// CreateProduct inserts one row and returns it as stored.  A follow-up
// SELECT reads the row back so callers see exactly what a later list returns.
func (r *ProductRepo) CreateProduct(ctx context.Context, in model.ProductInput) (model.Product, error) {
	const qInsert = "INSERT INTO products (name, description, price, stock) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, in.Name, nullString(in.Description), in.Price, in.Stock)
	if err != nil {
		return model.Product{}, storageErr("create product", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Product{}, storageErr("create product", err)
	}

	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if err != nil {
		return model.Product{}, storageErr("create product", err)
	}
	return p, nil
}

// CountProducts returns the number of rows in the catalog.
func (r *ProductRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, storageErr("count products", err)
	}
	return n, nil
}

// CreateProducts inserts all inputs with one multi-row INSERT and returns the
// number of rows written.  No rows are written when the statement fails.
func (r *ProductRepo) CreateProducts(ctx context.Context, in []model.ProductInput) (int64, error) {
	if len(in) == 0 {
		return 0, nil
	}
	var b strings.Builder
	b.WriteString("INSERT INTO products (name, description, price, stock) VALUES ")
	args := make([]any, 0, len(in)*4)
	for i, p := range in {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?)")
		args = append(args, p.Name, nullString(p.Description), p.Price, p.Stock)
	}
	res, err := r.db.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, storageErr("create products", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("create products", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (model.Product, error) {
	var (
		p    model.Product
		desc sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Name, &desc, &p.Price, &p.Stock); err != nil {
		return model.Product{}, err
	}
	if desc.Valid {
		d := desc.String
		p.Description = &d
	}
	return p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
