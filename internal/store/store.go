package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Sentinel errors surfaced to the service layer.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicate           = errors.New("duplicate")
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductByCode retrieves a product by its catalog code. Returns nil, nil
// when the code is unknown so receive can decide between create and update.
func (s *Store) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductsByCodes retrieves multiple products in one batch lookup
func (s *Store) GetProductsByCodes(ctx context.Context, codes []string) ([]models.Product, error) {
	if len(codes) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE code IN (?)", codes)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetProductsByCategory retrieves every product assigned to a category
func (s *Store) GetProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE category_id = $1 ORDER BY id", categoryID)
	return products, err
}

// GetLowStockProducts retrieves products at or below the stock threshold
func (s *Store) GetLowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE stock <= $1 ORDER BY stock, id", threshold)
	return products, err
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (code, name, sell_price, purchase_price, margin, category_id, stock, image_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, p, query,
		p.Code, p.Name, p.SellPrice, p.PurchasePrice, p.Margin, p.CategoryID, p.Stock, p.ImageRef)
	if isUniqueViolation(err) {
		return fmt.Errorf("product code %s: %w", p.Code, ErrDuplicate)
	}
	return err
}

// UpdateProduct overwrites the mutable fields of a product row
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET code = $1, name = $2, sell_price = $3, purchase_price = $4,
		    margin = $5, category_id = $6, stock = $7, image_ref = $8, updated_at = NOW()
		WHERE id = $9`,
		p.Code, p.Name, p.SellPrice, p.PurchasePrice, p.Margin, p.CategoryID, p.Stock, p.ImageRef, p.ID)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Sprintf("product %d", p.ID))
}

// UpdateProductPricing updates sell price and margin only (bulk reprice path)
func (s *Store) UpdateProductPricing(ctx context.Context, id int64, sellPrice decimal.Decimal, margin decimal.NullDecimal) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET sell_price = $1, margin = $2, updated_at = NOW() WHERE id = $3",
		sellPrice, margin, id)
	return err
}

// DeleteProduct removes a product by ID
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Sprintf("product %d", id))
}

// DecrementStockTx conditionally deducts stock inside a transaction
// (FOR UPDATE lock). The check and the write happen under the same lock, so
// concurrent carts cannot oversell.
func (s *Store) DecrementStockTx(ctx context.Context, code string, quantity int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stock int
	err = tx.GetContext(ctx, &stock,
		"SELECT stock FROM products WHERE code = $1 FOR UPDATE", code)
	if err == sql.ErrNoRows {
		return fmt.Errorf("product %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock product row: %w", err)
	}

	if stock < quantity {
		return fmt.Errorf("product %s: have %d, want %d: %w", code, stock, quantity, ErrInsufficientStock)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE code = $2",
		quantity, code)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	return tx.Commit()
}

// RestockProduct adds stock back (receive or decrement compensation)
func (s *Store) RestockProduct(ctx context.Context, code string, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE code = $2",
		quantity, code)
	return err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
