package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pos-service/internal/models"
)

// GetCategories retrieves all categories ("lineas")
func (s *Store) GetCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c, "SELECT * FROM categories WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory inserts a new category
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.db.GetContext(ctx, &c.ID,
		"INSERT INTO categories (name, markup_percent) VALUES ($1, $2) RETURNING id",
		c.Name, c.MarkupPercent)
}

// UpdateCategory updates name and markup percentage
func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = $1, markup_percent = $2 WHERE id = $3",
		c.Name, c.MarkupPercent, c.ID)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Sprintf("category %d", c.ID))
}

// DeleteCategory removes a category
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Sprintf("category %d", id))
}

// GetSuppliers retrieves all suppliers
func (s *Store) GetSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := s.db.SelectContext(ctx, &suppliers, "SELECT * FROM suppliers ORDER BY name")
	return suppliers, err
}

// CreateSupplier inserts a new supplier
func (s *Store) CreateSupplier(ctx context.Context, sup *models.Supplier) error {
	return s.db.GetContext(ctx, &sup.ID,
		"INSERT INTO suppliers (name, phone, email, active) VALUES ($1, $2, $3, $4) RETURNING id",
		sup.Name, sup.Phone, sup.Email, sup.Active)
}

// UpdateSupplier overwrites a supplier row
func (s *Store) UpdateSupplier(ctx context.Context, sup *models.Supplier) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE suppliers SET name = $1, phone = $2, email = $3, active = $4 WHERE id = $5",
		sup.Name, sup.Phone, sup.Email, sup.Active, sup.ID)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Sprintf("supplier %d", sup.ID))
}

// CreateExpense inserts an expense record
func (s *Store) CreateExpense(ctx context.Context, e *models.Expense) error {
	return s.db.GetContext(ctx, &e.ID,
		"INSERT INTO expenses (date, amount, description) VALUES ($1, $2, $3) RETURNING id",
		e.Date, e.Amount, e.Description)
}

// GetExpensesByRange retrieves expenses for [from, to) ascending
func (s *Store) GetExpensesByRange(ctx context.Context, from, to time.Time) ([]models.Expense, error) {
	var expenses []models.Expense
	err := s.db.SelectContext(ctx, &expenses,
		"SELECT * FROM expenses WHERE date >= $1 AND date < $2 ORDER BY date", from, to)
	return expenses, err
}

// DeleteExpensesByRange removes every expense inside [from, to), returning
// the number deleted
func (s *Store) DeleteExpensesByRange(ctx context.Context, from, to time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE date >= $1 AND date < $2", from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateUser inserts a login account
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.GetContext(ctx, u,
		"INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, created_at",
		u.Username, u.PasswordHash)
	if isUniqueViolation(err) {
		return fmt.Errorf("username %s: %w", u.Username, ErrDuplicate)
	}
	return err
}

// GetUserByUsername retrieves a login account. Returns nil, nil when unknown.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
