package store

import (
	"context"
	"database/sql"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// CreateCustomer inserts a new customer. National id is unique.
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (name, national_id, balance)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := s.db.GetContext(ctx, c, query, c.Name, c.NationalID, c.Balance)
	if isUniqueViolation(err) {
		return fmt.Errorf("national id %s: %w", c.NationalID, ErrDuplicate)
	}
	return err
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	err := s.db.GetContext(ctx, &c, "SELECT * FROM customers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomerByNationalID retrieves a customer by national id. Returns
// nil, nil when no customer carries it.
func (s *Store) GetCustomerByNationalID(ctx context.Context, nationalID string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.GetContext(ctx, &c, "SELECT * FROM customers WHERE national_id = $1", nationalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomers retrieves all customers
func (s *Store) GetCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.db.SelectContext(ctx, &customers, "SELECT * FROM customers ORDER BY name")
	return customers, err
}

// GetDebtItems retrieves the reserved line items backing a customer's balance
func (s *Store) GetDebtItems(ctx context.Context, customerID int64) ([]models.DebtItem, error) {
	var items []models.DebtItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM customer_debt_items WHERE customer_id = $1 ORDER BY id", customerID)
	return items, err
}

// GetOpenDebtItems retrieves reserved items for every customer still in debt.
// Reports count these toward top products at assignment time.
func (s *Store) GetOpenDebtItems(ctx context.Context) ([]models.DebtItem, error) {
	var items []models.DebtItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT i.* FROM customer_debt_items i
		JOIN customers c ON c.id = i.customer_id
		WHERE c.balance > 0
		ORDER BY i.id`)
	return items, err
}

// AssignDebtTx appends reserved items and raises the balance in one
// transaction. Stock is deducted by the caller before this is reached.
func (s *Store) AssignDebtTx(ctx context.Context, customerID int64, items []models.DebtItem, total decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	var balance decimal.Decimal
	err = tx.GetContext(ctx, &balance,
		"SELECT balance FROM customers WHERE id = $1 FOR UPDATE", customerID)
	if err == sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("customer %d: %w", customerID, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := balance.Add(total)
	if _, err := tx.ExecContext(ctx,
		"UPDATE customers SET balance = $1 WHERE id = $2", newBalance, customerID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO customer_debt_items (customer_id, code, name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			customerID, item.Code, item.Name, item.UnitPrice, item.Quantity); err != nil {
			return decimal.Zero, fmt.Errorf("failed to insert debt item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// SettlePaymentTx lowers the balance by the paid amount, shrinks the reserved
// quantities by the settled portion and, when the balance reaches zero, clears
// the reserved items entirely. The balance is re-read under lock so two
// concurrent payments cannot drive it negative.
func (s *Store) SettlePaymentTx(ctx context.Context, customerID int64, amount decimal.Decimal, remaining map[int64]decimal.Decimal) (before, after decimal.Decimal, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, &before,
		"SELECT balance FROM customers WHERE id = $1 FOR UPDATE", customerID)
	if err == sql.ErrNoRows {
		return decimal.Zero, decimal.Zero, fmt.Errorf("customer %d: %w", customerID, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if amount.GreaterThan(before) {
		return decimal.Zero, decimal.Zero,
			fmt.Errorf("amount %s exceeds balance %s: %w", amount, before, ErrInsufficientBalance)
	}

	after = before.Sub(amount)
	if _, err := tx.ExecContext(ctx,
		"UPDATE customers SET balance = $1 WHERE id = $2", after, customerID); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}

	if after.IsZero() {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM customer_debt_items WHERE customer_id = $1", customerID); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to clear debt items: %w", err)
		}
	} else {
		for id, qty := range remaining {
			if qty.IsZero() || qty.IsNegative() {
				if _, err := tx.ExecContext(ctx,
					"DELETE FROM customer_debt_items WHERE id = $1 AND customer_id = $2",
					id, customerID); err != nil {
					return decimal.Zero, decimal.Zero, fmt.Errorf("failed to remove settled item: %w", err)
				}
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE customer_debt_items SET quantity = $1 WHERE id = $2 AND customer_id = $3",
				qty, id, customerID); err != nil {
				return decimal.Zero, decimal.Zero, fmt.Errorf("failed to shrink debt item: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return before, after, nil
}

// GetDebtItemsByCustomers loads the reserved items of several customers in
// one query, keyed by customer id.
func (s *Store) GetDebtItemsByCustomers(ctx context.Context, customerIDs []int64) (map[int64][]models.DebtItem, error) {
	out := make(map[int64][]models.DebtItem)
	if len(customerIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In("SELECT * FROM customer_debt_items WHERE customer_id IN (?) ORDER BY id", customerIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.DebtItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	for _, item := range items {
		out[item.CustomerID] = append(out[item.CustomerID], item)
	}
	return out, nil
}
