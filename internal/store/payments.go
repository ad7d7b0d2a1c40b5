package store

import (
	"context"
	"time"

	"pos-service/internal/models"
)

// CreatePayment persists a payment record
func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (customer_id, customer_name, amount, payment_method,
		                      sale_id, sale_receipt, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, p, query,
		p.CustomerID, p.CustomerName, p.Amount, p.PaymentMethod,
		p.SaleID, p.SaleReceipt, p.BalanceBefore, p.BalanceAfter)
}

// GetPaymentsByRange retrieves payments for [from, to)
func (s *Store) GetPaymentsByRange(ctx context.Context, from, to time.Time, ascending bool) ([]models.Payment, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}

	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at "+order,
		from, to)
	return payments, err
}
