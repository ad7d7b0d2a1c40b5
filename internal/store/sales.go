package store

import (
	"context"
	"fmt"
	"time"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateSale persists a sale and its line items in one transaction
func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sales (total, payment_method, discount_percent, discount_amount, kind, receipt_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	row := tx.QueryRowxContext(ctx, query,
		sale.Total, sale.PaymentMethod, sale.DiscountPercent, sale.DiscountAmount, sale.Kind, sale.ReceiptRef)
	if err := row.Scan(&sale.ID, &sale.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO sale_items (sale_id, code, name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			item.SaleID, item.Code, item.Name, item.UnitPrice, item.Quantity).Scan(&item.ID); err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	return tx.Commit()
}

// GetSalesByRange retrieves sales with their items for [from, to)
func (s *Store) GetSalesByRange(ctx context.Context, from, to time.Time, ascending bool) ([]models.Sale, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}

	var sales []models.Sale
	err := s.db.SelectContext(ctx, &sales,
		"SELECT * FROM sales WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at "+order,
		from, to)
	if err != nil {
		return nil, err
	}
	if err := s.attachSaleItems(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) attachSaleItems(ctx context.Context, sales []models.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	ids := make([]int64, len(sales))
	byID := make(map[int64]*models.Sale, len(sales))
	for i := range sales {
		ids[i] = sales[i].ID
		byID[sales[i].ID] = &sales[i]
	}

	query, args, err := sqlx.In("SELECT * FROM sale_items WHERE sale_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var items []models.SaleItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return err
	}

	for _, item := range items {
		sale := byID[item.SaleID]
		sale.Items = append(sale.Items, item)
	}
	return nil
}
