package service

import (
	"context"
	"fmt"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var oneHundred = decimal.NewFromInt(100)

// Inventory applies stock deltas and price changes to the product catalog.
// Decrements are conditional: the Redis mirror is the fast path, the
// row lock in Postgres the durable one.
type Inventory struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewInventory creates a new inventory service
func NewInventory(st *store.Store, redis *redisclient.Client) *Inventory {
	return &Inventory{
		store:  st,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// ReceiveRequest describes incoming stock for one product code.
type ReceiveRequest struct {
	Code          string
	Name          string
	Quantity      int
	SellPrice     *decimal.Decimal
	PurchasePrice *decimal.Decimal
	CategoryID    *int64
	ImageRef      string
}

// Receive increments stock for an existing product, optionally overwriting
// its prices, or creates the product when the code is new. Margin is
// recomputed whenever both prices are known. Returns the resulting product
// and whether it was created.
func (s *Inventory) Receive(ctx context.Context, req *ReceiveRequest) (*models.Product, bool, error) {
	ctx, span := util.StartSpan(ctx, "Inventory.Receive")
	defer span.End()

	if req.Code == "" {
		return nil, false, fmt.Errorf("product code required: %w", ErrValidation)
	}

	product, err := s.store.GetProductByCode(ctx, req.Code)
	if err != nil {
		return nil, false, err
	}

	if product != nil {
		product.Stock += req.Quantity
		if req.PurchasePrice != nil {
			product.PurchasePrice = decimal.NullDecimal{Decimal: *req.PurchasePrice, Valid: true}
		}
		if req.SellPrice != nil {
			product.SellPrice = decimal.NullDecimal{Decimal: *req.SellPrice, Valid: true}
		}
		product.Margin = computeMargin(product.SellPrice, product.PurchasePrice)

		if err := s.store.UpdateProduct(ctx, product); err != nil {
			return nil, false, fmt.Errorf("failed to update product: %w", err)
		}
		s.mirrorStock(ctx, product.Code, product.Stock)
		return product, false, nil
	}

	product = &models.Product{
		Code:       req.Code,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Stock:      req.Quantity,
		ImageRef:   req.ImageRef,
	}
	if req.SellPrice != nil {
		product.SellPrice = decimal.NullDecimal{Decimal: *req.SellPrice, Valid: true}
	}
	if req.PurchasePrice != nil {
		product.PurchasePrice = decimal.NullDecimal{Decimal: *req.PurchasePrice, Valid: true}
	}
	product.Margin = computeMargin(product.SellPrice, product.PurchasePrice)

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, false, fmt.Errorf("failed to create product: %w", err)
	}
	s.mirrorStock(ctx, product.Code, product.Stock)
	return product, true, nil
}

// Decrement conditionally deducts stock for one product. Fast path is the
// atomic Redis script; when the product is not mirrored (or Redis is down)
// the FOR UPDATE transaction in Postgres decides.
func (s *Inventory) Decrement(ctx context.Context, code string, quantity int) error {
	ctx, span := util.StartSpan(ctx, "Inventory.Decrement")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockDecrementLatency.Observe(time.Since(start).Seconds())
	}()

	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", ErrValidation)
	}

	ok, mirrored, err := s.redis.DecrementStock(ctx, code, quantity)
	if err != nil {
		s.logger.Warn("Redis decrement failed, falling back to DB",
			zap.String("code", code),
			zap.Error(err))
		return s.decrementDB(ctx, code, quantity)
	}

	if !mirrored {
		return s.decrementDB(ctx, code, quantity)
	}

	if !ok {
		util.StockDecrementsFailed.WithLabelValues("insufficient_stock").Inc()
		return fmt.Errorf("product %s: %w", code, store.ErrInsufficientStock)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.store.DecrementStockTx(ctx, code, quantity); err != nil {
			s.logger.Error("Failed to sync stock decrement to DB",
				zap.String("code", code),
				zap.Error(err))
		}
	}()

	return nil
}

func (s *Inventory) decrementDB(ctx context.Context, code string, quantity int) error {
	if err := s.store.DecrementStockTx(ctx, code, quantity); err != nil {
		util.StockDecrementsFailed.WithLabelValues("db").Inc()
		return err
	}
	return nil
}

// BatchItem names one cart line for a batch decrement.
type BatchItem struct {
	Code     string
	Quantity int
}

// DecrementBatch deducts stock for every item, restocking the already
// deducted ones when a later item fails.
func (s *Inventory) DecrementBatch(ctx context.Context, items []BatchItem) error {
	done := make([]BatchItem, 0, len(items))

	for _, item := range items {
		if err := s.Decrement(ctx, item.Code, item.Quantity); err != nil {
			for _, d := range done {
				if rerr := s.Restock(ctx, d.Code, d.Quantity); rerr != nil {
					s.logger.Error("Failed to compensate stock decrement",
						zap.String("code", d.Code),
						zap.Int("quantity", d.Quantity),
						zap.Error(rerr))
				}
			}
			return fmt.Errorf("failed to decrement stock for %s: %w", item.Code, err)
		}
		done = append(done, item)
	}

	return nil
}

// Restock adds stock back (receive without price change, or compensation)
func (s *Inventory) Restock(ctx context.Context, code string, quantity int) error {
	if err := s.redis.Restock(ctx, code, quantity); err != nil {
		s.logger.Error("Failed to restock in Redis",
			zap.String("code", code),
			zap.Error(err))
	}
	return s.store.RestockProduct(ctx, code, quantity)
}

// ApplyPercentChange reprices every product in a category by the given
// percentage (negative lowers prices) and recomputes margins. Returns the
// number of products modified.
func (s *Inventory) ApplyPercentChange(ctx context.Context, categoryID int64, percent decimal.Decimal) (int, error) {
	ctx, span := util.StartSpan(ctx, "Inventory.ApplyPercentChange")
	defer span.End()

	products, err := s.store.GetProductsByCategory(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		return 0, fmt.Errorf("category %d has no products: %w", categoryID, ErrCategoryNotFound)
	}

	modified := 0
	for i := range products {
		p := &products[i]

		current := decimal.Zero
		if p.SellPrice.Valid {
			current = p.SellPrice.Decimal
		}
		newPrice := applyPercent(current, percent)
		newSell := decimal.NullDecimal{Decimal: newPrice, Valid: true}
		margin := computeMargin(newSell, p.PurchasePrice)

		if err := s.store.UpdateProductPricing(ctx, p.ID, newPrice, margin); err != nil {
			return modified, fmt.Errorf("failed to reprice product %s: %w", p.Code, err)
		}
		modified++
	}

	util.ProductsRepricedTotal.Add(float64(modified))
	s.logger.Info("Category repriced",
		zap.Int64("category_id", categoryID),
		zap.String("percent", percent.String()),
		zap.Int("modified", modified))
	return modified, nil
}

// SuggestSellPrice derives a sell price from the purchase price and the
// category's markup percentage.
func (s *Inventory) SuggestSellPrice(ctx context.Context, purchasePrice decimal.Decimal, categoryID int64) (decimal.Decimal, error) {
	category, err := s.store.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return decimal.Zero, err
	}
	return applyPercent(purchasePrice, category.MarkupPercent), nil
}

// LowStock lists products at or below the threshold
func (s *Inventory) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	return s.store.GetLowStockProducts(ctx, threshold)
}

// UpdateProduct overwrites a product's fields, recomputing the margin, and
// refreshes the stock mirror.
func (s *Inventory) UpdateProduct(ctx context.Context, p *models.Product) error {
	p.Margin = computeMargin(p.SellPrice, p.PurchasePrice)
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return err
	}
	s.mirrorStock(ctx, p.Code, p.Stock)
	return nil
}

// DeleteProduct removes a product and drops its stock mirror
func (s *Inventory) DeleteProduct(ctx context.Context, id int64) error {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if err := s.redis.DeleteStock(ctx, product.Code); err != nil {
		s.logger.Error("Failed to drop stock mirror",
			zap.String("code", product.Code),
			zap.Error(err))
	}
	return nil
}

// SyncStockToRedis mirrors every product's stock count into Redis
func (s *Inventory) SyncStockToRedis(ctx context.Context) error {
	s.logger.Info("Starting stock sync to Redis")

	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	for _, product := range products {
		if err := s.redis.SetStock(ctx, product.Code, product.Stock); err != nil {
			s.logger.Error("Failed to mirror stock",
				zap.String("code", product.Code),
				zap.Error(err))
		}
	}

	s.logger.Info("Stock sync completed", zap.Int("count", len(products)))
	return nil
}

func (s *Inventory) mirrorStock(ctx context.Context, code string, stock int) {
	if err := s.redis.SetStock(ctx, code, stock); err != nil {
		s.logger.Error("Failed to refresh stock mirror",
			zap.String("code", code),
			zap.Error(err))
	}
}

// applyPercent returns price × (1 + percent/100) rounded to 2 decimals.
func applyPercent(price, percent decimal.Decimal) decimal.Decimal {
	return price.Mul(oneHundred.Add(percent)).Div(oneHundred).Round(2)
}

// computeMargin derives sell − purchase when both prices are present.
func computeMargin(sell, purchase decimal.NullDecimal) decimal.NullDecimal {
	if !sell.Valid || !purchase.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: sell.Decimal.Sub(purchase.Decimal), Valid: true}
}
