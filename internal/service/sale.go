package service

import (
	"context"
	"fmt"
	"time"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/receipt"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleRecorder validates a cart against live stock, deducts it and persists
// the sale. Receipt rendering is decoupled: the sale commits with a
// pre-generated receipt name and the worker renders the file afterwards.
type SaleRecorder struct {
	store          *store.Store
	inventory      *Inventory
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewSaleRecorder creates a new sale recorder
func NewSaleRecorder(st *store.Store, inventory *Inventory, eventPublisher *broker.EventPublisher) *SaleRecorder {
	return &SaleRecorder{
		store:          st,
		inventory:      inventory,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CartItem is one line of an incoming cart.
type CartItem struct {
	Code      string          `json:"codigo"`
	Name      string          `json:"nombre"`
	UnitPrice decimal.Decimal `json:"precio"`
	Quantity  decimal.Decimal `json:"cantidad"`
}

// RecordSaleRequest represents a request to record a sale.
type RecordSaleRequest struct {
	Items           []CartItem       `json:"productos"`
	PaymentMethod   string           `json:"formaPago"`
	DiscountPercent decimal.Decimal  `json:"descuentoPorcentaje"`
	DebtSettlement  bool             `json:"esPagoDeuda"`
	TotalOverride   *decimal.Decimal `json:"total"`
}

// RecordSale records a regular sale or a debt-settlement bookkeeping sale.
// Regular sales batch-check and deduct stock first; settlements never touch
// stock (it was deducted when the debt was assigned).
func (s *SaleRecorder) RecordSale(ctx context.Context, req *RecordSaleRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleRecorder.RecordSale")
	defer span.End()

	if len(req.Items) == 0 && !req.DebtSettlement {
		util.SalesFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethodCash
	}

	if !req.DebtSettlement && len(req.Items) > 0 {
		if err := s.deductStock(ctx, req.Items); err != nil {
			return nil, err
		}
	}

	// Only settlements carry an authoritative total; regular sales always
	// recompute server-side.
	var override *decimal.Decimal
	if req.DebtSettlement {
		override = req.TotalOverride
	}
	subtotal, discountAmount, total := calculateTotals(req.Items, req.DiscountPercent, override)
	discountPercent := req.DiscountPercent
	if override != nil {
		discountPercent = decimal.Zero
	}

	kind := models.SaleKindRegular
	if req.DebtSettlement {
		kind = models.SaleKindDebtSettlement
	}

	now := time.Now()
	sale := &models.Sale{
		Total:           total,
		PaymentMethod:   req.PaymentMethod,
		DiscountPercent: discountPercent,
		DiscountAmount:  discountAmount,
		Kind:            kind,
		ReceiptRef:      receipt.SaleFileName(now),
		Items:           cartToSaleItems(req.Items),
	}

	if err := s.store.CreateSale(ctx, sale); err != nil {
		util.SalesFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	util.SalesRecordedTotal.WithLabelValues(kind).Inc()
	s.logger.Info("Sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.String("kind", kind),
		zap.String("total", total.StringFixed(2)))

	event := &models.SaleRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleRecorded,
			Timestamp: now,
		},
		SaleID:          sale.ID,
		Kind:            kind,
		Total:           total,
		Subtotal:        subtotal,
		DiscountAmount:  discountAmount,
		DiscountPercent: discountPercent,
		PaymentMethod:   sale.PaymentMethod,
		ReceiptRef:      sale.ReceiptRef,
		Items:           saleItemsToEventData(sale.Items),
	}

	if err := s.eventPublisher.PublishSaleRecorded(ctx, event); err != nil {
		// The sale stands; the ticket can be re-rendered on demand.
		s.logger.Error("Failed to publish SaleRecorded event", zap.Error(err))
	}

	return sale, nil
}

// deductStock validates the whole cart against live stock, then deducts it
// item by item with compensation.
func (s *SaleRecorder) deductStock(ctx context.Context, items []CartItem) error {
	batch := make([]BatchItem, 0, len(items))
	codes := make([]string, 0, len(items))

	for _, item := range items {
		qty, err := wholeQuantity(item.Quantity)
		if err != nil {
			util.SalesFailedTotal.WithLabelValues("invalid_items").Inc()
			return fmt.Errorf("item %s: %w", item.Code, err)
		}
		batch = append(batch, BatchItem{Code: item.Code, Quantity: qty})
		codes = append(codes, item.Code)
	}

	products, err := s.store.GetProductsByCodes(ctx, codes)
	if err != nil {
		return fmt.Errorf("failed to look up products: %w", err)
	}

	byCode := make(map[string]*models.Product, len(products))
	for i := range products {
		byCode[products[i].Code] = &products[i]
	}

	for _, item := range batch {
		product, found := byCode[item.Code]
		if !found {
			util.SalesFailedTotal.WithLabelValues("product_not_found").Inc()
			return fmt.Errorf("product %s: %w", item.Code, store.ErrNotFound)
		}
		if product.Stock < item.Quantity {
			util.SalesFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return fmt.Errorf("product %s: %w", product.Name, store.ErrInsufficientStock)
		}
	}

	if err := s.inventory.DecrementBatch(ctx, batch); err != nil {
		util.SalesFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return err
	}
	return nil
}

// ListSales retrieves sales with items for a range
func (s *SaleRecorder) ListSales(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	return s.store.GetSalesByRange(ctx, from, to, false)
}

// calculateTotals computes subtotal, discount amount and total. An explicit
// total override (debt settlement) wins and zeroes the discount.
func calculateTotals(items []CartItem, discountPercent decimal.Decimal, override *decimal.Decimal) (subtotal, discountAmount, total decimal.Decimal) {
	if override != nil {
		return *override, decimal.Zero, *override
	}

	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(item.Quantity))
	}
	discountAmount = subtotal.Mul(discountPercent).Div(oneHundred).Round(2)
	total = subtotal.Sub(discountAmount)
	return subtotal, discountAmount, total
}

// wholeQuantity rejects non-integral or non-positive cart quantities.
// Stock is counted in whole units; fractional quantities only exist on
// settlement line items, which never reach stock.
func wholeQuantity(qty decimal.Decimal) (int, error) {
	if !qty.IsInteger() || !qty.IsPositive() {
		return 0, fmt.Errorf("quantity %s must be a positive whole number: %w", qty, ErrValidation)
	}
	return int(qty.IntPart()), nil
}

func cartToSaleItems(items []CartItem) []models.SaleItem {
	out := make([]models.SaleItem, len(items))
	for i, item := range items {
		out[i] = models.SaleItem{
			Code:      item.Code,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return out
}

func saleItemsToEventData(items []models.SaleItem) []models.SaleItemData {
	out := make([]models.SaleItemData, len(items))
	for i, item := range items {
		out[i] = models.SaleItemData{
			Code:      item.Code,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return out
}
