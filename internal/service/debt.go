package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/receipt"
	"pos-service/internal/redisclient"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// paymentLockTTL bounds how long a customer's ledger stays locked if the
// holder dies mid-payment.
const paymentLockTTL = 10 * time.Second

// DebtLedger manages customer balances and the debt items backing them.
// Assigning debt deducts stock immediately; payments settle items
// proportionally and generate a bookkeeping sale so reports see the revenue.
type DebtLedger struct {
	store          *store.Store
	redis          *redisclient.Client
	inventory      *Inventory
	sales          *SaleRecorder
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewDebtLedger creates a new debt ledger service
func NewDebtLedger(st *store.Store, redis *redisclient.Client, inventory *Inventory, sales *SaleRecorder, eventPublisher *broker.EventPublisher) *DebtLedger {
	return &DebtLedger{
		store:          st,
		redis:          redis,
		inventory:      inventory,
		sales:          sales,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// AssignDebtRequest represents a request to put a cart on a customer's tab.
type AssignDebtRequest struct {
	CustomerName string          `json:"nombre"`
	NationalID   string          `json:"dni"`
	Items        []CartItem      `json:"productos"`
	Total        decimal.Decimal `json:"total"`
}

// RecordPaymentRequest represents a payment against a customer's balance.
type RecordPaymentRequest struct {
	CustomerID    int64           `json:"clienteId"`
	Amount        decimal.Decimal `json:"montoPagado"`
	PaymentMethod string          `json:"formaPago"`
}

// AssignDebt creates a customer and puts the cart on their tab. A national
// ID already on file is rejected; adding debt to an existing customer goes
// through AddDebt instead.
func (s *DebtLedger) AssignDebt(ctx context.Context, req *AssignDebtRequest) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "DebtLedger.AssignDebt")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if req.CustomerName == "" || req.NationalID == "" {
		return nil, fmt.Errorf("customer name and national ID are required: %w", ErrValidation)
	}

	existing, err := s.store.GetCustomerByNationalID(ctx, req.NationalID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}
	if err := requireNewCustomer(existing, req.NationalID); err != nil {
		return nil, err
	}

	customer := &models.Customer{
		Name:       req.CustomerName,
		NationalID: req.NationalID,
		Balance:    decimal.Zero,
	}
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	return s.assignToCustomer(ctx, customer, req.Items, req.Total)
}

// AddDebt appends a cart to an existing customer's tab.
func (s *DebtLedger) AddDebt(ctx context.Context, customerID int64, items []CartItem, total decimal.Decimal) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "DebtLedger.AddDebt")
	defer span.End()

	customer, err := s.store.GetCustomerByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.assignToCustomer(ctx, customer, items, total)
}

// requireNewCustomer rejects a national ID that is already on file.
func requireNewCustomer(existing *models.Customer, nationalID string) error {
	if existing != nil {
		return fmt.Errorf("national id %s: %w", nationalID, store.ErrDuplicate)
	}
	return nil
}

func (s *DebtLedger) assignToCustomer(ctx context.Context, customer *models.Customer, items []CartItem, total decimal.Decimal) (*models.Customer, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	batch := make([]BatchItem, 0, len(items))
	for _, item := range items {
		qty, err := wholeQuantity(item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.Code, err)
		}
		batch = append(batch, BatchItem{Code: item.Code, Quantity: qty})
	}

	if err := s.inventory.DecrementBatch(ctx, batch); err != nil {
		return nil, err
	}

	if total.IsZero() {
		for _, item := range items {
			total = total.Add(item.UnitPrice.Mul(item.Quantity))
		}
	}

	debtItems := make([]models.DebtItem, len(items))
	for i, item := range items {
		debtItems[i] = models.DebtItem{
			CustomerID: customer.ID,
			Code:       item.Code,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		}
	}

	newBalance, err := s.store.AssignDebtTx(ctx, customer.ID, debtItems, total)
	if err != nil {
		// Stock was already deducted; put it back before failing.
		s.restock(ctx, batch)
		return nil, fmt.Errorf("failed to assign debt: %w", err)
	}
	customer.Balance = newBalance

	util.DebtAssignedTotal.Inc()
	s.logger.Info("Debt assigned",
		zap.Int64("customer_id", customer.ID),
		zap.String("amount", total.StringFixed(2)),
		zap.String("new_balance", newBalance.StringFixed(2)))

	event := &models.DebtAssignedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeDebtAssigned,
			Timestamp: time.Now(),
		},
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Amount:       total,
		NewBalance:   newBalance,
		Items:        saleItemsToEventData(cartToSaleItems(items)),
	}
	if err := s.eventPublisher.PublishDebtAssigned(ctx, event); err != nil {
		s.logger.Error("Failed to publish DebtAssigned event", zap.Error(err))
	}

	return customer, nil
}

// RecordPayment settles part or all of a customer's balance. Debt items are
// scaled down proportionally, a bookkeeping sale records the revenue, and the
// payment row links to it so reports don't double-count.
func (s *DebtLedger) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "DebtLedger.RecordPayment")
	defer span.End()

	if !req.Amount.IsPositive() {
		util.PaymentsRejectedTotal.WithLabelValues("invalid_amount").Inc()
		return nil, fmt.Errorf("payment amount must be positive: %w", ErrInvalidPaymentAmount)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethodCash
	}

	lockKey := fmt.Sprintf("payment:customer:%d", req.CustomerID)
	locked, err := s.redis.AcquireLock(ctx, lockKey, paymentLockTTL)
	if err != nil {
		s.logger.Warn("Payment lock unavailable, proceeding on row locks only", zap.Error(err))
	} else if !locked {
		util.PaymentsRejectedTotal.WithLabelValues("concurrent").Inc()
		return nil, ErrConcurrentModification
	} else {
		defer func() {
			if err := s.redis.ReleaseLock(context.Background(), lockKey); err != nil {
				s.logger.Warn("Failed to release payment lock", zap.Error(err))
			}
		}()
	}

	customer, err := s.store.GetCustomerByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.PaymentsRejectedTotal.WithLabelValues("customer_not_found").Inc()
		}
		return nil, err
	}

	if req.Amount.GreaterThan(customer.Balance) {
		util.PaymentsRejectedTotal.WithLabelValues("exceeds_balance").Inc()
		return nil, fmt.Errorf("payment %s exceeds balance %s: %w",
			req.Amount.StringFixed(2), customer.Balance.StringFixed(2), ErrInvalidPaymentAmount)
	}

	items, err := s.store.GetDebtItems(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load debt items: %w", err)
	}

	settled, remaining := scaleDebtItems(items, req.Amount, customer.Balance)

	before, after, err := s.store.SettlePaymentTx(ctx, customer.ID, req.Amount, remaining)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			util.PaymentsRejectedTotal.WithLabelValues("exceeds_balance").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidPaymentAmount, err)
		}
		return nil, fmt.Errorf("failed to settle payment: %w", err)
	}

	// The bookkeeping sale carries the settled fractions as its line items.
	// It runs only after the settle commits, so a failed settle never leaves
	// a stray sale in the feed. If the sale itself fails the payment still
	// goes through; reports just lose the product-level detail.
	var saleID *int64
	var saleReceipt *string
	sale, err := s.sales.RecordSale(ctx, &RecordSaleRequest{
		Items:          settled,
		PaymentMethod:  req.PaymentMethod,
		DebtSettlement: true,
		TotalOverride:  &req.Amount,
	})
	if err != nil {
		s.logger.Warn("Failed to record settlement sale, payment continues",
			zap.Int64("customer_id", customer.ID), zap.Error(err))
	} else {
		saleID = &sale.ID
		saleReceipt = &sale.ReceiptRef
	}

	now := time.Now()
	payment := &models.Payment{
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		SaleID:        saleID,
		SaleReceipt:   saleReceipt,
		BalanceBefore: before,
		BalanceAfter:  after,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	util.PaymentsRecordedTotal.Inc()
	s.logger.Info("Payment recorded",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("customer_id", customer.ID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("balance_after", after.StringFixed(2)))

	event := &models.PaymentRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentRecorded,
			Timestamp: now,
		},
		PaymentID:     payment.ID,
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		NationalID:    customer.NationalID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		BalanceBefore: before,
		BalanceAfter:  after,
		ReceiptRef:    receipt.PaymentFileName(now),
	}
	if err := s.eventPublisher.PublishPaymentRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentRecorded event", zap.Error(err))
	}

	return payment, nil
}

// ListDebtors returns customers with their open debt items attached.
type Debtor struct {
	models.Customer
	Items []models.DebtItem `json:"productosDeuda"`
}

func (s *DebtLedger) ListDebtors(ctx context.Context) ([]Debtor, error) {
	customers, err := s.store.GetCustomers(ctx)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return []Debtor{}, nil
	}

	ids := make([]int64, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	itemsByCustomer, err := s.store.GetDebtItemsByCustomers(ctx, ids)
	if err != nil {
		return nil, err
	}

	debtors := make([]Debtor, len(customers))
	for i, c := range customers {
		items := itemsByCustomer[c.ID]
		if items == nil {
			items = []models.DebtItem{}
		}
		debtors[i] = Debtor{Customer: c, Items: items}
	}
	return debtors, nil
}

// ListPayments retrieves payments for a range, newest first
func (s *DebtLedger) ListPayments(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	return s.store.GetPaymentsByRange(ctx, from, to, false)
}

func (s *DebtLedger) restock(ctx context.Context, items []BatchItem) {
	for _, item := range items {
		if err := s.inventory.Restock(ctx, item.Code, item.Quantity); err != nil {
			s.logger.Error("Failed to restock after aborted debt assignment",
				zap.String("code", item.Code), zap.Int("quantity", item.Quantity), zap.Error(err))
		}
	}
}

// scaleDebtItems splits each open debt item into the fraction settled by the
// payment and the fraction that stays on the tab. A payment covering the
// whole balance settles everything; otherwise quantities shrink by
// amount/balance, rounded to 2 decimals.
func scaleDebtItems(items []models.DebtItem, amount, balance decimal.Decimal) (settled []CartItem, remaining map[int64]decimal.Decimal) {
	remaining = make(map[int64]decimal.Decimal, len(items))
	settled = make([]CartItem, 0, len(items))

	if balance.IsZero() || amount.GreaterThanOrEqual(balance) {
		for _, item := range items {
			remaining[item.ID] = decimal.Zero
			settled = append(settled, CartItem{
				Code:      item.Code,
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
			})
		}
		return settled, remaining
	}

	proportion := amount.Div(balance)
	for _, item := range items {
		settledQty := item.Quantity.Mul(proportion).Round(2)
		remaining[item.ID] = item.Quantity.Sub(settledQty)
		if settledQty.IsPositive() {
			settled = append(settled, CartItem{
				Code:      item.Code,
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Quantity:  settledQty,
			})
		}
	}
	return settled, remaining
}
