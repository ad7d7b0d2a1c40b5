package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/receipt"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventLedger tracks processed event IDs in memory.
type fakeEventLedger struct {
	processed map[string]bool
	marks     int
	checkErr  error
}

func newFakeEventLedger() *fakeEventLedger {
	return &fakeEventLedger{processed: make(map[string]bool)}
}

func (f *fakeEventLedger) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.processed[eventID], nil
}

func (f *fakeEventLedger) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	f.processed[eventID] = true
	f.marks++
	return nil
}

func testWorker(t *testing.T, ledger EventLedger) *ReceiptWorker {
	t.Helper()
	renderer := receipt.NewRenderer(receipt.Config{
		Dir:       t.TempDir(),
		StoreName: "Ron Wood",
		StoreAddr: "Felix de Olazabal 1464",
	})
	return NewReceiptWorker(nil, ledger, renderer)
}

func saleEvent(id string) *models.SaleRecordedEvent {
	return &models.SaleRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   id,
			EventType: models.EventTypeSaleRecorded,
			Timestamp: time.Now(),
		},
		SaleID:        1,
		Kind:          models.SaleKindRegular,
		PaymentMethod: models.PaymentMethodCash,
		ReceiptRef:    receipt.SaleFileName(time.Now()),
		Subtotal:      decimal.NewFromInt(30),
		Total:         decimal.NewFromInt(30),
		Items: []models.SaleItemData{
			{Code: "A1", Name: "Yerba", UnitPrice: decimal.NewFromInt(15), Quantity: decimal.NewFromInt(2)},
		},
	}
}

func TestHandleSaleRecordedMarksProcessed(t *testing.T) {
	ledger := newFakeEventLedger()
	w := testWorker(t, ledger)

	require.NoError(t, w.handleSaleRecorded(context.Background(), saleEvent("ev-1")))

	assert.True(t, ledger.processed["ev-1"])
	assert.Equal(t, 1, ledger.marks)
}

func TestHandleSaleRecordedSkipsRedelivery(t *testing.T) {
	// Kafka at-least-once delivery can hand the same event over twice; the
	// second delivery must be a no-op.
	ledger := newFakeEventLedger()
	w := testWorker(t, ledger)
	event := saleEvent("ev-1")

	require.NoError(t, w.handleSaleRecorded(context.Background(), event))
	require.NoError(t, w.handleSaleRecorded(context.Background(), event))

	assert.Equal(t, 1, ledger.marks)
}

func TestHandlePaymentRecordedSkipsRedelivery(t *testing.T) {
	ledger := newFakeEventLedger()
	w := testWorker(t, ledger)
	event := &models.PaymentRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "ev-2",
			EventType: models.EventTypePaymentRecorded,
			Timestamp: time.Now(),
		},
		PaymentID:     9,
		CustomerName:  "María González",
		NationalID:    "12345678",
		PaymentMethod: models.PaymentMethodCash,
		BalanceBefore: decimal.NewFromInt(200),
		Amount:        decimal.NewFromInt(80),
		BalanceAfter:  decimal.NewFromInt(120),
		ReceiptRef:    receipt.PaymentFileName(time.Now()),
	}

	require.NoError(t, w.handlePaymentRecorded(context.Background(), event))
	require.NoError(t, w.handlePaymentRecorded(context.Background(), event))

	assert.Equal(t, 1, ledger.marks)
}

func TestHandleSaleRecordedLedgerError(t *testing.T) {
	// A failed dedup check must surface so the message is not committed
	// and gets redelivered.
	ledger := newFakeEventLedger()
	ledger.checkErr = errors.New("connection refused")
	w := testWorker(t, ledger)

	err := w.handleSaleRecorded(context.Background(), saleEvent("ev-3"))

	require.Error(t, err)
	assert.Equal(t, 0, ledger.marks)
}
