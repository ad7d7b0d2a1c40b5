package worker

import (
	"context"
	"fmt"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/receipt"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// EventLedger records which event IDs have already been handled.
// *store.Store satisfies it.
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ReceiptWorker consumes sale and payment events and renders the ticket
// files their ReceiptRef names. Processed event IDs are recorded so Kafka
// redeliveries don't render twice.
type ReceiptWorker struct {
	consumer *broker.Consumer
	store    EventLedger
	renderer *receipt.Renderer
	logger   *zap.Logger
}

// NewReceiptWorker creates a new receipt worker
func NewReceiptWorker(consumer *broker.Consumer, st EventLedger, renderer *receipt.Renderer) *ReceiptWorker {
	return &ReceiptWorker{
		consumer: consumer,
		store:    st,
		renderer: renderer,
		logger:   util.GetLogger(),
	}
}

// Start begins consuming events. Blocks until the context is cancelled.
func (w *ReceiptWorker) Start(ctx context.Context) error {
	handler := broker.NewEventHandler()
	handler.OnSaleRecorded(w.handleSaleRecorded)
	handler.OnPaymentRecorded(w.handlePaymentRecorded)

	w.logger.Info("Receipt worker starting")
	return w.consumer.StartConsuming(ctx, handler.HandleMessage)
}

// Stop closes the underlying consumer.
func (w *ReceiptWorker) Stop() {
	if err := w.consumer.Close(); err != nil {
		w.logger.Error("Failed to close receipt consumer", zap.Error(err))
	}
}

func (w *ReceiptWorker) handleSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	done, err := w.alreadyProcessed(ctx, event.EventID)
	if err != nil || done {
		return err
	}

	items := make([]receipt.Item, len(event.Items))
	for i, item := range event.Items {
		items[i] = receipt.Item{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	fileName, err := w.renderer.RenderSale(receipt.SaleTicket{
		ReceiptRef:     event.ReceiptRef,
		PaymentMethod:  event.PaymentMethod,
		Items:          items,
		Subtotal:       event.Subtotal,
		DiscountAmount: event.DiscountAmount,
		Total:          event.Total,
		When:           event.Timestamp,
	})
	if err != nil {
		util.ReceiptsFailedTotal.WithLabelValues("sale").Inc()
		return fmt.Errorf("failed to render sale receipt: %w", err)
	}

	util.ReceiptsRenderedTotal.WithLabelValues("sale").Inc()
	w.logger.Info("Sale receipt rendered",
		zap.Int64("sale_id", event.SaleID),
		zap.String("file", fileName))

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *ReceiptWorker) handlePaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error {
	done, err := w.alreadyProcessed(ctx, event.EventID)
	if err != nil || done {
		return err
	}

	fileName, err := w.renderer.RenderPayment(receipt.PaymentTicket{
		ReceiptRef:    event.ReceiptRef,
		CustomerName:  event.CustomerName,
		NationalID:    event.NationalID,
		PaymentMethod: event.PaymentMethod,
		BalanceBefore: event.BalanceBefore,
		Amount:        event.Amount,
		BalanceAfter:  event.BalanceAfter,
		When:          event.Timestamp,
	})
	if err != nil {
		util.ReceiptsFailedTotal.WithLabelValues("payment").Inc()
		return fmt.Errorf("failed to render payment receipt: %w", err)
	}

	util.ReceiptsRenderedTotal.WithLabelValues("payment").Inc()
	w.logger.Info("Payment receipt rendered",
		zap.Int64("payment_id", event.PaymentID),
		zap.String("file", fileName))

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *ReceiptWorker) alreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	processed, err := w.store.IsEventProcessed(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	if processed {
		w.logger.Debug("Event already processed, skipping", zap.String("event_id", eventID))
	}
	return processed, nil
}
