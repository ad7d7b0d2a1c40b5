package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pos-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSaleRecorded publishes SaleRecorded event
func (ep *EventPublisher) PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	key := fmt.Sprintf("sale-%d", event.SaleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishDebtAssigned publishes DebtAssigned event
func (ep *EventPublisher) PublishDebtAssigned(ctx context.Context, event *models.DebtAssignedEvent) error {
	key := fmt.Sprintf("customer-%d", event.CustomerID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentRecorded publishes PaymentRecorded event
func (ep *EventPublisher) PublishPaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error {
	key := fmt.Sprintf("customer-%d", event.CustomerID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed events to registered callbacks
type EventHandler struct {
	onSaleRecorded    func(context.Context, *models.SaleRecordedEvent) error
	onPaymentRecorded func(context.Context, *models.PaymentRecordedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSaleRecorded registers a handler for SaleRecorded events
func (eh *EventHandler) OnSaleRecorded(handler func(context.Context, *models.SaleRecordedEvent) error) {
	eh.onSaleRecorded = handler
}

// OnPaymentRecorded registers a handler for PaymentRecorded events
func (eh *EventHandler) OnPaymentRecorded(handler func(context.Context, *models.PaymentRecordedEvent) error) {
	eh.onPaymentRecorded = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeSaleRecorded:
		if eh.onSaleRecorded != nil {
			var event models.SaleRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleRecorded event: %w", err)
			}
			return eh.onSaleRecorded(ctx, &event)
		}

	case models.EventTypePaymentRecorded:
		if eh.onPaymentRecorded != nil {
			var event models.PaymentRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentRecorded event: %w", err)
			}
			return eh.onPaymentRecorded(ctx, &event)
		}

	default:
		// DebtAssigned has no consumer side today.
	}

	return nil
}
