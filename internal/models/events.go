package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleRecorded    = "SALE_RECORDED"
	EventTypeDebtAssigned    = "DEBT_ASSIGNED"
	EventTypePaymentRecorded = "PAYMENT_RECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleItemData represents line item data in events
type SaleItemData struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// SaleRecordedEvent published when a sale (or debt-settlement sale) commits.
// The receipt worker renders the ticket named by ReceiptRef.
type SaleRecordedEvent struct {
	BaseEvent
	SaleID          int64           `json:"sale_id"`
	Kind            string          `json:"kind"`
	Total           decimal.Decimal `json:"total"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	PaymentMethod   string          `json:"payment_method"`
	ReceiptRef      string          `json:"receipt_ref"`
	Items           []SaleItemData  `json:"items"`
}

// DebtAssignedEvent published when stock is reserved against a customer's balance.
type DebtAssignedEvent struct {
	BaseEvent
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	NewBalance   decimal.Decimal `json:"new_balance"`
	Items        []SaleItemData  `json:"items"`
}

// PaymentRecordedEvent published when a debt payment commits. The receipt
// worker renders the payment ticket named by ReceiptRef.
type PaymentRecordedEvent struct {
	BaseEvent
	PaymentID     int64           `json:"payment_id"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	NationalID    string          `json:"national_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReceiptRef    string          `json:"receipt_ref"`
}
