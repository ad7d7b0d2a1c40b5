package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale kinds
const (
	SaleKindRegular        = "venta"
	SaleKindDebtSettlement = "pago_deuda"
)

// Payment methods accepted at the counter
const (
	PaymentMethodCash  = "Efectivo"
	PaymentMethodCard  = "Tarjeta"
	PaymentMethodDebit = "Debito"
)

// Product is a catalog item. Margin is derived and only present when both
// prices are known. Stock lives on the product row; the Redis mirror is a
// fast path, the row is the durable count.
type Product struct {
	ID            int64               `db:"id" json:"id"`
	Code          string              `db:"code" json:"codigo"`
	Name          string              `db:"name" json:"nombre"`
	SellPrice     decimal.NullDecimal `db:"sell_price" json:"precio"`
	PurchasePrice decimal.NullDecimal `db:"purchase_price" json:"precioCompra"`
	Margin        decimal.NullDecimal `db:"margin" json:"ganancia"`
	CategoryID    *int64              `db:"category_id" json:"lineaId"`
	Stock         int                 `db:"stock" json:"stock"`
	ImageRef      string              `db:"image_ref" json:"imagen"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// Category ("linea") groups products and carries the markup percentage used
// to suggest sell prices.
type Category struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"nombre"`
	MarkupPercent decimal.Decimal `db:"markup_percent" json:"porcentaje"`
}

type Supplier struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"nombre"`
	Phone  string `db:"phone" json:"telefono"`
	Email  string `db:"email" json:"email"`
	Active bool   `db:"active" json:"activo"`
}

// Customer carries the outstanding balance. Balance zero implies no reserved
// debt items; the store enforces this in one transaction.
type Customer struct {
	ID         int64           `db:"id" json:"id"`
	Name       string          `db:"name" json:"nombre"`
	NationalID string          `db:"national_id" json:"dni"`
	Balance    decimal.Decimal `db:"balance" json:"deuda"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// DebtItem is stock already deducted but not yet recognized as revenue, held
// against a customer's balance. Quantity is decimal: partial payments settle
// fractional quantities.
type DebtItem struct {
	ID         int64           `db:"id" json:"id"`
	CustomerID int64           `db:"customer_id" json:"-"`
	Code       string          `db:"code" json:"codigo"`
	Name       string          `db:"name" json:"nombre"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"precio"`
	Quantity   decimal.Decimal `db:"quantity" json:"cantidad"`
	CreatedAt  time.Time       `db:"created_at" json:"-"`
}

// Sale is immutable once created. ReceiptRef names the ticket file; the file
// itself is rendered after commit and may lag or be missing.
type Sale struct {
	ID              int64           `db:"id" json:"id"`
	Total           decimal.Decimal `db:"total" json:"total"`
	PaymentMethod   string          `db:"payment_method" json:"formaPago"`
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"descuentoPorcentaje"`
	DiscountAmount  decimal.Decimal `db:"discount_amount" json:"descuentoMonto"`
	Kind            string          `db:"kind" json:"tipo"`
	ReceiptRef      string          `db:"receipt_ref" json:"factura"`
	CreatedAt       time.Time       `db:"created_at" json:"fecha"`

	Items []SaleItem `db:"-" json:"productos"`
}

type SaleItem struct {
	ID        int64           `db:"id" json:"-"`
	SaleID    int64           `db:"sale_id" json:"-"`
	Code      string          `db:"code" json:"codigo"`
	Name      string          `db:"name" json:"nombre"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"precio"`
	Quantity  decimal.Decimal `db:"quantity" json:"cantidad"`
}

// Payment records a settlement against a customer's balance. SaleID and
// SaleReceipt, when set, link the bookkeeping sale generated for this payment;
// reports use them to avoid counting the revenue twice.
type Payment struct {
	ID            int64           `db:"id" json:"id"`
	CustomerID    int64           `db:"customer_id" json:"clienteId"`
	CustomerName  string          `db:"customer_name" json:"clienteNombre"`
	Amount        decimal.Decimal `db:"amount" json:"montoPagado"`
	PaymentMethod string          `db:"payment_method" json:"formaPago"`
	SaleID        *int64          `db:"sale_id" json:"ventaId,omitempty"`
	SaleReceipt   *string         `db:"sale_receipt" json:"ventaFactura,omitempty"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"deudaPrevia"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"deudaRestante"`
	CreatedAt     time.Time       `db:"created_at" json:"fecha"`
}

type Expense struct {
	ID          int64           `db:"id" json:"id"`
	Date        time.Time       `db:"date" json:"fecha"`
	Amount      decimal.Decimal `db:"amount" json:"monto"`
	Description string          `db:"description" json:"descripcion"`
}

// User is a back-office login account. Password is a bcrypt hash.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ProcessedEvent keeps the receipt worker idempotent across redeliveries.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
