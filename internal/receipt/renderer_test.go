package receipt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	return NewRenderer(Config{
		Dir:       t.TempDir(),
		StoreName: "Ron Wood",
		StoreAddr: "Felix de Olazabal 1464",
	})
}

func TestRenderSale(t *testing.T) {
	r := testRenderer(t)

	fileName, err := r.RenderSale(SaleTicket{
		PaymentMethod: "Efectivo",
		Items: []Item{
			{Name: "Yerba Canarias 1kg", UnitPrice: decimal.RequireFromString("12.50"), Quantity: decimal.NewFromInt(2)},
			{Name: "Azúcar", UnitPrice: decimal.NewFromInt(5), Quantity: decimal.NewFromInt(1)},
		},
		Subtotal:       decimal.NewFromInt(30),
		DiscountAmount: decimal.NewFromInt(3),
		Total:          decimal.NewFromInt(27),
		When:           time.Now(),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^venta_\d+\.pdf$`, fileName)

	info, err := os.Stat(filepath.Join(r.cfg.Dir, fileName))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderSaleKeepsReceiptRef(t *testing.T) {
	r := testRenderer(t)
	ref := SaleFileName(time.Now())

	fileName, err := r.RenderSale(SaleTicket{
		ReceiptRef:    ref,
		PaymentMethod: "Tarjeta",
		Total:         decimal.NewFromInt(10),
		Subtotal:      decimal.NewFromInt(10),
		When:          time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, ref, fileName)
}

func TestRenderPayment(t *testing.T) {
	r := testRenderer(t)

	fileName, err := r.RenderPayment(PaymentTicket{
		CustomerName:  "María González",
		NationalID:    "12345678",
		PaymentMethod: "Efectivo",
		BalanceBefore: decimal.NewFromInt(200),
		Amount:        decimal.NewFromInt(80),
		BalanceAfter:  decimal.NewFromInt(120),
		When:          time.Now(),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^pago_\d+\.pdf$`, fileName)

	_, err = os.Stat(filepath.Join(r.cfg.Dir, fileName))
	require.NoError(t, err)
}

func TestFileNames(t *testing.T) {
	when := time.UnixMilli(1700000000000)
	assert.Equal(t, "venta_1700000000000.pdf", SaleFileName(when))
	assert.Equal(t, "pago_1700000000000.pdf", PaymentFileName(when))
}
