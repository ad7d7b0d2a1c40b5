package service

import (
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFeedDedup(t *testing.T) {
	saleID := int64(7)
	receiptRef := "venta_1700000000000.pdf"
	now := time.Now()

	sales := []models.Sale{
		{ID: 7, Total: decimal.NewFromInt(80), Kind: models.SaleKindDebtSettlement,
			ReceiptRef: receiptRef, CreatedAt: now},
		{ID: 8, Total: decimal.NewFromInt(150), Kind: models.SaleKindRegular,
			CreatedAt: now.Add(-time.Hour)},
	}
	payments := []models.Payment{
		// Linked to sale 7: must not appear twice.
		{ID: 1, CustomerName: "Juan", Amount: decimal.NewFromInt(80),
			SaleID: &saleID, SaleReceipt: &receiptRef, CreatedAt: now},
		// No linked sale in range: becomes a synthetic entry.
		{ID: 2, CustomerName: "Ana", Amount: decimal.NewFromInt(30),
			CreatedAt: now.Add(-2 * time.Hour)},
	}

	feed := mergeFeed(sales, payments, false)

	require.Len(t, feed, 3)
	ids := make([]string, len(feed))
	for i, entry := range feed {
		ids[i] = entry.ID
	}
	assert.Contains(t, ids, "7")
	assert.Contains(t, ids, "8")
	assert.Contains(t, ids, "pago_2")
	assert.NotContains(t, ids, "pago_1")
}

func TestMergeFeedSyntheticEntry(t *testing.T) {
	payments := []models.Payment{
		{ID: 5, CustomerName: "Ana", Amount: decimal.NewFromInt(30),
			PaymentMethod: models.PaymentMethodCash, CreatedAt: time.Now()},
	}

	feed := mergeFeed(nil, payments, false)

	require.Len(t, feed, 1)
	entry := feed[0]
	assert.Equal(t, "pago_5", entry.ID)
	assert.Equal(t, models.SaleKindDebtSettlement, entry.Kind)
	require.Len(t, entry.Items, 1)
	assert.Equal(t, "pago deuda/Ana", entry.Items[0].Name)
	assert.True(t, decimal.NewFromInt(30).Equal(entry.Total))
}

func TestMergeFeedOrdering(t *testing.T) {
	now := time.Now()
	sales := []models.Sale{
		{ID: 1, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, CreatedAt: now},
		{ID: 3, CreatedAt: now.Add(-time.Hour)},
	}

	desc := mergeFeed(sales, nil, false)
	require.Len(t, desc, 3)
	assert.Equal(t, "2", desc[0].ID)
	assert.Equal(t, "1", desc[2].ID)

	asc := mergeFeed(sales, nil, true)
	assert.Equal(t, "1", asc[0].ID)
	assert.Equal(t, "2", asc[2].ID)
}

func TestTopProducts(t *testing.T) {
	sales := []models.Sale{
		{Kind: models.SaleKindRegular, Items: []models.SaleItem{
			{Name: "Yerba", Quantity: decimal.NewFromInt(3)},
			{Name: "Azúcar", Quantity: decimal.NewFromInt(1)},
		}},
		// Settlement items were counted when the debt was assigned.
		{Kind: models.SaleKindDebtSettlement, Items: []models.SaleItem{
			{Name: "Yerba", Quantity: decimal.NewFromInt(10)},
		}},
	}
	openDebt := []models.DebtItem{
		{Name: "Azúcar", Quantity: decimal.NewFromInt(4)},
	}

	ranked := topProducts(sales, openDebt, 5)

	require.Len(t, ranked, 2)
	assert.Equal(t, "Azúcar", ranked[0].Name)
	assert.True(t, decimal.NewFromInt(5).Equal(ranked[0].Count))
	assert.Equal(t, "Yerba", ranked[1].Name)
	assert.True(t, decimal.NewFromInt(3).Equal(ranked[1].Count))
}

func TestTopProductsLimit(t *testing.T) {
	sales := []models.Sale{
		{Kind: models.SaleKindRegular, Items: []models.SaleItem{
			{Name: "A", Quantity: decimal.NewFromInt(5)},
			{Name: "B", Quantity: decimal.NewFromInt(4)},
			{Name: "C", Quantity: decimal.NewFromInt(3)},
		}},
	}

	ranked := topProducts(sales, nil, 2)

	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].Name)
	assert.Equal(t, "B", ranked[1].Name)
}

func TestCategoryShares(t *testing.T) {
	almacenID, bebidasID := int64(1), int64(2)
	categories := []models.Category{
		{ID: almacenID, Name: "Almacén"},
		{ID: bebidasID, Name: "Bebidas"},
	}
	products := []models.Product{
		{Code: "A1", CategoryID: &almacenID},
		{Code: "B1", CategoryID: &bebidasID},
	}
	sales := []models.Sale{
		{Kind: models.SaleKindRegular, Items: []models.SaleItem{
			{Code: "A1", UnitPrice: decimal.NewFromInt(75), Quantity: decimal.NewFromInt(1)},
			{Code: "B1", UnitPrice: decimal.NewFromInt(25), Quantity: decimal.NewFromInt(1)},
		}},
	}

	shares := categoryShares(sales, products, categories)

	require.Len(t, shares, 2)
	assert.Equal(t, "Almacén", shares[0].Category)
	assert.EqualValues(t, 75, shares[0].Percent)
	assert.Equal(t, "Bebidas", shares[1].Category)
	assert.EqualValues(t, 25, shares[1].Percent)
}

func TestCategorySharesSkipsSettlementLines(t *testing.T) {
	sales := []models.Sale{
		{Kind: models.SaleKindRegular, Items: []models.SaleItem{
			{Code: "pago_deuda", UnitPrice: decimal.NewFromInt(50), Quantity: decimal.NewFromInt(1)},
		}},
		{Kind: models.SaleKindDebtSettlement, Items: []models.SaleItem{
			{Code: "A1", UnitPrice: decimal.NewFromInt(50), Quantity: decimal.NewFromInt(1)},
		}},
	}

	shares := categoryShares(sales, nil, nil)
	assert.Empty(t, shares)
}

func TestSummarizeDashboard(t *testing.T) {
	feed := []FeedEntry{
		{Kind: models.SaleKindRegular, Total: decimal.NewFromInt(150)},
		{Kind: models.SaleKindRegular, Total: decimal.NewFromInt(50)},
		{Kind: models.SaleKindDebtSettlement, Total: decimal.NewFromInt(80)},
	}
	expenses := []models.Expense{
		{Amount: decimal.NewFromInt(40)},
		{Amount: decimal.NewFromInt(10)},
	}
	customers := []models.Customer{
		{Balance: decimal.NewFromInt(120)},
		{Balance: decimal.Zero},
	}

	data := summarizeDashboard(feed, expenses, customers, 3)

	assert.True(t, decimal.NewFromInt(200).Equal(data.SalesTotal), "sales = %s", data.SalesTotal)
	assert.True(t, decimal.NewFromInt(80).Equal(data.PaymentsTotal), "payments = %s", data.PaymentsTotal)
	assert.True(t, decimal.NewFromInt(50).Equal(data.ExpensesTotal), "expenses = %s", data.ExpensesTotal)
	// 200 + 80 - 50
	assert.True(t, decimal.NewFromInt(230).Equal(data.Benefit), "benefit = %s", data.Benefit)
	assert.Equal(t, 3, data.SalesCount)
	assert.True(t, decimal.NewFromInt(120).Equal(data.OpenDebtTotal))
	assert.Equal(t, 3, data.LowStockCount)
}

func TestSummarizeDashboardEmptyRange(t *testing.T) {
	data := summarizeDashboard(nil, nil, nil, 0)

	assert.True(t, data.Benefit.IsZero())
	assert.Equal(t, 0, data.SalesCount)
}
