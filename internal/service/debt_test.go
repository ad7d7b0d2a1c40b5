package service

import (
	"testing"

	"pos-service/internal/models"
	"pos-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireNewCustomerRejectsKnownDNI(t *testing.T) {
	existing := &models.Customer{ID: 7, Name: "Ana", NationalID: "30111222"}

	err := requireNewCustomer(existing, "30111222")

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestRequireNewCustomerAllowsUnknownDNI(t *testing.T) {
	assert.NoError(t, requireNewCustomer(nil, "30111222"))
}

func TestScaleDebtItemsPartial(t *testing.T) {
	// Balance 200, payment 80: proportion 0.4, a reserved quantity of 5
	// settles 2 and keeps 3 on the tab.
	items := []models.DebtItem{
		{ID: 1, Code: "A1", Name: "Yerba", UnitPrice: decimal.NewFromInt(40), Quantity: decimal.NewFromInt(5)},
	}

	settled, remaining := scaleDebtItems(items, decimal.NewFromInt(80), decimal.NewFromInt(200))

	require.Len(t, settled, 1)
	assert.True(t, decimal.NewFromInt(2).Equal(settled[0].Quantity), "settled qty = %s", settled[0].Quantity)
	assert.True(t, decimal.NewFromInt(3).Equal(remaining[1]), "remaining qty = %s", remaining[1])
}

func TestScaleDebtItemsFull(t *testing.T) {
	items := []models.DebtItem{
		{ID: 1, Code: "A1", Quantity: decimal.NewFromInt(2)},
		{ID: 2, Code: "B2", Quantity: decimal.RequireFromString("1.5")},
	}

	settled, remaining := scaleDebtItems(items, decimal.NewFromInt(100), decimal.NewFromInt(100))

	require.Len(t, settled, 2)
	assert.True(t, decimal.NewFromInt(2).Equal(settled[0].Quantity))
	assert.True(t, decimal.RequireFromString("1.5").Equal(settled[1].Quantity))
	assert.True(t, remaining[1].IsZero())
	assert.True(t, remaining[2].IsZero())
}

func TestScaleDebtItemsRounding(t *testing.T) {
	// Settled quantities round to 2 decimals; the remainder absorbs the
	// rounding so settled + remaining always equals the original quantity.
	items := []models.DebtItem{
		{ID: 1, Code: "A1", Quantity: decimal.NewFromInt(1)},
	}

	settled, remaining := scaleDebtItems(items, decimal.NewFromInt(1), decimal.NewFromInt(3))

	require.Len(t, settled, 1)
	sum := settled[0].Quantity.Add(remaining[1])
	assert.True(t, decimal.NewFromInt(1).Equal(sum), "settled+remaining = %s", sum)
}

func TestScaleDebtItemsSecondPartial(t *testing.T) {
	// After a partial payment the next proportion computes against the
	// shrunken remainder, not the original reserved list.
	items := []models.DebtItem{
		{ID: 1, Code: "A1", Quantity: decimal.NewFromInt(5)},
	}

	_, remaining := scaleDebtItems(items, decimal.NewFromInt(80), decimal.NewFromInt(200))
	items[0].Quantity = remaining[1] // 3 left, balance now 120

	settled, remaining := scaleDebtItems(items, decimal.NewFromInt(60), decimal.NewFromInt(120))

	require.Len(t, settled, 1)
	assert.True(t, decimal.RequireFromString("1.5").Equal(settled[0].Quantity))
	assert.True(t, decimal.RequireFromString("1.5").Equal(remaining[1]))
}

func TestRecordPayment(t *testing.T) {
	t.Skip("Integration test - requires database, Redis and Kafka")
}
