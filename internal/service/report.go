package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reporter aggregates sales, payments, expenses and open debt into the
// report feed, the chart data and the dashboard summary.
type Reporter struct {
	store  *store.Store
	logger *zap.Logger
}

// NewReporter creates a new reporter
func NewReporter(st *store.Store) *Reporter {
	return &Reporter{store: st, logger: util.GetLogger()}
}

// FeedEntry is one row of the combined report feed. Regular and settlement
// sales appear as-is; payments without a linked sale appear as synthetic
// entries with a "pago_" prefixed ID.
type FeedEntry struct {
	ID              string            `json:"id"`
	Total           decimal.Decimal   `json:"total"`
	PaymentMethod   string            `json:"formaPago"`
	DiscountPercent decimal.Decimal   `json:"descuentoPorcentaje"`
	DiscountAmount  decimal.Decimal   `json:"descuentoMonto"`
	Kind            string            `json:"tipo"`
	ReceiptRef      string            `json:"factura"`
	Date            time.Time         `json:"fecha"`
	Items           []models.SaleItem `json:"productos"`
}

// ProductCount is one entry of the top-products ranking.
type ProductCount struct {
	Name  string          `json:"nombre"`
	Count decimal.Decimal `json:"cantidad"`
}

// CategoryShare is one slice of the sales-by-category breakdown.
type CategoryShare struct {
	Category string `json:"linea"`
	Percent  int64  `json:"porcentaje"`
}

// ChartData feeds the report charts.
type ChartData struct {
	TopProducts   []ProductCount  `json:"topProductos"`
	CategoryShare []CategoryShare `json:"ventasPorLinea"`
}

// DashboardData is the landing-page summary for a range.
type DashboardData struct {
	SalesTotal    decimal.Decimal `json:"totalVentas"`
	PaymentsTotal decimal.Decimal `json:"totalPagos"`
	ExpensesTotal decimal.Decimal `json:"totalGastos"`
	Benefit       decimal.Decimal `json:"beneficio"`
	SalesCount    int             `json:"cantidadVentas"`
	OpenDebtTotal decimal.Decimal `json:"deudaPendiente"`
	LowStockCount int             `json:"productosBajoStock"`
}

// CombinedFeed merges sales and payments for the range into one
// chronological feed. A payment already represented by its bookkeeping sale
// is skipped so the money only shows once. Descending by default; charts
// request ascending.
func (r *Reporter) CombinedFeed(ctx context.Context, from, to time.Time, ascending bool) ([]FeedEntry, error) {
	ctx, span := util.StartSpan(ctx, "Reporter.CombinedFeed")
	defer span.End()

	sales, err := r.store.GetSalesByRange(ctx, from, to, ascending)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	payments, err := r.store.GetPaymentsByRange(ctx, from, to, ascending)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	return mergeFeed(sales, payments, ascending), nil
}

// TopProducts ranks the products moved in the range.
func (r *Reporter) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductCount, error) {
	ctx, span := util.StartSpan(ctx, "Reporter.TopProducts")
	defer span.End()

	sales, err := r.store.GetSalesByRange(ctx, from, to, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	openDebt, err := r.store.GetOpenDebtItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load open debt items: %w", err)
	}
	return topProducts(sales, openDebt, limit), nil
}

// CategoryShares apportions the range's regular-sale revenue per category.
func (r *Reporter) CategoryShares(ctx context.Context, from, to time.Time) ([]CategoryShare, error) {
	ctx, span := util.StartSpan(ctx, "Reporter.CategoryShares")
	defer span.End()

	sales, err := r.store.GetSalesByRange(ctx, from, to, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	products, err := r.store.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	categories, err := r.store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return categoryShares(sales, products, categories), nil
}

// Charts builds the top-product ranking and the per-category sales share for
// the range. Open debt items count toward product totals: the stock already
// left the shelf even though the revenue hasn't been recognized.
func (r *Reporter) Charts(ctx context.Context, from, to time.Time) (*ChartData, error) {
	ctx, span := util.StartSpan(ctx, "Reporter.Charts")
	defer span.End()

	sales, err := r.store.GetSalesByRange(ctx, from, to, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	openDebt, err := r.store.GetOpenDebtItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load open debt items: %w", err)
	}
	products, err := r.store.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	categories, err := r.store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	return &ChartData{
		TopProducts:   topProducts(sales, openDebt, 5),
		CategoryShare: categoryShares(sales, products, categories),
	}, nil
}

// Dashboard summarizes money movement for the range.
func (r *Reporter) Dashboard(ctx context.Context, from, to time.Time, lowStockThreshold int) (*DashboardData, error) {
	ctx, span := util.StartSpan(ctx, "Reporter.Dashboard")
	defer span.End()

	feed, err := r.CombinedFeed(ctx, from, to, false)
	if err != nil {
		return nil, err
	}
	expenses, err := r.store.GetExpensesByRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}
	customers, err := r.store.GetCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	lowStock, err := r.store.GetLowStockProducts(ctx, lowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load low-stock products: %w", err)
	}

	return summarizeDashboard(feed, expenses, customers, len(lowStock)), nil
}

// summarizeDashboard totals the feed, expenses and open balances.
// Benefit is sales plus settlements minus expenses.
func summarizeDashboard(feed []FeedEntry, expenses []models.Expense, customers []models.Customer, lowStockCount int) *DashboardData {
	data := &DashboardData{LowStockCount: lowStockCount}
	for _, entry := range feed {
		data.SalesCount++
		if entry.Kind == models.SaleKindDebtSettlement {
			data.PaymentsTotal = data.PaymentsTotal.Add(entry.Total)
		} else {
			data.SalesTotal = data.SalesTotal.Add(entry.Total)
		}
	}
	for _, e := range expenses {
		data.ExpensesTotal = data.ExpensesTotal.Add(e.Amount)
	}
	for _, c := range customers {
		data.OpenDebtTotal = data.OpenDebtTotal.Add(c.Balance)
	}
	data.Benefit = data.SalesTotal.Add(data.PaymentsTotal).Sub(data.ExpensesTotal)
	return data
}

// mergeFeed folds payments into the sale feed. Payments whose linked sale is
// already in the range are dropped; the rest become synthetic settlement
// entries with a single "pago deuda" line.
func mergeFeed(sales []models.Sale, payments []models.Payment, ascending bool) []FeedEntry {
	saleIDs := make(map[int64]struct{}, len(sales))
	receipts := make(map[string]struct{}, len(sales))
	for _, sale := range sales {
		saleIDs[sale.ID] = struct{}{}
		if sale.ReceiptRef != "" {
			receipts[sale.ReceiptRef] = struct{}{}
		}
	}

	feed := make([]FeedEntry, 0, len(sales)+len(payments))
	for _, sale := range sales {
		items := sale.Items
		if items == nil {
			items = []models.SaleItem{}
		}
		feed = append(feed, FeedEntry{
			ID:              strconv.FormatInt(sale.ID, 10),
			Total:           sale.Total,
			PaymentMethod:   sale.PaymentMethod,
			DiscountPercent: sale.DiscountPercent,
			DiscountAmount:  sale.DiscountAmount,
			Kind:            sale.Kind,
			ReceiptRef:      sale.ReceiptRef,
			Date:            sale.CreatedAt,
			Items:           items,
		})
	}

	for _, p := range payments {
		if p.SaleID != nil {
			if _, seen := saleIDs[*p.SaleID]; seen {
				continue
			}
		}
		if p.SaleReceipt != nil {
			if _, seen := receipts[*p.SaleReceipt]; seen {
				continue
			}
		}
		feed = append(feed, FeedEntry{
			ID:            "pago_" + strconv.FormatInt(p.ID, 10),
			Total:         p.Amount,
			PaymentMethod: p.PaymentMethod,
			Kind:          models.SaleKindDebtSettlement,
			Date:          p.CreatedAt,
			Items: []models.SaleItem{{
				Code:      "pago_deuda",
				Name:      "pago deuda/" + p.CustomerName,
				UnitPrice: p.Amount,
				Quantity:  decimal.NewFromInt(1),
			}},
		})
	}

	sort.SliceStable(feed, func(i, j int) bool {
		if ascending {
			return feed[i].Date.Before(feed[j].Date)
		}
		return feed[i].Date.After(feed[j].Date)
	})
	return feed
}

// topProducts ranks products by quantity moved. Settlement sales are
// excluded (their items were already counted when the debt was assigned);
// open debt items are included for the same reason.
func topProducts(sales []models.Sale, openDebt []models.DebtItem, limit int) []ProductCount {
	counts := make(map[string]decimal.Decimal)
	for _, sale := range sales {
		if sale.Kind == models.SaleKindDebtSettlement {
			continue
		}
		for _, item := range sale.Items {
			counts[item.Name] = counts[item.Name].Add(item.Quantity)
		}
	}
	for _, item := range openDebt {
		counts[item.Name] = counts[item.Name].Add(item.Quantity)
	}

	ranked := make([]ProductCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, ProductCount{Name: name, Count: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].Count.Equal(ranked[j].Count) {
			return ranked[i].Count.GreaterThan(ranked[j].Count)
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// categoryShares apportions regular-sale revenue across categories by the
// sold product's category. Settlement lines carry a synthetic "pago_" code
// and are skipped. Percentages are whole numbers of the total.
func categoryShares(sales []models.Sale, products []models.Product, categories []models.Category) []CategoryShare {
	categoryName := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryName[c.ID] = c.Name
	}
	productCategory := make(map[string]string, len(products))
	for _, p := range products {
		if p.CategoryID != nil {
			productCategory[p.Code] = categoryName[*p.CategoryID]
		}
	}

	totals := make(map[string]decimal.Decimal)
	grand := decimal.Zero
	for _, sale := range sales {
		if sale.Kind == models.SaleKindDebtSettlement {
			continue
		}
		for _, item := range sale.Items {
			if item.Code == "pago_deuda" {
				continue
			}
			category := productCategory[item.Code]
			if category == "" {
				category = "Sin línea"
			}
			amount := item.UnitPrice.Mul(item.Quantity)
			totals[category] = totals[category].Add(amount)
			grand = grand.Add(amount)
		}
	}
	if grand.IsZero() {
		return []CategoryShare{}
	}

	shares := make([]CategoryShare, 0, len(totals))
	for category, total := range totals {
		percent := total.Mul(oneHundred).Div(grand).Round(0).IntPart()
		shares = append(shares, CategoryShare{Category: category, Percent: percent})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Percent != shares[j].Percent {
			return shares[i].Percent > shares[j].Percent
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}
