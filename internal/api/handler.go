package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pos-service/internal/receipt"
	"pos-service/internal/service"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	inventory *service.Inventory
	sales     *service.SaleRecorder
	debts     *service.DebtLedger
	reports   *service.Reporter
	auth      *service.Auth
	store     *store.Store
	renderer  *receipt.Renderer

	receiptsDir       string
	uploadsDir        string
	lowStockThreshold int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	inventory *service.Inventory,
	sales *service.SaleRecorder,
	debts *service.DebtLedger,
	reports *service.Reporter,
	auth *service.Auth,
	st *store.Store,
	renderer *receipt.Renderer,
	receiptsDir, uploadsDir string,
	lowStockThreshold int,
) *Handler {
	return &Handler{
		inventory:         inventory,
		sales:             sales,
		debts:             debts,
		reports:           reports,
		auth:              auth,
		store:             st,
		renderer:          renderer,
		receiptsDir:       receiptsDir,
		uploadsDir:        uploadsDir,
		lowStockThreshold: lowStockThreshold,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.Static("/facturas", h.receiptsDir)
	router.Static("/uploads", h.uploadsDir)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
	}

	api := router.Group("/")
	api.Use(h.authMiddleware())
	{
		api.POST("/ventas", h.createSale)
		api.GET("/ventas", h.listSales)

		api.GET("/productos", h.listProducts)
		api.POST("/productos", h.receiveProduct)
		api.PUT("/productos/:id", h.updateProduct)
		api.DELETE("/productos/:id", h.deleteProduct)
		api.GET("/productos/bajo-stock", h.lowStockProducts)
		api.GET("/productos/sugerir-precio", h.suggestSellPrice)
		api.POST("/productos/aumentar-linea", h.repriceCategory)

		api.GET("/clientes", h.listDebtors)
		api.POST("/clientes", h.assignDebt)
		api.PUT("/clientes/:id", h.addDebtToCustomer)

		api.POST("/pagos", h.recordPayment)
		api.GET("/pagos", h.listPayments)
		api.POST("/pagos/factura", h.renderPaymentReceipt)

		api.GET("/reportes", h.dailyReport)
		api.GET("/reportes/graficos", h.chartReport)
		api.GET("/reportes/top-productos", h.topProducts)
		api.GET("/reportes/lineas", h.categoryShares)
		api.GET("/dashboard-datos", h.dashboard)

		api.GET("/lineas", h.listCategories)
		api.POST("/lineas", h.createCategory)
		api.PUT("/lineas/:id", h.updateCategory)
		api.DELETE("/lineas/:id", h.deleteCategory)

		api.GET("/proveedores", h.listSuppliers)
		api.POST("/proveedores", h.createSupplier)
		api.PUT("/proveedores/:id", h.updateSupplier)

		api.GET("/gastos", h.listExpenses)
		api.POST("/gastos", h.createExpense)
		api.DELETE("/gastos", h.deleteExpenses)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// authMiddleware requires a valid Bearer token on the API group.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Token requerido",
			})
			return
		}

		claims, err := h.auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Token inválido o expirado",
			})
			return
		}

		c.Set("username", claims["username"])
		c.Next()
	}
}

// respondError maps service and store sentinels to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrCategoryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrInsufficientBalance),
		errors.Is(err, service.ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, store.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidPaymentAmount):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}

	c.JSON(status, gin.H{
		"success": false,
		"message": err.Error(),
	})
}

// dayRange parses ?fecha=YYYY-MM-DD into a [start, end) day window,
// defaulting to today.
func dayRange(c *gin.Context) (time.Time, time.Time, error) {
	day := time.Now()
	if raw := c.Query("fecha"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		day = parsed
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 1), nil
}

// queryRange parses ?desde=&hasta= (YYYY-MM-DD), defaulting to today.
func queryRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 0, 1)

	if raw := c.Query("desde"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := c.Query("hasta"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}

// periodRange maps ?periodo= to a [start, end) window ending tomorrow at
// midnight: "dia" covers today, "semana" the last seven days and "mes" the
// calendar month so far. Empty defaults to "dia".
func periodRange(periodo string, now time.Time) (time.Time, time.Time, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	end := midnight.AddDate(0, 0, 1)

	switch periodo {
	case "", "dia":
		return midnight, end, nil
	case "semana":
		return midnight.AddDate(0, 0, -6), end, nil
	case "mes":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local), end, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", periodo)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "ID inválido",
		})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
