package api

import (
	"net/http"
	"time"

	"pos-service/internal/receipt"
	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// createSale records a sale (or a debt-settlement bookkeeping sale).
func (h *Handler) createSale(c *gin.Context) {
	var req service.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}

	sale, err := h.sales.RecordSale(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"factura": sale.ReceiptRef,
		"ventaId": sale.ID,
		"total":   sale.Total,
	})
}

// listSales returns sales for one day, ?fecha=YYYY-MM-DD.
func (h *Handler) listSales(c *gin.Context) {
	from, to, err := dayRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Fecha inválida"})
		return
	}

	sales, err := h.sales.ListSales(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

// listDebtors returns every customer with their reserved debt items.
func (h *Handler) listDebtors(c *gin.Context) {
	debtors, err := h.debts.ListDebtors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, debtors)
}

// assignDebt registers a new customer with a cart on their tab. A national
// ID already on file gets a conflict; existing customers take debt via PUT.
func (h *Handler) assignDebt(c *gin.Context) {
	var req service.AssignDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}

	customer, err := h.debts.AssignDebt(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"cliente": customer,
	})
}

// addDebtToCustomer appends debt to an existing customer by ID.
func (h *Handler) addDebtToCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.AssignDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.debts.AddDebt(c.Request.Context(), id, req.Items, req.Total)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cliente": updated,
	})
}

// recordPayment settles part or all of a customer's balance.
func (h *Handler) recordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}

	payment, err := h.debts.RecordPayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"success": true,
		"pago":    payment,
	}
	if payment.SaleID == nil {
		// The payment stands even when its bookkeeping sale could not be
		// recorded; the caller is told the revenue detail is missing.
		resp["advertencia"] = "El pago se registró pero la venta contable no pudo generarse"
	}
	c.JSON(http.StatusCreated, resp)
}

// listPayments returns payments for a range, newest first.
func (h *Handler) listPayments(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Rango de fechas inválido"})
		return
	}

	payments, err := h.debts.ListPayments(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// renderPaymentReceipt renders a payment ticket synchronously. The register
// uses this to reprint a receipt on demand.
func (h *Handler) renderPaymentReceipt(c *gin.Context) {
	var req struct {
		CustomerName  string          `json:"clienteNombre"`
		NationalID    string          `json:"dni"`
		PaymentMethod string          `json:"formaPago"`
		BalanceBefore decimal.Decimal `json:"deudaPrevia"`
		Amount        decimal.Decimal `json:"montoPagado"`
		BalanceAfter  decimal.Decimal `json:"deudaRestante"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}

	fileName, err := h.renderer.RenderPayment(receipt.PaymentTicket{
		CustomerName:  req.CustomerName,
		NationalID:    req.NationalID,
		PaymentMethod: req.PaymentMethod,
		BalanceBefore: req.BalanceBefore,
		Amount:        req.Amount,
		BalanceAfter:  req.BalanceAfter,
		When:          time.Now(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"factura": fileName,
	})
}
