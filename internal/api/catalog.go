package api

import (
	"net/http"
	"time"

	"pos-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// listCategories returns every product line.
func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.store.GetCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) createCategory(c *gin.Context) {
	var category models.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}
	if category.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Nombre requerido"})
		return
	}

	if err := h.store.CreateCategory(c.Request.Context(), &category); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var category models.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}
	category.ID = id

	if err := h.store.UpdateCategory(c.Request.Context(), &category); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listSuppliers(c *gin.Context) {
	suppliers, err := h.store.GetSuppliers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

func (h *Handler) createSupplier(c *gin.Context) {
	var supplier models.Supplier
	if err := c.ShouldBindJSON(&supplier); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}
	if supplier.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Nombre requerido"})
		return
	}
	supplier.Active = true

	if err := h.store.CreateSupplier(c.Request.Context(), &supplier); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

func (h *Handler) updateSupplier(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var supplier models.Supplier
	if err := c.ShouldBindJSON(&supplier); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}
	supplier.ID = id

	if err := h.store.UpdateSupplier(c.Request.Context(), &supplier); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

// listExpenses returns expenses for a range, ?desde=&hasta=.
func (h *Handler) listExpenses(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Rango de fechas inválido"})
		return
	}

	expenses, err := h.store.GetExpensesByRange(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

func (h *Handler) createExpense(c *gin.Context) {
	var req struct {
		Date        string          `json:"fecha"`
		Amount      decimal.Decimal `json:"monto" binding:"required"`
		Description string          `json:"descripcion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Monto inválido"})
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Fecha inválida"})
			return
		}
		date = parsed
	}

	expense := &models.Expense{
		Date:        date,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if err := h.store.CreateExpense(c.Request.Context(), expense); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

// deleteExpenses removes the expenses of a day (or range).
func (h *Handler) deleteExpenses(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Rango de fechas inválido"})
		return
	}

	deleted, err := h.store.DeleteExpensesByRange(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"eliminados": deleted,
	})
}
