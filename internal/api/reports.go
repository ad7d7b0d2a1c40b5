package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// dailyReport returns the combined sale/payment feed for one day, newest
// first.
func (h *Handler) dailyReport(c *gin.Context) {
	from, to, err := dayRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Fecha inválida"})
		return
	}

	feed, err := h.reports.CombinedFeed(c.Request.Context(), from, to, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// chartReport returns the combined feed for a range, ascending, for the
// charts.
func (h *Handler) chartReport(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Rango de fechas inválido"})
		return
	}

	feed, err := h.reports.CombinedFeed(c.Request.Context(), from, to, true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// topProducts ranks products moved in a period (?periodo=dia|semana|mes).
func (h *Handler) topProducts(c *gin.Context) {
	from, to, err := periodRange(c.Query("periodo"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Período inválido"})
		return
	}

	limit := 5
	if raw := c.Query("limite"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Límite inválido"})
			return
		}
		limit = parsed
	}

	ranked, err := h.reports.TopProducts(c.Request.Context(), from, to, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

// categoryShares returns the per-category revenue percentages for a range.
func (h *Handler) categoryShares(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Rango de fechas inválido"})
		return
	}

	shares, err := h.reports.CategoryShares(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shares)
}

// dashboard returns the landing-page summary.
func (h *Handler) dashboard(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Rango de fechas inválido"})
		return
	}

	data, err := h.reports.Dashboard(c.Request.Context(), from, to, h.lowStockThreshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}
