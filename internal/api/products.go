package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	Code          string           `json:"codigo" binding:"required"`
	Name          string           `json:"nombre"`
	Quantity      int              `json:"cantidad"`
	SellPrice     *decimal.Decimal `json:"precio"`
	PurchasePrice *decimal.Decimal `json:"precioCompra"`
	CategoryID    *int64           `json:"lineaId"`
}

// listProducts returns the catalog, one product by ?codigo= or a batch by
// ?codigos=a,b.
func (h *Handler) listProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if code := c.Query("codigo"); code != "" {
		product, err := h.store.GetProductByCode(ctx, code)
		if err != nil {
			respondError(c, err)
			return
		}
		if product == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": fmt.Sprintf("Producto %s no encontrado", code),
			})
			return
		}
		c.JSON(http.StatusOK, product)
		return
	}

	if codes := c.Query("codigos"); codes != "" {
		products, err := h.store.GetProductsByCodes(ctx, strings.Split(codes, ","))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
		return
	}

	products, err := h.store.GetProducts(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// receiveProduct adds stock for a code, creating the product when new.
func (h *Handler) receiveProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}

	product, created, err := h.inventory.Receive(c.Request.Context(), &service.ReceiveRequest{
		Code:          req.Code,
		Name:          req.Name,
		Quantity:      req.Quantity,
		SellPrice:     req.SellPrice,
		PurchasePrice: req.PurchasePrice,
		CategoryID:    req.CategoryID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success":  true,
		"producto": product,
		"creado":   created,
	})
}

// updateProduct edits product fields. Accepts multipart form data so the
// image can be replaced in the same request; the previous file is removed.
func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	product, err := h.store.GetProductByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	if v := c.PostForm("nombre"); v != "" {
		product.Name = v
	}
	if v := c.PostForm("codigo"); v != "" {
		product.Code = v
	}
	if v := c.PostForm("precio"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Precio inválido"})
			return
		}
		product.SellPrice = decimal.NullDecimal{Decimal: price, Valid: true}
	}
	if v := c.PostForm("precioCompra"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Precio de compra inválido"})
			return
		}
		product.PurchasePrice = decimal.NullDecimal{Decimal: price, Valid: true}
	}
	if v := c.PostForm("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil || stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Stock inválido"})
			return
		}
		product.Stock = stock
	}
	if v := c.PostForm("lineaId"); v != "" {
		categoryID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Línea inválida"})
			return
		}
		product.CategoryID = &categoryID
	}

	if file, err := c.FormFile("imagen"); err == nil {
		fileName := fmt.Sprintf("%d_%d%s", id, time.Now().UnixMilli(), filepath.Ext(file.Filename))
		if err := c.SaveUploadedFile(file, filepath.Join(h.uploadsDir, fileName)); err != nil {
			respondError(c, fmt.Errorf("failed to save image: %w", err))
			return
		}
		if product.ImageRef != "" {
			// Best effort; a leaked old image is not worth failing the update.
			_ = os.Remove(filepath.Join(h.uploadsDir, filepath.Base(product.ImageRef)))
		}
		product.ImageRef = fileName
	}

	if err := h.inventory.UpdateProduct(ctx, product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"producto": product,
	})
}

// deleteProduct removes a product and its image file.
func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	product, err := h.store.GetProductByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.inventory.DeleteProduct(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	if product.ImageRef != "" {
		_ = os.Remove(filepath.Join(h.uploadsDir, filepath.Base(product.ImageRef)))
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// lowStockProducts lists products at or under the threshold.
func (h *Handler) lowStockProducts(c *gin.Context) {
	threshold := h.lowStockThreshold
	if raw := c.Query("limite"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Límite inválido"})
			return
		}
		threshold = parsed
	}

	products, err := h.inventory.LowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// suggestSellPrice derives a sell price from a purchase price and the
// category's markup, ?precioCompra=&lineaId=.
func (h *Handler) suggestSellPrice(c *gin.Context) {
	purchase, err := decimal.NewFromString(c.Query("precioCompra"))
	if err != nil || purchase.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Precio de compra inválido"})
		return
	}
	categoryID, err := strconv.ParseInt(c.Query("lineaId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Línea inválida"})
		return
	}

	price, err := h.inventory.SuggestSellPrice(c.Request.Context(), purchase, categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"precio":  price,
	})
}

// repriceCategory applies a percentage change to every sell price in a
// category.
func (h *Handler) repriceCategory(c *gin.Context) {
	var req struct {
		CategoryID int64           `json:"lineaId" binding:"required"`
		Percent    decimal.Decimal `json:"porcentaje"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Cuerpo de petición inválido",
			"details": err.Error(),
		})
		return
	}

	modified, err := h.inventory.ApplyPercentChange(c.Request.Context(), req.CategoryID, req.Percent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"modificados": modified,
	})
}
