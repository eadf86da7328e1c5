package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/notion-invoice/internal/application/service"
	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

const msgInvoiceNotFound = "견적서를 찾을 수 없습니다."

// InvoiceHandlers serves the admin invoice CRUD endpoints
type InvoiceHandlers struct {
	invoices service.InvoiceService
	logger   Logger
}

// NewInvoiceHandlers creates a new InvoiceHandlers instance
func NewInvoiceHandlers(invoices service.InvoiceService, logger Logger) *InvoiceHandlers {
	return &InvoiceHandlers{invoices: invoices, logger: logger}
}

// ListInvoicesRequest represents query parameters for listing invoices
type ListInvoicesRequest struct {
	Status     string `form:"status"`
	ClientName string `form:"clientName"`
}

// List handles GET /api/notion/invoices
func (h *InvoiceHandlers) List(c *gin.Context) {
	var req ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c)
		return
	}

	invoices, err := h.invoices.List(c.Request.Context(), entity.InvoiceFilter{
		Status:     entity.InvoiceStatus(req.Status),
		ClientName: req.ClientName,
	})
	if err != nil {
		writeError(c, h.logger, "Failed to list invoices", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    invoices,
	})
}

// Get handles GET /api/notion/invoices/:id
func (h *InvoiceHandlers) Get(c *gin.Context) {
	invoice, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "Failed to get invoice", err)
		return
	}
	if invoice == nil {
		writeError(c, h.logger, "Invoice not found", apperr.NotFound("invoice.get", msgInvoiceNotFound))
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    invoice,
	})
}

// Create handles POST /api/notion/invoices
func (h *InvoiceHandlers) Create(c *gin.Context) {
	var draft entity.InvoiceDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c)
		return
	}

	var createdBy string
	if claims := ClaimsFrom(c); claims != nil {
		createdBy = claims.UserID
	}

	invoice, err := h.invoices.Create(c.Request.Context(), draft, createdBy)
	if err != nil {
		writeError(c, h.logger, "Failed to create invoice", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    invoice,
	})
}

// Update handles PUT /api/notion/invoices/:id
func (h *InvoiceHandlers) Update(c *gin.Context) {
	var patch entity.InvoicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c)
		return
	}

	invoice, err := h.invoices.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, h.logger, "Failed to update invoice", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    invoice,
	})
}

// Delete handles DELETE /api/notion/invoices/:id
func (h *InvoiceHandlers) Delete(c *gin.Context) {
	if err := h.invoices.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, "Failed to delete invoice", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// Export handles GET /api/notion/invoices/:id/export
func (h *InvoiceHandlers) Export(c *gin.Context) {
	file, err := h.invoices.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "Failed to export invoice", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
