package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/notion-invoice/internal/application/service"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// ShareHandlers serves share-link management and the public shared views
type ShareHandlers struct {
	shares  service.ShareService
	baseURL string
	logger  Logger
}

// NewShareHandlers creates a new ShareHandlers instance
func NewShareHandlers(shares service.ShareService, baseURL string, logger Logger) *ShareHandlers {
	return &ShareHandlers{shares: shares, baseURL: baseURL, logger: logger}
}

// CreateShareRequest is the body of POST /api/shares
type CreateShareRequest struct {
	InvoiceID string     `json:"invoiceId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// CreateShareResponse carries the new link and its public URL
type CreateShareResponse struct {
	ShareLink *entity.InvoiceShare `json:"shareLink"`
	PublicURL string               `json:"publicUrl"`
}

// ValidateShareRequest is the body of POST /api/shares/validate
type ValidateShareRequest struct {
	Token string `json:"token"`
}

// ValidateShareResponse reports a usable share token
type ValidateShareResponse struct {
	Valid     bool       `json:"valid"`
	InvoiceID string     `json:"invoiceId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Create handles POST /api/shares
func (h *ShareHandlers) Create(c *gin.Context) {
	var req CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	claims := ClaimsFrom(c)
	share, err := h.shares.Create(c.Request.Context(), req.InvoiceID, claims.UserID, req.ExpiresAt)
	if err != nil {
		writeError(c, h.logger, "Failed to create share link", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data: CreateShareResponse{
			ShareLink: share,
			PublicURL: h.baseURL + "/share/" + share.Token,
		},
	})
}

// ListMine handles GET /api/shares/my
func (h *ShareHandlers) ListMine(c *gin.Context) {
	shares, err := h.shares.ListMine(c.Request.Context(), ClaimsFrom(c).UserID)
	if err != nil {
		writeError(c, h.logger, "Failed to list share links", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    shares,
	})
}

// Revoke handles DELETE /api/shares/:id
func (h *ShareHandlers) Revoke(c *gin.Context) {
	if err := h.shares.Revoke(c.Request.Context(), c.Param("id"), ClaimsFrom(c).UserID); err != nil {
		writeError(c, h.logger, "Failed to revoke share link", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// Validate handles POST /api/shares/validate
func (h *ShareHandlers) Validate(c *gin.Context) {
	var req ValidateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	share, err := h.shares.Validate(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, h.logger, "Share token rejected", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ValidateShareResponse{
			Valid:     true,
			InvoiceID: share.InvoiceID,
			ExpiresAt: share.ExpiresAt,
		},
	})
}

// SharedInvoices handles GET /api/shares/:token/invoices
func (h *ShareHandlers) SharedInvoices(c *gin.Context) {
	invoices, err := h.shares.SharedInvoices(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "Failed to load shared invoices", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    invoices,
	})
}

// SharedInvoice handles GET /api/shares/:token/invoices/:invoiceId
func (h *ShareHandlers) SharedInvoice(c *gin.Context) {
	invoice, err := h.shares.SharedInvoice(c.Request.Context(), c.Param("id"), c.Param("invoiceId"))
	if err != nil {
		writeError(c, h.logger, "Failed to load shared invoice", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    invoice,
	})
}
