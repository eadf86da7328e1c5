package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/notion-invoice/internal/application/service"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// AuthHandlers serves the login endpoints
type AuthHandlers struct {
	auth   service.AuthService
	logger Logger
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(auth service.AuthService, logger Logger) *AuthHandlers {
	return &AuthHandlers{auth: auth, logger: logger}
}

// LoginRequest is the body of both login endpoints
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLogin handles POST /api/auth/login
func (h *AuthHandlers) AdminLogin(c *gin.Context) {
	h.login(c, entity.RoleAdmin)
}

// ClientLogin handles POST /api/auth/login-client
func (h *AuthHandlers) ClientLogin(c *gin.Context) {
	h.login(c, entity.RoleClient)
}

func (h *AuthHandlers) login(c *gin.Context, role entity.Role) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, role)
	if err != nil {
		writeError(c, h.logger, "Login failed", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so the client
// simply discards its copy.
func (h *AuthHandlers) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true})
}

// Me handles GET /api/auth/me
func (h *AuthHandlers) Me(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), bearerToken(c))
	if err != nil {
		writeError(c, h.logger, "Failed to load current user", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    user,
	})
}
