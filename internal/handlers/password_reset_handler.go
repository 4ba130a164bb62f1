package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"memberbase/internal/services"
)

type PasswordResetHandler struct {
	service services.PasswordResetService
}

func NewPasswordResetHandler(service services.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{service: service}
}

// @Summary      Request a password reset
// @Description  Always answers 200; existence of the address is not revealed
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /password-reset/request [post]
func (h *PasswordResetHandler) Request(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.RequestReset(req.Email); err != nil {
		log.Printf("[password-reset][request] failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process reset request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a reset email has been sent"})
}

// @Summary  Reset the password with an emailed token
// @Tags     Auth
// @Accept   json
// @Produce  json
// @Success  200  {object}  map[string]string
// @Failure  400  {object}  map[string]string
// @Router   /password-reset/confirm [post]
func (h *PasswordResetHandler) Confirm(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.ResetPassword(req.Token, req.Password); err != nil {
		if errors.Is(err, services.ErrResetTokenInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
			return
		}
		log.Printf("[password-reset][confirm] failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
