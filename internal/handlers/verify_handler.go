package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"memberbase/internal/services"
)

type VerifyHandler struct {
	userService services.UserService
}

func NewVerifyHandler(userService services.UserService) *VerifyHandler {
	return &VerifyHandler{userService: userService}
}

// @Summary      Confirm an email address
// @Description  Consumes the token from the emailed verification link
// @Tags         Auth
// @Produce      json
// @Param        token  query     string  true  "Verification token"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /verify-email [get]
func (h *VerifyHandler) ConfirmEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	user, err := h.userService.ConfirmEmail(token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrVerificationExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "verification link expired, please request a new one"})
		case errors.Is(err, services.ErrVerificationInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification link"})
		default:
			log.Printf("[verify][confirm] failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified",
		"user":    user.Public(),
	})
}

// @Summary      Resend the verification email
// @Description  Rotates the challenge for an unverified account; never reveals whether the address exists
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /verify-email/resend [post]
func (h *VerifyHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.ResendVerification(req.Email); err != nil {
		log.Printf("[verify][resend] email=%q failed: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resend verification email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a verification email has been sent"})
}
