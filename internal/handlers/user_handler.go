package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"memberbase/internal/services"
)

type UserHandler struct {
	service services.UserService
}

func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// @Summary   Current user
// @Tags      Users
// @Produce   json
// @Success   200  {object}  models.PublicUser
// @Failure   401  {object}  map[string]string
// @Security  CookieAuth
// @Router    /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	user, err := h.service.GetUserByID(userID)
	if err != nil || user == nil {
		log.Printf("[users][me] lookup userID=%d failed: %v", userID, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user.Public())
}
