package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"memberbase/internal/middleware"
	"memberbase/internal/models"
	"memberbase/internal/services"
)

// The auth cookie lives as long as the token it carries.
const authCookieMaxAge = int(365 * 24 * time.Hour / time.Second)

type AuthHandler struct {
	userService services.UserService
	authService services.AuthService
	// Secure attribute on the auth cookie; off outside production so the
	// SPA dev server can talk to us over plain http.
	secureCookies bool
}

func NewAuthHandler(userService services.UserService, authService services.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		userService:   userService,
		authService:   authService,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AuthCookieName, token, authCookieMaxAge, "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearAuthCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", h.secureCookies, true)
}

// @Summary      Register a new account
// @Description  Creates an unverified user, emails a verification link and signs the caller in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        registration  body      models.RegisterRequest  true  "Registration data"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.userService.Register(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email already registered"})
			return
		}
		// internal detail stays in the log
		log.Printf("[auth][register] email=%q failed: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred during registration"})
		return
	}

	token, err := h.authService.IssueToken(user.ID)
	if err != nil {
		log.Printf("[auth][register] sign token failed for userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An error occurred during registration"})
		return
	}
	h.setAuthCookie(c, token)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Please check your email to verify your account.",
		"user":    user.Public(),
	})
}

// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(req.Email)

	user, err := h.userService.GetUserByEmail(email)
	if err != nil {
		log.Printf("[auth][login] lookup email=%q failed: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	// one answer for unknown email and wrong password
	if user == nil || strings.TrimSpace(user.PasswordHash) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	ok, err := h.authService.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		log.Printf("[auth][login] digest check failed for userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.authService.IssueToken(user.ID)
	if err != nil {
		log.Printf("[auth][login] sign token failed for userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	h.setAuthCookie(c, token)

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user.Public(),
	})
}

// @Summary  Log out
// @Tags     Auth
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
