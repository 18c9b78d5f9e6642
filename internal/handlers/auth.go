package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/stockroom/internal/config"
	"github.com/example/stockroom/internal/middleware"
	"github.com/example/stockroom/internal/models"
	"github.com/example/stockroom/internal/services"
	"github.com/example/stockroom/internal/utils"
)

// AuthHandler bundles dependencies for registration and login endpoints.
type AuthHandler struct {
	db   *gorm.DB
	cfg  *config.Config
	mail *services.MailService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, mail *services.MailService) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, mail: mail}
}

type checkEmailRequest struct {
	Email string `json:"email"`
}

// CheckEmail reports whether an email is still free to register.
func (h *AuthHandler) CheckEmail(c *fiber.Ctx) error {
	var req checkEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "email is required")
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return newAPIError(fiber.StatusConflict, KindConflict, "email already registered")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "email is available"})
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

// SendOTP issues a registration code and emails it.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "email is required")
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return newAPIError(fiber.StatusBadRequest, KindConflict, "email already registered")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	code, err := issueOneTimeCode(h.db, req.Email)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your OTP is: %s. It expires in 5 minutes.", code)
	if err := h.mail.Send(req.Email, "Your OTP for Registration", body); err != nil {
		return newAPIError(fiber.StatusInternalServerError, KindServerError, "failed to send OTP")
	}

	return c.JSON(fiber.Map{"success": true, "message": "OTP sent successfully"})
}

type verifyOTPRequest struct {
	OTP      string `json:"otp"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyOTP validates the registration code and creates the user.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.OTP == "" || req.Username == "" || req.Email == "" || req.Password == "" {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "all fields required")
	}

	if err := consumeOneTimeCode(h.db, req.Email, strings.TrimSpace(req.OTP)); err != nil {
		return err
	}

	// Recheck: the email may have been registered while the code was live.
	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return newAPIError(fiber.StatusConflict, KindConflict, "email already registered")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return newAPIError(fiber.StatusInternalServerError, KindServerError, "failed to hash password")
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	h.mail.SendAsync(req.Email, "Registration Successful",
		fmt.Sprintf("Hi %s, your registration was successful!", req.Username))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "user registered successfully",
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing user and issues a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "email and password are required")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return newAPIError(fiber.StatusUnauthorized, KindUnauthorized, "invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return newAPIError(fiber.StatusUnauthorized, KindUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return newAPIError(fiber.StatusInternalServerError, KindServerError, "failed to generate token")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Expires:  time.Now().Add(h.cfg.TokenExpires),
		HTTPOnly: true,
		SameSite: "Strict",
		Path:     "/",
	})

	h.mail.SendAsync(req.Email, "Login Successful",
		fmt.Sprintf("Hi %s, your login was successful!", user.Username))

	return c.JSON(fiber.Map{
		"success": true,
		"message": "login successful",
		"token":   token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// Logout clears the session cookie. Tokens are stateless, so other
// sessions of the same user stay valid.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Strict",
		Path:     "/",
	})

	return c.JSON(fiber.Map{"success": true, "message": "logged out successfully"})
}
