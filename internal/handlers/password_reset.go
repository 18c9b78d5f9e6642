package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/stockroom/internal/config"
	"github.com/example/stockroom/internal/models"
	"github.com/example/stockroom/internal/services"
	"github.com/example/stockroom/internal/utils"
)

// PasswordResetHandler manages forgot-password endpoints.
type PasswordResetHandler struct {
	db   *gorm.DB
	cfg  *config.Config
	mail *services.MailService
}

// NewPasswordResetHandler constructs a PasswordResetHandler.
func NewPasswordResetHandler(db *gorm.DB, cfg *config.Config, mail *services.MailService) *PasswordResetHandler {
	return &PasswordResetHandler{db: db, cfg: cfg, mail: mail}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a reset code to a registered email.
func (h *PasswordResetHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "email is required")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return newAPIError(fiber.StatusNotFound, KindNotFound, "email not registered")
		}
		return err
	}

	code, err := issueOneTimeCode(h.db, req.Email)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your OTP is: %s. Valid for 5 minutes.", code)
	if err := h.mail.Send(req.Email, "Reset Your Password - OTP", body); err != nil {
		return newAPIError(fiber.StatusInternalServerError, KindServerError, "failed to send OTP")
	}

	return c.JSON(fiber.Map{"success": true, "message": "OTP sent to your email"})
}

type verifyForgetOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyForgetOTP validates the reset code and opens a time-boxed reset
// grant for the email.
func (h *PasswordResetHandler) VerifyForgetOTP(c *fiber.Ctx) error {
	var req verifyForgetOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.OTP == "" {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "email and otp are required")
	}

	if err := consumeOneTimeCode(h.db, req.Email, strings.TrimSpace(req.OTP)); err != nil {
		return err
	}

	grant := models.ResetGrant{
		Email:     req.Email,
		ExpiresAt: time.Now().Add(resetGrantTTL),
	}

	// One grant per email: replace any leftover from an earlier attempt.
	if err := h.db.Where("email = ?", req.Email).Delete(&models.ResetGrant{}).Error; err != nil {
		return err
	}
	if err := h.db.Create(&grant).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "OTP verified successfully"})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword updates the password for an email holding a live,
// unconsumed reset grant. The grant is consumed either way once it has
// been judged, so a reset can never be replayed.
func (h *PasswordResetHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.NewPassword == "" {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "email and new password are required")
	}

	if len(req.NewPassword) < 6 {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "password must be at least 6 characters")
	}

	var grant models.ResetGrant
	if err := h.db.Where("email = ?", req.Email).First(&grant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return newAPIError(fiber.StatusForbidden, KindUnauthorized, "unauthorized reset request")
		}
		return err
	}

	if grant.ExpiresAt.Before(time.Now()) {
		if err := h.db.Delete(&grant).Error; err != nil {
			return err
		}
		return newAPIError(fiber.StatusBadRequest, KindExpired, "reset request expired")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return newAPIError(fiber.StatusNotFound, KindNotFound, "user not found")
		}
		return err
	}

	passwordHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return newAPIError(fiber.StatusInternalServerError, KindServerError, "failed to hash password")
	}

	if err := h.db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("password_hash", passwordHash).Error; err != nil {
		return err
	}

	if err := h.db.Delete(&grant).Error; err != nil {
		return err
	}

	h.mail.SendAsync(req.Email, "Password Changed",
		"Hi, your password was changed successfully.")

	return c.JSON(fiber.Map{"success": true, "message": "password updated successfully"})
}
