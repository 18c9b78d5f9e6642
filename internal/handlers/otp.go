package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/stockroom/internal/models"
)

const (
	otpTTL         = 5 * time.Minute
	otpMaxAttempts = 5
	otpBanDuration = 30 * 24 * time.Hour
	resetGrantTTL  = 15 * time.Minute
)

// issueOneTimeCode generates a fresh code for the email, overwriting any
// previous record so only one code per email is ever live. A live ban
// blocks reissue; otherwise the attempt counter and ban are reset.
func issueOneTimeCode(db *gorm.DB, email string) (string, error) {
	now := time.Now()

	var existing models.OneTimeCode
	err := db.Where("email = ?", email).First(&existing).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return "", err
	}
	if err == nil && existing.Banned(now) {
		return "", newAPIError(fiber.StatusForbidden, KindBanned, "too many failed attempts, try again later")
	}

	code, genErr := generateVerificationCode()
	if genErr != nil {
		return "", genErr
	}

	if err == gorm.ErrRecordNotFound {
		record := models.OneTimeCode{
			Email:     email,
			Code:      code,
			ExpiresAt: now.Add(otpTTL),
		}
		if err := db.Create(&record).Error; err != nil {
			return "", err
		}
		return code, nil
	}

	existing.Code = code
	existing.ExpiresAt = now.Add(otpTTL)
	existing.FailedAttempts = 0
	existing.BannedUntil = nil
	if err := db.Save(&existing).Error; err != nil {
		return "", err
	}

	return code, nil
}

// consumeOneTimeCode validates the submitted code for the email and
// deletes the record on a match, so a code verifies at most once. Lookups
// are keyed strictly by email; the code value is only ever compared.
// Mismatches bump the attempt counter and the fifth one triggers a
// lockout that outlasts even a correct code.
func consumeOneTimeCode(db *gorm.DB, email, code string) error {
	now := time.Now()

	var record models.OneTimeCode
	if err := db.Where("email = ?", email).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return newAPIError(fiber.StatusBadRequest, KindNotFound, "verification code not found")
		}
		return err
	}

	if record.Banned(now) {
		return newAPIError(fiber.StatusForbidden, KindBanned, "temporarily banned, try again later")
	}

	if record.ExpiresAt.Before(now) {
		return newAPIError(fiber.StatusBadRequest, KindExpired, "verification code expired")
	}

	if record.Code != code {
		record.FailedAttempts++
		if record.FailedAttempts >= otpMaxAttempts {
			banned := now.Add(otpBanDuration)
			record.BannedUntil = &banned
			if err := db.Save(&record).Error; err != nil {
				return err
			}
			return newAPIError(fiber.StatusForbidden, KindTooManyAttempts, "too many failed attempts")
		}
		if err := db.Save(&record).Error; err != nil {
			return err
		}
		return newAPIError(fiber.StatusBadRequest, KindIncorrectCode, "incorrect verification code")
	}

	return db.Delete(&record).Error
}

func generateVerificationCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
