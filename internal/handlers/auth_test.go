package handlers_test

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/stockroom/internal/handlers"
	"github.com/example/stockroom/internal/middleware"
	"github.com/example/stockroom/internal/models"
	"github.com/example/stockroom/internal/utils"
)

func TestCheckEmail(t *testing.T) {
	app, db, _ := newTestApp(t)

	resp := request(t, app, http.MethodPost, "/users/check-email", map[string]string{"email": "new@example.com"}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	createUser(t, db, "taken@example.com", "password1")

	resp = request(t, app, http.MethodPost, "/users/check-email", map[string]string{"email": "taken@example.com"}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, handlers.KindConflict, errorKind(t, decode(t, resp)))
}

func TestSendOTP_CreatesAndOverwritesCode(t *testing.T) {
	app, db, _ := newTestApp(t)

	resp := request(t, app, http.MethodPost, "/users/send-otp", map[string]string{"email": "new@example.com"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first models.OneTimeCode
	require.NoError(t, db.Where("email = ?", "new@example.com").First(&first).Error)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), first.Code)
	assert.True(t, first.ExpiresAt.After(time.Now()))

	// A second send replaces the record instead of stacking a new one.
	resp = request(t, app, http.MethodPost, "/users/send-otp", map[string]string{"email": "new@example.com"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.OneTimeCode{}).Where("email = ?", "new@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSendOTP_AlreadyRegistered(t *testing.T) {
	app, db, _ := newTestApp(t)
	createUser(t, db, "taken@example.com", "password1")

	resp := request(t, app, http.MethodPost, "/users/send-otp", map[string]string{"email": "taken@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, handlers.KindConflict, errorKind(t, decode(t, resp)))
}

func TestVerifyOTP_RegistersUser(t *testing.T) {
	app, db, _ := newTestApp(t)

	resp := request(t, app, http.MethodPost, "/users/send-otp", map[string]string{"email": "new@example.com"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var code models.OneTimeCode
	require.NoError(t, db.Where("email = ?", "new@example.com").First(&code).Error)

	resp = request(t, app, http.MethodPost, "/users/verify-otp", map[string]string{
		"otp":      code.Code,
		"username": "newuser",
		"email":    "new@example.com",
		"password": "password1",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user models.User
	require.NoError(t, db.Where("email = ?", "new@example.com").First(&user).Error)
	assert.Equal(t, "newuser", user.Username)
	assert.True(t, utils.CheckPassword(user.PasswordHash, "password1"))

	// The code is single-use.
	err := db.Where("email = ?", "new@example.com").First(&models.OneTimeCode{}).Error
	assert.Error(t, err)
}

func TestVerifyOTP_Expired(t *testing.T) {
	app, db, _ := newTestApp(t)

	record := models.OneTimeCode{
		Email:     "new@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(&record).Error)

	resp := request(t, app, http.MethodPost, "/users/verify-otp", map[string]string{
		"otp":      "123456",
		"username": "newuser",
		"email":    "new@example.com",
		"password": "password1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, handlers.KindExpired, errorKind(t, decode(t, resp)))
}

func TestVerifyOTP_BanAfterFiveFailures(t *testing.T) {
	app, db, _ := newTestApp(t)

	record := models.OneTimeCode{
		Email:     "new@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, db.Create(&record).Error)

	body := func(otp string) map[string]string {
		return map[string]string{
			"otp":      otp,
			"username": "newuser",
			"email":    "new@example.com",
			"password": "password1",
		}
	}

	for i := 0; i < 4; i++ {
		resp := request(t, app, http.MethodPost, "/users/verify-otp", body("000000"), "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, handlers.KindIncorrectCode, errorKind(t, decode(t, resp)))
	}

	// Fifth failure trips the lockout.
	resp := request(t, app, http.MethodPost, "/users/verify-otp", body("000000"), "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, handlers.KindTooManyAttempts, errorKind(t, decode(t, resp)))

	// Even the correct code fails while the ban is live.
	resp = request(t, app, http.MethodPost, "/users/verify-otp", body("123456"), "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, handlers.KindBanned, errorKind(t, decode(t, resp)))

	// And a new code cannot be requested either.
	resp = request(t, app, http.MethodPost, "/users/send-otp", map[string]string{"email": "new@example.com"}, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// No user was created along the way.
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestLogin(t *testing.T) {
	app, db, _ := newTestApp(t)
	user := createUser(t, db, "owner@example.com", "password1")

	resp := request(t, app, http.MethodPost, "/users/login", map[string]string{
		"email":    "owner@example.com",
		"password": "password1",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decode(t, resp)
	token, _ := payload["token"].(string)
	require.NotEmpty(t, token)

	userData, ok := payload["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, user.ID.String(), userData["id"])

	var sessionCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie, "expected session cookie")
	assert.Equal(t, token, sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app, db, _ := newTestApp(t)
	createUser(t, db, "owner@example.com", "password1")

	resp := request(t, app, http.MethodPost, "/users/login", map[string]string{
		"email":    "owner@example.com",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = request(t, app, http.MethodPost, "/users/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password1",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware(t *testing.T) {
	app, db, cfg := newTestApp(t)
	user := createUser(t, db, "owner@example.com", "password1")

	// No token.
	resp := request(t, app, http.MethodGet, "/items/search?q=pen", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Garbage token.
	resp = request(t, app, http.MethodGet, "/items/search?q=pen", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Expired token.
	expired, err := utils.GenerateToken(cfg.JWTSecret, user.ID, -time.Minute)
	require.NoError(t, err)
	resp = request(t, app, http.MethodGet, "/items/search?q=pen", nil, expired)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Valid bearer token gets past the gate.
	resp = request(t, app, http.MethodGet, "/items/search?q=pen", nil, authToken(t, cfg, user.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Cookie transport works too.
	cookieReq := newCookieRequest(t, "/items/search?q=pen", authToken(t, cfg, user.ID))
	cookieResp, err := app.Test(cookieReq, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, cookieResp.StatusCode)
}

func TestLogout_ClearsCookie(t *testing.T) {
	app, db, cfg := newTestApp(t)
	user := createUser(t, db, "owner@example.com", "password1")

	resp := request(t, app, http.MethodPost, "/items/logout", nil, authToken(t, cfg, user.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessionCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			sessionCookie = cookie
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Empty(t, sessionCookie.Value)
	assert.True(t, sessionCookie.Expires.Before(time.Now()))
}
