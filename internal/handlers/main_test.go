package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/stockroom/internal/config"
	"github.com/example/stockroom/internal/database"
	"github.com/example/stockroom/internal/handlers"
	"github.com/example/stockroom/internal/middleware"
	"github.com/example/stockroom/internal/models"
	"github.com/example/stockroom/internal/routes"
	"github.com/example/stockroom/internal/utils"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A pooled connection would see its own empty in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:    "test-secret",
		TokenExpires: time.Hour,
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	routes.Register(app, db, cfg)

	return app, db, cfg
}

func createUser(t *testing.T, db *gorm.DB, email, password string) models.User {
	t.Helper()

	hash, err := utils.HashPassword(password)
	require.NoError(t, err)

	user := models.User{
		Username:     "tester",
		Email:        email,
		PasswordHash: hash,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func authToken(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()

	token, err := utils.GenerateToken(cfg.JWTSecret, userID, cfg.TokenExpires)
	require.NoError(t, err)
	return token
}

func request(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func newCookieRequest(t *testing.T, path, token string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer resp.Body.Close()
	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func errorKind(t *testing.T, payload map[string]interface{}) string {
	t.Helper()

	errObj, ok := payload["error"].(map[string]interface{})
	require.True(t, ok, "expected error object in %v", payload)
	kind, _ := errObj["kind"].(string)
	return kind
}

func itemID(t *testing.T, payload map[string]interface{}) string {
	t.Helper()

	data, ok := payload["data"].(map[string]interface{})
	require.True(t, ok, "expected data object in %v", payload)
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}
