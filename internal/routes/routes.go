package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/stockroom/internal/config"
	"github.com/example/stockroom/internal/handlers"
	"github.com/example/stockroom/internal/middleware"
	"github.com/example/stockroom/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	mailService := services.NewMailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	authHandler := handlers.NewAuthHandler(db, cfg, mailService)
	resetHandler := handlers.NewPasswordResetHandler(db, cfg, mailService)
	itemHandler := handlers.NewItemHandler(db, telegramService)
	dashboardHandler := handlers.NewDashboardHandler(db)

	// Public auth routes
	users := app.Group("/users")
	users.Post("/check-email", authHandler.CheckEmail)
	users.Post("/send-otp", authHandler.SendOTP)
	users.Post("/verify-otp", authHandler.VerifyOTP)
	users.Post("/login", authHandler.Login)
	users.Post("/forgot-password", resetHandler.ForgotPassword)
	users.Post("/verify-forget-otp", resetHandler.VerifyForgetOTP)
	users.Post("/reset-password", resetHandler.ResetPassword)

	// Protected inventory routes
	items := app.Group("/items", middleware.AuthMiddleware(cfg))
	items.Post("/add-item", itemHandler.AddItem)
	items.Get("/search", itemHandler.Search)
	items.Get("/history", dashboardHandler.History)
	items.Get("/add-invesment", dashboardHandler.Investment)
	items.Post("/logout", authHandler.Logout)
	items.Put("/:id", itemHandler.UpdateItem)
	items.Put("/:id/decrease", itemHandler.DecreaseQuantity)
	items.Delete("/:id/delete", itemHandler.DeleteItem)
}
