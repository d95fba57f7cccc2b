package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/sieapi/gateway/internal/api/handler"
	"github.com/sieapi/gateway/internal/api/middleware"
	"github.com/sieapi/gateway/internal/core/ports"
	infrahttp "github.com/sieapi/gateway/internal/infrastructure/http"
	"github.com/sieapi/gateway/internal/infrastructure/http/handlers"
)

// Deps are the services the router dispatches to. Probes are pinged by
// /health/ready and may be empty.
type Deps struct {
	Auth      ports.AuthService
	Users     ports.UserService
	Instances ports.InstanceService
	Probes    map[string]handlers.Pinger
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(middleware.Metrics())

	// --- Operational routes (no auth required) ---
	infrahttp.RegisterProbes(e, d.Probes)

	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Users)
	instanceHandler := handler.NewInstanceHandler(d.Instances)
	requireAuth := middleware.Auth(d.Auth)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.GET("/confirm/:token", authHandler.Confirm)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password/:token", authHandler.ResetPassword)
	auth.GET("/me", authHandler.Me, requireAuth)
	auth.PUT("/update-profile", authHandler.UpdateProfile, requireAuth)

	// --- Admin user management ---
	users := auth.Group("/users", requireAuth, middleware.AdminOnly())
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Instances (ownership enforced by the service) ---
	instances := e.Group("/whatsapp/instances", requireAuth)
	instances.GET("", instanceHandler.List)
	instances.POST("", instanceHandler.Create)
	instances.GET("/:id", instanceHandler.Get)
	instances.PUT("/:id", instanceHandler.Update)
	instances.DELETE("/:id", instanceHandler.Delete)
	instances.POST("/:id/init", instanceHandler.Init)
	instances.POST("/:id/send-message", instanceHandler.SendMessage)
	instances.POST("/:id/send-media", instanceHandler.SendMedia)
	instances.POST("/:id/mention-all", instanceHandler.MentionAll)
	instances.GET("/:id/contacts", instanceHandler.Contacts)
	instances.GET("/:id/chats", instanceHandler.Chats)
	instances.POST("/:id/block-contact", instanceHandler.BlockContact)
	instances.POST("/:id/unblock-contact", instanceHandler.UnblockContact)
	instances.POST("/:id/set-webhook", instanceHandler.SetWebhook)

	return e
}
