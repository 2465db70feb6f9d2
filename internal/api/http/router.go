package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/pharmacy-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/pharmacy-helpdesk/internal/auth"
	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	"github.com/spec-kit/pharmacy-helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Notes          *handlers.TicketNotesHandler
	AuthMiddleware *auth.Middleware
}

// AppConfig configures NewApp.
type AppConfig struct {
	Name           string
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	RequestTimeout time.Duration
	Routes         RouteConfig
}

// NewApp builds the fiber application with middlewares and routes.
func NewApp(cfg AppConfig) *fiber.App {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, cfg.Metrics, cfg.RequestTimeout)
	RegisterRoutes(app, cfg.Routes)
	return app
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	requireAuth := cfg.AuthMiddleware.Handle
	customer := auth.RequireRoles(domain.RoleCustomer)
	pharmacist := auth.RequireRoles(domain.RolePharmacist)
	anyStaffOrCustomer := auth.RequireRoles(domain.RoleCustomer, domain.RolePharmacist)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", requireAuth, auth.RequireRoles(), cfg.Auth.Logout)

	app.Get("/users/me", requireAuth, auth.RequireRoles(), cfg.Auth.Me)

	tickets := app.Group("/tickets", requireAuth)
	tickets.Get("", customer, cfg.Tickets.ListOwn)
	tickets.Get("/all", pharmacist, cfg.Tickets.ListAll)
	tickets.Get("/history", anyStaffOrCustomer, cfg.Tickets.History)
	tickets.Post("", customer, cfg.Tickets.Create)
	tickets.Put("", pharmacist, cfg.Tickets.UpdateStatus)

	notes := app.Group("/ticket-notes", requireAuth)
	notes.Get("", anyStaffOrCustomer, cfg.Notes.List)
	notes.Post("", customer, cfg.Notes.Create)
}
