package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/teqwa/teqwa-core/internal/api/http/handlers"
	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Tasks          *handlers.TasksHandler
	Attendance     *handlers.AttendanceHandler
	Reports        *handlers.ReportsHandler
	Payments       *handlers.PaymentsHandler
	AuthMiddleware fiber.Handler
	VerifyLimiter  ratelimit.Limiter
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	adminOnly := auth.RequireRole(domain.UserRoleAdmin)

	staff := api.Group("/staff", cfg.AuthMiddleware, auth.RequireStaffOrAdmin())
	staff.Get("/tasks", cfg.Tasks.List)
	staff.Post("/tasks", adminOnly, cfg.Tasks.Create)
	staff.Get("/tasks/:id", cfg.Tasks.Get)
	staff.Post("/tasks/:id/status", cfg.Tasks.UpdateStatus)

	staff.Post("/attendance/clock-in", cfg.Attendance.ClockIn)
	staff.Post("/attendance/clock-out", cfg.Attendance.ClockOut)
	staff.Post("/attendance/toggle", adminOnly, cfg.Attendance.Toggle)
	staff.Get("/attendance", adminOnly, cfg.Attendance.List)
	staff.Get("/working-hours", cfg.Attendance.WorkingHours)
	staff.Get("/reports", cfg.Reports.Staff)

	staff.Get("/members", adminOnly, cfg.Staff.List)
	staff.Post("/members", adminOnly, cfg.Staff.Create)

	payments := api.Group("/payments")
	payments.Post("/initialize", cfg.AuthMiddleware, cfg.Payments.Initialize)
	// Routing is not strict, so the trailing-slash callback URL lands here too.
	payments.Post("/webhook", cfg.Payments.Webhook)
	payments.Get("/verify/:tx_ref", RateLimit(cfg.VerifyLimiter, cfg.Logger), cfg.Payments.Verify)
	payments.Get("/transactions/:tx_ref", cfg.AuthMiddleware, cfg.Payments.Transaction)

	api.Get("/admin/metrics", cfg.AuthMiddleware, adminOnly, cfg.Health.Metrics)
}
