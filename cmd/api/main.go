package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/teqwa/teqwa-core/internal/api/http"
	"github.com/teqwa/teqwa-core/internal/api/http/handlers"
	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/config"
	"github.com/teqwa/teqwa-core/internal/events"
	"github.com/teqwa/teqwa-core/internal/mail"
	"github.com/teqwa/teqwa-core/internal/observability"
	"github.com/teqwa/teqwa-core/internal/payment/chapa"
	"github.com/teqwa/teqwa-core/internal/persistence"
	"github.com/teqwa/teqwa-core/internal/ratelimit"
	"github.com/teqwa/teqwa-core/internal/repository"
	"github.com/teqwa/teqwa-core/internal/service"
	"github.com/teqwa/teqwa-core/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	transactionRepo := repository.NewTransactionRepository(pool)
	payableRepo := repository.NewPayableRepository(pool)
	transactor := persistence.NewTransactor(pool)

	dispatcher := events.NewInMemoryDispatcher()
	loc := cfg.App.Location()

	var sender mail.Sender = mail.NewLogSender(logger)
	if cfg.Mail.SendgridAPIKey != "" {
		sender = mail.NewSendgridSender(cfg.Mail.SendgridAPIKey, cfg.App.Name, cfg.Mail.FromName, cfg.Mail.FromAddress)
	} else {
		logger.Warn("SENDGRID_API_KEY not provided; emails will only be logged")
	}
	notificationService := service.NewNotificationService(dispatcher, sender, logger, cfg.Notification, cfg.App.Name)
	worker.StartNotificationWorker(notificationService, logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		StaffRepo:  staffRepo,
		Transactor: transactor,
		Logger:     logger,
	})
	if err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Error("failed to bootstrap admin account", zap.Error(err))
	}

	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:       taskRepo,
		AttendanceRepo: attendanceRepo,
		StaffRepo:      staffRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Location:       loc,
	})
	attendanceService := service.NewAttendanceService(service.AttendanceDependencies{
		AttendanceRepo: attendanceRepo,
		StaffRepo:      staffRepo,
		Logger:         logger,
		Location:       loc,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		AttendanceRepo: attendanceRepo,
		TaskRepo:       taskRepo,
		StaffRepo:      staffRepo,
		Location:       loc,
	})

	if !cfg.Payment.Configured() {
		logger.Warn("CHAPA_SECRET_KEY not provided; payment initialization disabled")
	}
	paymentService := service.NewPaymentService(cfg.Payment, service.PaymentDependencies{
		TransactionRepo: transactionRepo,
		PayableRepo:     payableRepo,
		Transactor:      transactor,
		Gateway:         chapa.NewClient(cfg.Payment),
		Dispatcher:      dispatcher,
		Logger:          logger,
	})

	metrics := observability.NewMetrics()
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo)
	verifyLimiter := ratelimit.NewRedisLimiter(redis.Client, "verify", cfg.Payment.VerifyRatePerMin, time.Minute)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Staff:          handlers.NewStaffHandler(authService),
		Tasks:          handlers.NewTasksHandler(taskService, loc),
		Attendance:     handlers.NewAttendanceHandler(attendanceService, loc),
		Reports:        handlers.NewReportsHandler(reportService),
		Payments:       handlers.NewPaymentsHandler(paymentService),
		AuthMiddleware: authMiddleware.Handle,
		VerifyLimiter:  verifyLimiter,
		Logger:         logger,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
