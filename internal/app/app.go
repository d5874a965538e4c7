package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "unistay/docs"
	"unistay/internal/config"
	"unistay/internal/handlers"
	"unistay/internal/pdf"
	"unistay/internal/repositories"
	"unistay/internal/routes"
	"unistay/internal/services"
	"unistay/internal/utils"
)

func Run() {
	cfg, err := config.LoadConfig(config.DefaultPath)
	if err != nil {
		utils.Logger.WithError(err).Fatal("load config")
	}
	utils.InitLogger(cfg.AppName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		utils.Logger.WithError(err).Fatal("open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			utils.Logger.WithError(err).Warn("close database")
		}
	}()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		utils.Logger.WithError(err).Fatal("ping database")
	}
	if cfg.Database.AutoMigrate {
		if err := Migrate(ctx, db); err != nil {
			utils.Logger.WithError(err).Fatal("migrate database")
		}
	}

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	postRepo := repositories.NewPostRepository(db)
	interestRepo := repositories.NewInterestRequestRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)

	// === Notifications ===
	dispatcher, err := newDispatcher(cfg)
	if err != nil {
		utils.Logger.WithError(err).Fatal("notification channels")
	}
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	// === Services ===
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	verifier := services.NewGoogleIdentityVerifier(cfg.Auth.GoogleClientID)
	userService := services.NewUserService(userRepo, authService, verifier, dispatcher)
	resetService := services.NewPasswordResetService(userRepo, resetRepo, authService, dispatcher, cfg.FrontendBaseURL)
	postService := services.NewPostService(postRepo)
	interestService := services.NewInterestRequestService(interestRepo, postRepo, userRepo, paymentRepo, dispatcher)
	paymentService := services.NewPaymentService(paymentRepo, interestRepo)
	sheetService := services.NewAppointmentSheetService(interestRepo, postRepo, userRepo, pdf.NewSheetGenerator())

	// === Cron ===
	scheduler, err := newScheduler(cfg.CleanupSchedule, resetService)
	if err != nil {
		utils.Logger.WithError(err).Fatal("schedule jobs")
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// === Gin ===
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		authService,
		handlers.NewHealthHandler(db),
		handlers.NewAuthHandler(userService),
		handlers.NewPasswordResetHandler(resetService),
		handlers.NewPostHandler(postService),
		handlers.NewInterestHandler(interestService, sheetService),
		handlers.NewPaymentHandler(paymentService),
	)

	co := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           co.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// === Run ===
	go func() {
		utils.Logger.Infof("Starting %s on %s", cfg.AppName, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.WithError(err).Error("http server")
			stop()
		}
	}()

	<-ctx.Done()
	utils.Logger.Info("Shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.WithError(err).Warn("http shutdown")
	}
}

// newDispatcher builds the notification pipeline: email always, Telegram when
// a bot token is configured.
func newDispatcher(cfg *config.Config) (*services.Dispatcher, error) {
	sender, err := services.NewEmailSender(cfg.Email)
	if err != nil {
		return nil, err
	}
	channels := []services.Channel{&services.EmailChannel{Sender: sender}}

	if cfg.Telegram.BotToken != "" {
		tg, err := services.NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			// staff feed is optional
			utils.Logger.WithError(err).Warn("[notify] telegram disabled")
		} else {
			channels = append(channels, tg)
		}
	}

	return services.NewDispatcher(services.DispatcherOptions{
		Workers:        cfg.Notify.Workers,
		QueueSize:      cfg.Notify.QueueSize,
		SendTimeout:    cfg.Notify.SendTimeout,
		MaxAttempts:    cfg.Notify.MaxAttempts,
		InitialBackoff: cfg.Notify.InitialBackoff,
	}, channels...), nil
}
