package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"newsforge/config"
	"newsforge/db"
	"newsforge/handlers"
	"newsforge/middleware"
	"newsforge/services"
	"newsforge/store"
	"newsforge/tasks"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(conn, "schema.sql"); err != nil {
		logger.Fatal("failed to apply schema", zap.Error(err))
	}
	logger.Info("database schema verified")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("invalid REDIS_URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	st := store.New(conn)
	queue := tasks.NewQueue(rdb, logger.Named("queue"))

	searchClient := services.NewSearchClient(cfg.BraveSearchAPIKey, logger.Named("search"))
	generator := services.NewGenerator(
		services.NewAnthropicClient(cfg.AnthropicAPIKey),
		services.NewOpenAIClient(cfg.OpenAIAPIKey),
		searchClient,
		cfg.Features.SearchMockFallback,
		logger.Named("generator"),
	)
	renderer := services.NewRenderer()
	mailer := services.NewMailer(cfg.SendGridAPIKey, cfg.FromEmail, logger.Named("mailer"))
	paddle := services.NewPaddleClient(
		cfg.PaddleVendorID, cfg.PaddleAPIKey, cfg.PaddleWebhookSecret,
		cfg.PaddleSandbox, cfg.PaddleWebhookMaxAge,
		logger.Named("paddle"),
	)
	billing := services.NewBillingService(st, logger.Named("billing"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := tasks.NewWorker(queue, cfg.WorkerConcurrency, logger.Named("worker"))
	tasks.NewTasks(st, generator, renderer, mailer, logger.Named("tasks")).Register(worker)
	go func() {
		if err := worker.Run(ctx); err != nil {
			logger.Error("worker stopped", zap.Error(err))
		}
	}()

	if cfg.Features.SchedulerEnabled {
		scheduler := services.NewScheduler(st, queue, cfg.ScheduleInterval, logger.Named("scheduler"))
		go scheduler.Run(ctx)
	}

	logger.Info("features",
		zap.Bool("billing", cfg.Features.BillingEnabled),
		zap.Bool("scheduler", cfg.Features.SchedulerEnabled),
		zap.Bool("search_mock_fallback", cfg.Features.SearchMockFallback),
	)

	api := handlers.NewAPI(st, queue, generator, renderer, mailer, paddle, billing, cfg, logger.Named("api"))

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/health", api.Health)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/auth/signup", api.Signup)
		apiGroup.POST("/auth/login", api.Login)
		apiGroup.POST("/auth/logout", api.Logout)

		apiGroup.POST("/generate", api.Generate)
		apiGroup.GET("/task/:id", api.TaskStatus)

		if cfg.Features.BillingEnabled {
			apiGroup.POST("/payment/webhook", api.PaymentWebhook)
		}

		authed := apiGroup.Group("")
		authed.Use(middleware.AuthRequired([]byte(cfg.JWTSecret)))
		{
			authed.GET("/auth/user", api.Me)

			authed.POST("/send", api.SendEmail)
			authed.POST("/admin/synthesize", api.Synthesize)

			authed.POST("/newsletters", api.CreateNewsletter)
			authed.GET("/newsletters", api.ListNewsletters)
			authed.GET("/newsletters/:id", api.GetNewsletter)
			authed.DELETE("/newsletters/:id", api.DeleteNewsletter)
			authed.GET("/newsletters/:id/issues", api.ListNewsletterIssues)
			authed.POST("/newsletters/:id/send", api.SendNewsletter)

			authed.GET("/stats/overview", api.StatsOverview)

			if cfg.Features.BillingEnabled {
				authed.POST("/payment/checkout", api.CreateCheckout)
				authed.POST("/payment/subscription/:id/cancel", api.CancelSubscription)
			}
		}
	}

	api.RegisterStatic(r)

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
