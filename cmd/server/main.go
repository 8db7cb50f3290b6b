package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "github.com/simplifika/postline/configs"
	"github.com/simplifika/postline/internal/api/handlers"
	"github.com/simplifika/postline/internal/api/middleware"
	"github.com/simplifika/postline/internal/credentials"
	"github.com/simplifika/postline/internal/jobs"
	"github.com/simplifika/postline/internal/platform"
	"github.com/simplifika/postline/internal/queue"
	"github.com/simplifika/postline/internal/repository"
	"github.com/simplifika/postline/internal/scheduler"
	"github.com/simplifika/postline/internal/service"
)

const publishTimeout = 5 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return origin == cfg.FrontendURL
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	mediaRepo := repository.NewMediaItemRepository(db)
	accountRepo := repository.NewConnectedAccountRepository(db)
	logRepo := repository.NewPublicationLogRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	registry := platform.NewRegistry(
		platform.NewFacebookPublisher(),
		platform.NewInstagramPublisher(),
		platform.NewYoutubePublisher(cfg.GoogleClientID, cfg.GoogleClientSecret),
		platform.NewTiktokPublisher(),
	)

	storageService := service.NewStorageService(cfg)
	notificationService := service.NewNotificationService(cfg)
	usageService := service.NewUsageService(userRepo, subscriptionRepo, usageRepo)
	postService := service.NewPostService(db, postRepo, mediaRepo, usageService, storageService)
	mediaService := service.NewMediaService(storageService)
	authService := service.NewAuthService(cfg, userRepo, rdb, notificationService)
	platformService := service.NewPlatformService(cfg, accountRepo)
	subscriptionService := service.NewSubscriptionService(userRepo, subscriptionRepo, postRepo, usageService, notificationService)

	credentialManager := credentials.NewManager(accountRepo, registry, cfg.SecretKey)
	publishQueue := queue.NewQueue(asynqClient)
	worker := queue.NewWorker(postRepo, mediaRepo, accountRepo, userRepo, logRepo, registry, credentialManager, publishTimeout)
	trigger := scheduler.NewTrigger(postRepo, publishQueue)
	retentionJob := jobs.NewRetentionJob(postRepo, mediaRepo, userRepo, storageService, notificationService)

	authMiddleware := middleware.NewAuthMiddleware(cfg)

	auth := handlers.NewAuthHandler(cfg, authService)
	app.Post("/auth/request-code", auth.RequestCode)
	app.Post("/auth/verify", auth.Verify)

	platformHandler := handlers.NewPlatformHandler(cfg, platformService)
	app.Get("/auth/:platform", authMiddleware.AuthMiddleware(), platformHandler.ConnectAccount)
	app.Get("/auth/:platform/callback", platformHandler.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/clone", post.ClonePost)
	api.Post("/posts/remove", post.RemovePost)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media/upload", media.Upload)

	api.Get("/accounts", platformHandler.ListAccounts)
	api.Post("/accounts/remove", platformHandler.RemoveAccount)

	subscription := handlers.NewSubscriptionHandler(subscriptionService)
	api.Get("/subscription", subscription.GetSubscription)
	api.Post("/subscription/update", subscription.UpdateSubscription)
	api.Post("/subscription/downgrade", subscription.Downgrade)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", func() {
		if err := trigger.Tick(context.Background()); err != nil {
			log.Printf("scheduler tick failed: %v", err)
		}
	})
	c.AddFunc("0 0 2 * * *", func() {
		retentionJob.Run(context.Background())
	})
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
