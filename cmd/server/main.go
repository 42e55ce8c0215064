package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/config"
	"github.com/yukikurage/task-tracker-api/internal/database"
	"github.com/yukikurage/task-tracker-api/internal/handlers"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"github.com/yukikurage/task-tracker-api/internal/router"
	"github.com/yukikurage/task-tracker-api/internal/services"
)

// store bundles the repositories of one backend with its health check and cleanup.
type store struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	pinger database.Pinger
	close  func()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set Gin mode
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.close()

	// Initialize AI service
	var generator services.TaskDraftGenerator
	if cfg.OpenAIAPIKey != "" {
		generator = services.NewAIService(cfg.OpenAIAPIKey)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	authService := services.NewAuthService(st.users, cfg.BcryptCost)
	taskService := services.NewTaskService(st.tasks, st.users, generator)

	engine := router.NewRouter(router.Handlers{
		Auth:     handlers.NewAuthHandler(authService, tokens),
		Tasks:    handlers.NewTaskHandler(taskService),
		Comments: handlers.NewCommentHandler(taskService),
		Health:   handlers.NewHealthHandler(st.pinger),
		Verifier: tokens,
	}, cfg.FrontendOrigin)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	stop()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}

// openStore connects the backend named by DB_DRIVER and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	if cfg.DBDriver == config.DriverMongo {
		mongoStore, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			mongoStore.Close(context.Background())
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		return &store{
			users:  repository.NewMongoUserRepository(mongoStore.Database),
			tasks:  repository.NewMongoTaskRepository(mongoStore.Database),
			pinger: mongoStore,
			close:  func() { mongoStore.Close(context.Background()) },
		}, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &store{
		users:  repository.NewUserRepository(db),
		tasks:  repository.NewTaskRepository(db),
		pinger: database.NewGormPinger(db),
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	}, nil
}
