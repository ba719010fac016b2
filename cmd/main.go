package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/config"
	"nimbusdrive/internal/directory"
	"nimbusdrive/internal/handler"
	"nimbusdrive/internal/notification"
	"nimbusdrive/internal/repository"
	"nimbusdrive/internal/service"
)

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Подключаемся к базе данных
	db, err := connectWithRetry(appConfig.Database.GetDSN(), 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Подключение к сервису аутентификации
	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatalf("Failed to load auth config: %v", err)
	}
	auth.InitClient(authConfig.AuthAddr)

	// Внешние коллабораторы
	directoryClient := directory.NewClient(appConfig.Sharing.DirectoryAddr)
	notifier := notification.NewDispatcher(appConfig.Sharing.NotifyWebhookURL)

	// Инициализация репозиториев
	aclRepo := repository.NewACLRepository(db)
	linkRepo := repository.NewShareLinkRepository(db)
	resourceRepo := repository.NewResourceRepository(db)

	// Инициализация сервисов
	graph := service.NewResourceGraph(resourceRepo)
	permissionService := service.NewPermissionService(
		graph,
		aclRepo,
		linkRepo,
		directoryClient,
		appConfig.Sharing.EditorsCanShare,
	)
	sharingService := service.NewSharingService(
		permissionService,
		graph,
		aclRepo,
		linkRepo,
		directoryClient,
		notifier,
	)

	// Инициализация хендлеров
	permissionHandler := handler.NewPermissionHandler(permissionService)
	shareHandler := handler.NewShareHandler(sharingService)
	linkHandler := handler.NewLinkHandler(sharingService, permissionService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Share-Token", "X-Share-Password"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		r.Get("/permissions", permissionHandler.ResolvePermission)

		r.Route("/shares", func(r chi.Router) {
			r.Post("/", shareHandler.ShareResource)
			r.Put("/role", shareHandler.ChangeRole)
			r.Delete("/", shareHandler.RemovePermission)
			r.Get("/collaborators", shareHandler.ListCollaborators)
			r.Get("/shared-with-me", shareHandler.GetSharedWithMe)
		})

		r.Route("/links", func(r chi.Router) {
			r.Post("/", linkHandler.CreateLink)
			r.Get("/", linkHandler.ListLinks)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", linkHandler.UpdateLink)
				r.Post("/rotate", linkHandler.RotateToken)
				r.Delete("/", linkHandler.RevokeLink)
			})

			r.Route("/token/{token}", func(r chi.Router) {
				r.Post("/access", linkHandler.AccessByToken)
			})
		})
	})

	// Создаем HTTP сервер
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Запускаем HTTP сервер
	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}

	log.Println("Server exited properly")
}
