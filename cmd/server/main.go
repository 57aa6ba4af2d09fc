package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/PaaDream1999/inspect-drive/internal/auth"
	"github.com/PaaDream1999/inspect-drive/internal/config"
	"github.com/PaaDream1999/inspect-drive/internal/handler"
	"github.com/PaaDream1999/inspect-drive/internal/kms"
	"github.com/PaaDream1999/inspect-drive/internal/middleware"
	"github.com/PaaDream1999/inspect-drive/internal/repository/postgres"
	"github.com/PaaDream1999/inspect-drive/internal/service"
	"github.com/PaaDream1999/inspect-drive/internal/storage"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"upload_root", cfg.UploadRoot,
	)

	// JWT verifier backed by the identity provider's JWKS endpoint
	jwtVerifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Database
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("database connected and migrated")

	// Repositories
	fileRepo := postgres.NewFileRepository(pool)
	shareRepo := postgres.NewShareRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Infrastructure
	blobStore := storage.NewFSStore(cfg.UploadRoot)
	kmsClient := kms.NewHTTPClient(cfg.KMSURL, cfg.KMSTimeout, logger)

	// Services
	cipher := service.NewCipherPipeline(kmsClient, logger)
	namespaceSvc := service.NewNamespaceManager(fileRepo, shareRepo, txManager, blobStore, cipher, logger)
	fileSvc := service.NewFileManager(fileRepo, shareRepo, txManager, blobStore, cipher, logger)
	shareSvc := service.NewShareRegistry(shareRepo, fileRepo, txManager, blobStore, cipher, cfg.BaseURL, logger)

	// Handlers
	fileHandler := handler.NewFileHandler(fileSvc, namespaceSvc, logger)
	shareHandler := handler.NewShareHandler(shareSvc, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", fileHandler.HealthCheck)

	// File routes
	mux.HandleFunc("POST /api/files/upload", fileHandler.Upload)
	mux.HandleFunc("POST /api/files/upload-secret", fileHandler.UploadSecret)
	mux.HandleFunc("GET /api/files/list", fileHandler.List)
	mux.HandleFunc("POST /api/files/move", fileHandler.Move)
	mux.HandleFunc("DELETE /api/files/delete/{fileId}", fileHandler.Delete)
	mux.HandleFunc("DELETE /api/files/delete-folder", fileHandler.DeleteFolder)
	mux.HandleFunc("GET /api/files/download/{fileId}", fileHandler.Download)
	mux.HandleFunc("GET /api/files/preview/{fileId}", fileHandler.Preview)
	mux.HandleFunc("POST /api/files/confirm-download/{fileId}", fileHandler.ConfirmDownload)

	// Share routes
	mux.HandleFunc("GET /api/files/share", shareHandler.List)
	mux.HandleFunc("POST /api/files/share", shareHandler.Create)
	mux.HandleFunc("GET /api/files/share/{id}", shareHandler.Get)
	mux.HandleFunc("DELETE /api/files/share/{id}", shareHandler.Delete)
	mux.HandleFunc("PATCH /api/files/share/pin/{id}", shareHandler.SetPin)
	mux.HandleFunc("GET /api/files/download-folder/{shareId}", shareHandler.DownloadFolder)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.Auth(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
