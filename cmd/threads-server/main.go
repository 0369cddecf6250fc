// Package main provides the threads server executable with an HTTP API over
// the message persistence engine.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coregx/threads"
	adapters "github.com/coregx/threads/adapters/relica"
	"github.com/coregx/threads/cmd/threads-server/internal/api"
	"github.com/coregx/threads/cmd/threads-server/internal/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SimpleLogger implements threads.Logger for standard logging.
type SimpleLogger struct{}

func (l *SimpleLogger) Debugf(format string, args ...interface{}) {
	log.Printf("[DEBUG] "+format, args...)
}
func (l *SimpleLogger) Infof(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}
func (l *SimpleLogger) Warnf(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}
func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}
func (l *SimpleLogger) Info(message string) {
	log.Printf("[INFO] %s", message)
}

func main() {
	log.Println("🚀 Starting Threads Server...")

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("📝 Configuration loaded:")
	log.Printf("   Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("   Database: %s (%s)", cfg.Database.Driver, cfg.Database.Database)
	log.Printf("   Hide deleted in listings: %v", cfg.Threads.HideDeleted)

	// Connect to database
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Failed to close database: %v", closeErr)
		}
	}()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	// Create logger
	logger := &SimpleLogger{}

	// Create repositories using Relica adapters
	var repos *adapters.Repositories
	if cfg.Database.Prefix != "" {
		repos = adapters.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	} else {
		repos = adapters.NewRepositories(db, cfg.Database.Driver)
	}
	log.Println("✅ Repositories initialized (Relica adapters)")

	// Create the engine
	opts := []threads.Option{
		threads.WithRepository(repos.Message),
		threads.WithLogger(logger),
	}
	if cfg.Threads.HideDeleted {
		opts = append(opts, threads.WithHiddenDeleted())
	}
	service, err := threads.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	log.Println("✅ Threads service created")

	// Create API handler
	handler := api.NewHandler(service, logger)

	// Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/messages", handler.HandleMessages)
	mux.HandleFunc("/api/v1/messages/", handler.HandleMessageByID) // Note trailing slash for :id routes
	mux.HandleFunc("/api/v1/health", handler.HandleHealth)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("🌐 HTTP server listening on %s", addr)
		log.Println("📡 API Endpoints:")
		log.Println("   POST   /api/v1/messages")
		log.Println("   POST   /api/v1/messages/:id/reply")
		log.Println("   PUT    /api/v1/messages/:id")
		log.Println("   DELETE /api/v1/messages/:id")
		log.Println("   GET    /api/v1/messages?threadId=...")
		log.Println("   GET    /api/v1/health")
		log.Println()
		log.Println("✅ Threads Server is ready!")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger threads.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
