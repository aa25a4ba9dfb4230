/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the punch engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Resolve the local time zone
  3. Initialize SQLite store
  4. Create API handler and push dispatcher
  5. Start the background job scheduler
  6. Start server with graceful shutdown

CONFIGURATION:
  Flags override environment variables. Environment variables may come
  from a .env file in the working directory.

  -port / PORT              HTTP server port (default: 8080)
  -db / DB_PATH             SQLite database path (default: punch.db)
                            Use ":memory:" for in-memory database
  -tz / TIMEZONE            IANA zone for all local-time math
                            (default: America/Sao_Paulo)
  -webhook / PUSH_WEBHOOK_URL
                            Push delivery webhook. When empty,
                            notifications are logged instead of sent.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Stop the job scheduler and wait for in-flight runs
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/punch.db"

  # Run against a push webhook
  ./server -webhook="https://push.example.com/multicast"

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background jobs
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fieldops/punch-engine/api"
	"github.com/fieldops/punch-engine/notify"
	"github.com/fieldops/punch-engine/store/sqlite"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	// Flags (defaults come from the environment)
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "punch.db"), "SQLite database path")
	tzName := flag.String("tz", envStr("TIMEZONE", "America/Sao_Paulo"), "IANA time zone")
	webhook := flag.String("webhook", envStr("PUSH_WEBHOOK_URL", ""), "Push delivery webhook URL")
	flag.Parse()

	loc, err := time.LoadLocation(*tzName)
	if err != nil {
		log.Fatalf("Invalid time zone %q: %v", *tzName, err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath, loc)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Push dispatcher
	var dispatcher notify.Dispatcher
	if *webhook != "" {
		dispatcher = notify.NewHTTPDispatcher(*webhook)
		log.Printf("Push notifications via webhook: %s", *webhook)
	} else {
		dispatcher = notify.LogDispatcher{}
		log.Println("No webhook configured, notifications are logged only")
	}

	// Initialize handler and background jobs
	handler := api.NewHandler(store, dispatcher, loc)
	scheduler := api.NewJobScheduler(handler)
	scheduler.Start()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		log.Printf("Ignoring invalid %s=%q", key, v)
		return fallback
	}
	return n
}
