package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mini-rodalies-3d/subway/handlers"
	"github.com/mini-rodalies-3d/subway/internal/config"
	"github.com/mini-rodalies-3d/subway/repository"
)

func main() {
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	log.Println("Database connection established")

	cached := repository.NewCachedLines(store, cfg.LineCacheSize, cfg.LineCacheTTL)
	r := handlers.NewRouter(cached, cfg.AllowedOrigins)

	// Static file serving (if configured)
	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("API server starting on :%s", cfg.Port)
	log.Println("Station endpoints:")
	log.Println("  POST   /stations")
	log.Println("  GET    /stations")
	log.Println("  DELETE /stations/{stationId}")
	log.Println("Line endpoints:")
	log.Println("  POST   /lines")
	log.Println("  GET    /lines")
	log.Println("  GET    /lines/{lineId}")
	log.Println("  PUT    /lines/{lineId}")
	log.Println("  DELETE /lines/{lineId}")
	log.Println("  GET    /lines/{lineId}/stats")
	log.Println("Section endpoints:")
	log.Println("  POST   /lines/{lineId}/sections")
	log.Println("  DELETE /lines/{lineId}/sections?stationId=")
	log.Println("Health:")
	log.Println("  GET /health (with database check)")
	log.Println("  GET /metrics")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
	log.Println("Server stopped")
}
