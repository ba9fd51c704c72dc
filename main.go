package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oliversimiyu/movie-downloader/config"
	"github.com/oliversimiyu/movie-downloader/database"
	"github.com/oliversimiyu/movie-downloader/handlers"
	"github.com/oliversimiyu/movie-downloader/logger"
	"github.com/oliversimiyu/movie-downloader/middleware"
	"github.com/oliversimiyu/movie-downloader/services"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Environment, cfg.Debug)

	slog.Info("Initializing movie downloader components...")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if err := database.SeedAdminUser(db); err != nil {
		log.Fatal("Failed to seed admin user:", err)
	}

	sessions := services.NewSessionManager(cfg)
	users := services.NewUserStore(db)
	catalog := services.NewCatalogClient(cfg, nil)
	fetcher := services.NewFetcher(cfg)
	jobs := services.NewJobTracker(db)

	if err := fetcher.EnsureBackend(context.Background()); err != nil {
		slog.Warn("Failed to prepare extraction backend, downloads will fail until it is available", "error", err)
	}

	queue := services.NewDownloadQueue(fetcher, jobs, cfg.DownloadWorkers)
	queue.Start(context.Background())

	auth := middleware.NewAuth(sessions, users)
	authHandlers := handlers.NewAuthHandlers(users, sessions)
	movieHandlers := handlers.NewMovieHandlers(catalog)
	downloadHandlers := handlers.NewDownloadHandlers(catalog, fetcher, jobs, queue, cfg.DirectJobStatus)

	r := chi.NewRouter()
	r.Use(middleware.Logging)

	// Public routes
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	r.Post("/register", authHandlers.Register)
	r.Post("/login", authHandlers.Login)
	r.Post("/logout", authHandlers.Logout)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/search_movies", movieHandlers.SearchMovies)
		r.Get("/movie/{id}", movieHandlers.MovieDetails)
		r.Post("/download", downloadHandlers.Download)
		r.Post("/download_movie/{id}", downloadHandlers.DownloadMovie)
		r.Get("/download_status", downloadHandlers.LatestStatus)
		r.Get("/download_status/{id}", downloadHandlers.DownloadStatus)
		r.Get("/downloads/history", downloadHandlers.History)
	})

	addr := ":" + cfg.ServerPort
	slog.Info("Movie downloader is starting", "addr", addr, "environment", cfg.Environment, "debug", cfg.Debug)

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: Server failed to start: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("Shutting down movie downloader")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	// The server is no longer accepting requests, so no new tasks arrive;
	// drain what the workers already picked up before exiting.
	queue.Stop()
}
