package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trailhunt/internal/config"
	"trailhunt/internal/db"
	"trailhunt/internal/discovery"
	"trailhunt/internal/feed"
	"trailhunt/internal/scoring"
)

func Run() error {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	log.Println("[DB] Database connected and migrations applied")

	srv := &Server{
		DB:        database,
		Discovery: &discovery.Service{DB: database, DefaultRadiusM: cfg.TreasureRadiusM},
		Scoring:   &scoring.Service{DB: database},
		Feed:      feed.NewHub(),
		UploadDir: cfg.UploadDir,
	}

	mux := buildMux(srv)

	addr := "0.0.0.0:" + cfg.Port
	fmt.Printf("Server listening on http://localhost:%s\n", cfg.Port)
	return http.ListenAndServe(addr, mux)
}

func buildMux(srv *Server) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", srv.handleCreateUser)
	mux.HandleFunc("GET /users/{id}", srv.handleGetUser)
	mux.HandleFunc("GET /users/{id}/discoveries", srv.handleUserDiscoveries)

	mux.HandleFunc("GET /trails/{id}", srv.handleGetTrail)
	mux.HandleFunc("POST /trails/{id}/track", srv.handleUploadTrack)

	mux.HandleFunc("POST /scan/poi", srv.handleScanPOI)
	mux.HandleFunc("POST /scan/item", srv.handleScanItem)
	mux.HandleFunc("POST /treasures/{id}/found", srv.handleTreasureFound)
	mux.HandleFunc("GET /hunts/{id}/progress", srv.handleHuntProgress)

	mux.HandleFunc("POST /quizzes/{id}/submit", srv.handleQuizSubmit)

	mux.HandleFunc("GET /feed", srv.handleFeed)
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
