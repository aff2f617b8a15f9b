package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"folio/api/internal/app"
	"folio/api/internal/blob"
	"folio/api/internal/config"
	"folio/api/internal/search"
	"folio/api/internal/session"
	"folio/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	searchService := search.NewService(nil, sqlFallback(dataStore))
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
		searchService = search.NewService(meiliClient, sqlFallback(dataStore))
	}

	var blobs *blob.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		blobs, err = blob.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("WARNING: object storage unavailable, image uploads disabled: %v", err)
			blobs = nil
		}
	}

	var expansions *session.ExpansionStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		expansions, err = session.NewExpansionStore(cfg.RedisURL, cfg.ExpansionTTL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, expansion state will not persist: %v", err)
			expansions = nil
		} else {
			defer expansions.Close()
		}
	}

	service := app.NewService(cfg, dataStore, blobs, searchService, expansions)
	if err := service.ReindexSearch(ctx); err != nil {
		log.Printf("WARNING: search reindex failed (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Folio API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// sqlFallback answers search queries from Postgres when Meilisearch is down.
func sqlFallback(s *store.PostgresStore) search.Fallback {
	return func(ctx context.Context, q search.Query) ([]search.Result, int, error) {
		pages, err := s.SearchPages(ctx, q.Text, q.Category, q.Limit)
		if err != nil {
			return nil, 0, err
		}
		results := make([]search.Result, 0, len(pages))
		for _, p := range pages {
			results = append(results, search.Result{
				ID:       p.ID,
				Title:    p.Title,
				Snippet:  p.Description,
				Category: p.Category,
			})
		}
		return results, len(results), nil
	}
}
