package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lunarhue/promptii/backend/internal/config"
	"github.com/lunarhue/promptii/backend/internal/handler"
	"github.com/lunarhue/promptii/backend/internal/service/ai"
	historyservice "github.com/lunarhue/promptii/backend/internal/service/history"
	"github.com/lunarhue/promptii/backend/internal/service/refine"
	shareservice "github.com/lunarhue/promptii/backend/internal/service/share"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	historyStore, shareGateway, closeDB := buildStores(cfg)
	defer closeDB()

	// Without model credentials the service still runs: every completion call
	// degrades to the visible failure message.
	var adapter ai.Adapter = ai.Unconfigured{}
	if cfg.AI.Enabled() {
		svc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - check the Ark environment variables")
		} else {
			adapter = svc
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, completion calls will fail visibly")
	}

	refineSvc := refine.NewService(adapter, historyStore)

	router := handler.NewRouter(handler.Deps{
		Refine:       refineSvc,
		History:      historyStore,
		Share:        shareGateway,
		ShareBaseURL: cfg.Share.BaseURL,
	})

	startServer(ctx, cfg.Server, router)
}

// buildStores selects SQLite-backed stores when a database path is
// configured, in-memory stores otherwise. Both stores share one handle.
func buildStores(cfg *config.Config) (historyservice.Store, shareservice.Gateway, func()) {
	noop := func() {}

	if cfg.Storage.Path == "" {
		log.Println("SQLITE_PATH not set, using in-memory stores")
		var gateway shareservice.Gateway
		if cfg.Share.Enabled {
			gateway = shareservice.NewMemoryGateway()
		}
		return historyservice.NewMemoryStore(), gateway, noop
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		log.Fatalf("failed to create database directory: %v", err)
	}

	db, err := sql.Open("sqlite3", cfg.Storage.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}

	historyStore, err := historyservice.NewSQLiteStore(db)
	if err != nil {
		log.Fatalf("failed to initialize history store: %v", err)
	}

	var gateway shareservice.Gateway
	if cfg.Share.Enabled {
		sqlGateway, err := shareservice.NewSQLiteGateway(db)
		if err != nil {
			log.Fatalf("failed to initialize share gateway: %v", err)
		}
		gateway = sqlGateway
	} else {
		log.Println("sharing disabled by configuration")
	}

	return historyStore, gateway, closeDB
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("promptii backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
