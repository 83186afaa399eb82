package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"booktracker/internal/cache"
	"booktracker/internal/config"
	"booktracker/internal/server"
	"booktracker/internal/storage"
	"booktracker/internal/storage/sqlite"
	"booktracker/internal/storage/stubs"
)

// App represents the application
type App struct {
	config *config.Config
	log    *zap.Logger
	db     storage.Storage
	shell  *cache.Manager
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{config: cfg, log: log}

	log.Info("starting booktracker")

	if err := app.initStorage(); err != nil {
		return nil, err
	}
	if err := app.initShellCache(); err != nil {
		return nil, err
	}
	app.initHTTPServer()

	return app, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initStorage opens the store, running schema migrations if required
func (a *App) initStorage() error {
	if a.config.UseMockDB {
		a.log.Info("using in-memory mock store")
		a.db = stubs.NewMockStore()
		return nil
	}

	a.log.Info("opening database", zap.String("path", a.config.DBPath))
	store, err := sqlite.Open(a.config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.db = store
	return nil
}

// initShellCache constructs the offline cache for the static shell
func (a *App) initShellCache() error {
	store, err := cache.NewStore(a.config.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to create cache store: %w", err)
	}

	manager, err := cache.NewManager(store, a.config.ShellOriginURL, a.config.ShellVersion, nil, "", a.log)
	if err != nil {
		return fmt.Errorf("failed to create cache manager: %w", err)
	}
	a.shell = manager
	return nil
}

// initHTTPServer wires the API, the cache control channel and the
// cache-first shell handler
func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	api := server.New(a.db, a.log)
	api.RegisterRoutes(mux)

	// Control channel for the hosting page
	mux.HandleFunc("POST /sw/message", func(w http.ResponseWriter, r *http.Request) {
		var msg cache.ControlMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "invalid message", http.StatusBadRequest)
			return
		}
		if err := a.shell.Control(r.Context(), msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Clients poll this to detect that a new version is available
	mux.HandleFunc("GET /sw/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"version": a.shell.Version()})
	})

	// Everything else is the static shell, served cache-first
	mux.Handle("/", a.shell)

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	// Install and activate the shell cache before taking traffic. A failed
	// install aborts startup; the next start retries it.
	ctx := context.Background()
	if err := a.shell.Install(ctx); err != nil {
		return fmt.Errorf("shell cache install failed: %w", err)
	}
	if err := a.shell.Activate(ctx); err != nil {
		return fmt.Errorf("shell cache activate failed: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		a.log.Info("shutting down")
	case err := <-errChan:
		a.log.Error("http server failed", zap.Error(err))
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if err := a.db.Close(); err != nil {
		a.log.Error("error closing database", zap.Error(err))
		return err
	}

	a.log.Info("shutdown complete")
	return nil
}
