// Package serve boots the HTTP API server.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/config"
	"github.com/ekarhu/tropeshelf/internal/enrichment"
	"github.com/ekarhu/tropeshelf/internal/recommend"
	"github.com/ekarhu/tropeshelf/internal/server"
	"github.com/ekarhu/tropeshelf/internal/taxonomy"
)

// Options configures the server bootstrap.
type Options struct {
	Addr      string
	CatalogDB string
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM, then
// shuts down gracefully.
func Run(opts Options) error {
	store, err := catalog.Open(opts.CatalogDB)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer func() { _ = store.Close() }()

	openLibrary := enrichment.NewOpenLibrarySource()
	googleBooks := enrichment.NewGoogleBooksSource()
	orchestrator := enrichment.NewOrchestrator(store, openLibrary, googleBooks, config.EnrichDelay)

	blurbs := recommend.NewBlurbClient(config.BlurbEndpoint, config.BlurbAPIKey, config.BlurbModel)
	sessions := recommend.NewMemorySessionCache()
	assembler := recommend.NewAssembler(store, blurbs, openLibrary, sessions)

	var rules *taxonomy.RuleSet
	if path := viper.GetString("taxonomy.rulesfile"); path != "" {
		rules, err = taxonomy.LoadRules(path)
		if err != nil {
			return err
		}
	}
	recat := taxonomy.NewRecategorizer(store, rules)

	srv := server.New(store, assembler, sessions, orchestrator, recat)

	httpSrv := &http.Server{
		Addr:              opts.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", opts.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}
