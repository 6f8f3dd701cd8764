package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/config"
	"github.com/ekarhu/tropeshelf/internal/enrichment"
)

// runEnrichment executes one or more batch enrichment passes from the CLI.
// With all set, passes continue over the catalog in stable order until a
// page comes back short.
func runEnrichment(limit, offset int, all bool) error {
	store, err := catalog.Open(viper.GetString("catalog.dbfile"))
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer func() { _ = store.Close() }()

	orchestrator := enrichment.NewOrchestrator(store,
		enrichment.NewOpenLibrarySource(),
		enrichment.NewGoogleBooksSource(),
		config.EnrichDelay)

	ctx := context.Background()
	var totalProcessed, totalUpdated, totalErrors int

	for {
		result, err := orchestrator.Run(ctx, enrichment.BatchOptions{
			Limit:  limit,
			Offset: offset,
			Force:  config.ForceRefresh,
		})
		if err != nil {
			return err
		}

		totalProcessed += result.Processed
		totalUpdated += result.Updated
		totalErrors += result.Errors

		slog.Info("Enrichment pass complete",
			"processed", result.Processed,
			"updated", result.Updated,
			"skipped", result.Skipped,
			"errors", result.Errors)

		if !all || result.Exhausted {
			break
		}
		offset += result.Processed
	}

	slog.Info("Enrichment finished",
		"processed", totalProcessed,
		"updated", totalUpdated,
		"errors", totalErrors)
	return nil
}
