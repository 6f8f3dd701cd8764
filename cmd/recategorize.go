package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/taxonomy"
)

// runRecategorization applies keyword rules to books missing a mood or
// trope. An empty rules path uses the built-in rule set.
func runRecategorization(limit int, rulesPath string) error {
	store, err := catalog.Open(viper.GetString("catalog.dbfile"))
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer func() { _ = store.Close() }()

	var rules *taxonomy.RuleSet
	if rulesPath != "" {
		rules, err = taxonomy.LoadRules(rulesPath)
		if err != nil {
			return err
		}
	}

	result, err := taxonomy.NewRecategorizer(store, rules).Run(context.Background(), limit)
	if err != nil {
		return err
	}

	slog.Info("Recategorization complete", "scanned", result.Scanned, "updated", result.Updated)
	return nil
}
