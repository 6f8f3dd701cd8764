package cmd

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/ekarhu/tropeshelf/cmd/importer"
	"github.com/ekarhu/tropeshelf/cmd/serve"
	"github.com/ekarhu/tropeshelf/internal/config"
)

var (
	runServe  = serve.Run
	runImport = importer.Run
)

// CLI represents the complete command structure for the tropeshelf application
type CLI struct {
	// Global flags
	Force bool `help:"Overwrite fields that already have values during enrichment"`

	// Catalog flags
	CatalogDB string `help:"Path to catalog SQLite database file" default:"./tropeshelf.db"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`

	Serve        ServeCmd        `cmd:"" help:"Run the HTTP API server"`
	Import       ImportCmd       `cmd:"" help:"Import books from a CSV export"`
	Enrich       EnrichCmd       `cmd:"" help:"Run a batch enrichment pass over the catalog"`
	Recategorize RecategorizeCmd `cmd:"" help:"Assign missing moods and tropes from summary keywords"`
}

// ServeCmd represents the serve command
type ServeCmd struct {
	Addr string `help:"Listen address for the HTTP server" default:":8080"`
}

// ImportCmd represents the import command
type ImportCmd struct {
	Input          string `short:"f" help:"Path to book CSV file" required:""`
	Enrich         bool   `help:"Run enrichment on imported books" default:"true"`
	Interactive    bool   `help:"Pick among multiple catalog matches interactively" default:"false"`
	DownloadCovers bool   `help:"Download cover images for imported books" default:"true"`
}

// EnrichCmd represents the enrich command
type EnrichCmd struct {
	Limit  int  `help:"Maximum records per pass (0 = configured batch size)"`
	Offset int  `help:"Records to skip before the pass starts"`
	All    bool `help:"Keep running passes until the catalog is exhausted" default:"false"`
}

// RecategorizeCmd represents the recategorize command
type RecategorizeCmd struct {
	Limit int    `help:"Maximum books to scan (0 = no limit)"`
	Rules string `help:"Path to a YAML rules file (empty = built-in rules)"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging()
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("tropeshelf"),
		kong.Description("A romance book catalog with metadata enrichment and recommendations."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	err := ctx.Run()
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	// Enable environment variable support
	viper.AutomaticEnv()
	// Bind specific environment variables to config keys
	if err := viper.BindEnv("GoogleBooksAPIKey", "GOOGLE_BOOKS_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}
	if err := viper.BindEnv("BlurbAPIKey", "BLURB_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	// Initialize global config
	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	config.SetForceRefresh(cli.Force)

	viper.Set("catalog.dbfile", cli.CatalogDB)

	// Update cache config
	viper.Set("cache.dbfile", cli.CacheDBFile)
	viper.Set("cache.ttl", cli.CacheTTL)
}

// Run methods for each command

func (s *ServeCmd) Run() error {
	return runServe(serve.Options{
		Addr:      s.Addr,
		CatalogDB: viper.GetString("catalog.dbfile"),
	})
}

func (i *ImportCmd) Run() error {
	return runImport(importer.Options{
		Input:          i.Input,
		CatalogDB:      viper.GetString("catalog.dbfile"),
		Enrich:         i.Enrich,
		Interactive:    i.Interactive,
		DownloadCovers: i.DownloadCovers,
	})
}

func (e *EnrichCmd) Run() error {
	limit := e.Limit
	if limit <= 0 {
		limit = config.EnrichBatchSize
	}
	return runEnrichment(limit, e.Offset, e.All)
}

func (r *RecategorizeCmd) Run() error {
	return runRecategorization(r.Limit, r.Rules)
}

func initLogging() {
	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: slog.LevelInfo,
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
