package config

import (
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// ForceRefresh controls whether enrichment overwrites fields that are already set
	ForceRefresh bool
	// GoogleBooksAPIKey is the API key for the Google Books API
	GoogleBooksAPIKey string
	// BlurbAPIKey is the API key for the blurb generation service
	BlurbAPIKey string
	// BlurbEndpoint is the chat-completions endpoint of the blurb generation service
	BlurbEndpoint string
	// BlurbModel is the model name sent to the blurb generation service
	BlurbModel string
	// EnrichBatchSize is the maximum number of records processed per enrichment pass
	EnrichBatchSize int
	// EnrichDelay is the pause between records during batch enrichment
	EnrichDelay time.Duration
	// CoverDir is the directory where downloaded covers are stored
	CoverDir string
)

// InitConfig initializes the global configuration from viper
func InitConfig() {
	viper.SetDefault("catalog.dbfile", "./tropeshelf.db")
	viper.SetDefault("covers.dir", "./covers/")
	viper.SetDefault("enrich.batchsize", 20)
	viper.SetDefault("enrich.delay", "500ms")
	viper.SetDefault("blurb.endpoint", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("blurb.model", "gpt-4o-mini")

	ForceRefresh = viper.GetBool("enrich.force")
	GoogleBooksAPIKey = viper.GetString("GoogleBooksAPIKey")
	BlurbAPIKey = viper.GetString("BlurbAPIKey")
	BlurbEndpoint = viper.GetString("blurb.endpoint")
	BlurbModel = viper.GetString("blurb.model")
	EnrichBatchSize = viper.GetInt("enrich.batchsize")
	CoverDir = viper.GetString("covers.dir")

	delay, err := time.ParseDuration(viper.GetString("enrich.delay"))
	if err != nil {
		delay = 500 * time.Millisecond
	}
	EnrichDelay = delay
}

// SetForceRefresh sets the ForceRefresh flag
func SetForceRefresh(force bool) {
	ForceRefresh = force
}
