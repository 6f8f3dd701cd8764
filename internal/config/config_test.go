package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestInitConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	InitConfig()

	assert.Equal(t, "./tropeshelf.db", viper.GetString("catalog.dbfile"))
	assert.Equal(t, "./covers/", CoverDir)
	assert.Equal(t, 20, EnrichBatchSize)
	assert.Equal(t, 500*time.Millisecond, EnrichDelay)
	assert.Equal(t, "gpt-4o-mini", BlurbModel)
	assert.False(t, ForceRefresh)
}

func TestInitConfigOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("enrich.delay", "2s")
	viper.Set("enrich.batchsize", 5)
	viper.Set("GoogleBooksAPIKey", "key-123")

	InitConfig()

	assert.Equal(t, 2*time.Second, EnrichDelay)
	assert.Equal(t, 5, EnrichBatchSize)
	assert.Equal(t, "key-123", GoogleBooksAPIKey)
}

func TestInitConfigBadDelayFallsBack(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("enrich.delay", "not-a-duration")
	InitConfig()

	assert.Equal(t, 500*time.Millisecond, EnrichDelay)
}

func TestSetForceRefresh(t *testing.T) {
	orig := ForceRefresh
	t.Cleanup(func() { ForceRefresh = orig })

	SetForceRefresh(true)
	assert.True(t, ForceRefresh)
}
