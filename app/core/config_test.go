package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupConfigFromEnv(t *testing.T) {
	addr := "localhost:11111"
	os.Setenv("MINDARCH_API_SERVICE_ADDRESS", addr)

	cfg := LoadBaseConfigFromENV()

	assert.Equal(t, addr, cfg.Addr)
}

func TestConfigDefaults(t *testing.T) {
	cfg := LoadBaseConfigFromENV()

	assert.NotZero(t, cfg.Import.ChunkRunes)
	assert.NotZero(t, cfg.Import.Concurrency)
	assert.NotZero(t, cfg.Import.MaxRetries)
	assert.NoError(t, cfg.Pipeline.Validate())
}
