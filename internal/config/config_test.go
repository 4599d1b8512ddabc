package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: ":8080"
pricing:
  fallback_rate: 0.12
products:
  luckyjet:
    price_usd: 100
    file: luckyjet.zip
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"https://apilist.tronscanapi.com"}, cfg.Tron.ExplorerEndpoints)
	assert.Equal(t, "https://api.trongrid.io", cfg.Tron.NodeEndpoint)
	assert.Equal(t, 50, cfg.Tron.ScanLimit)
	assert.Equal(t, 5, cfg.Pricing.CacheTTLMinutes)
	assert.Equal(t, 30, cfg.Orders.ValidityMinutes)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "files", cfg.Files.Dir)
	assert.Equal(t, "info", cfg.Log.Level)

	p, ok := cfg.Products["luckyjet"]
	require.True(t, ok)
	assert.Equal(t, int64(100), p.PriceUSD)
	assert.Equal(t, "luckyjet.zip", p.File)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OWNER_ADDRESS", "TOwnerAddr")
	t.Setenv("EXPLORER_ENDPOINTS", "https://a.example, https://b.example")
	t.Setenv("FALLBACK_RATE", "0.2")
	t.Setenv("ORDER_VALIDITY_MINUTES", "15")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "TOwnerAddr", cfg.Tron.OwnerAddress)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Tron.ExplorerEndpoints)
	assert.Equal(t, 0.2, cfg.Pricing.FallbackRate)
	assert.Equal(t, 15, cfg.Orders.ValidityMinutes)
}

func TestLoadRejectsIncomplete(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  addr: \":8080\"\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `
server:
  addr: ":8080"
products:
  luckyjet:
    price_usd: 100
    file: luckyjet.zip
`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
