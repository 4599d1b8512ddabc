package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Product struct {
	PriceUSD int64  `yaml:"price_usd"`
	File     string `yaml:"file"`
}

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		Env   string `yaml:"env"`
	} `yaml:"log"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Tron struct {
		OwnerAddress      string   `yaml:"owner_address"`
		ExplorerEndpoints []string `yaml:"explorer_endpoints"`
		NodeEndpoint      string   `yaml:"node_endpoint"`
		FeeBufferSun      int64    `yaml:"fee_buffer_sun"`
		ScanLimit         int      `yaml:"scan_limit"`
		FailoverThreshold int      `yaml:"failover_threshold"`
	} `yaml:"tron"`
	Pricing struct {
		CoinGeckoURL     string  `yaml:"coingecko_url"`
		CryptoCompareURL string  `yaml:"cryptocompare_url"`
		FallbackRate     float64 `yaml:"fallback_rate"`
		CacheTTLMinutes  int     `yaml:"cache_ttl_minutes"`
	} `yaml:"pricing"`
	Orders struct {
		ValidityMinutes int `yaml:"validity_minutes"`
		AbandonTTLHours int `yaml:"abandon_ttl_hours"`
	} `yaml:"orders"`
	Worker struct {
		IntervalSeconds int64 `yaml:"interval_seconds"`
	} `yaml:"worker"`
	Mail struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
		From string `yaml:"from"`
	} `yaml:"mail"`
	Files struct {
		Dir string `yaml:"dir"`
	} `yaml:"files"`
	Products map[string]Product `yaml:"products"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if len(cfg.Products) == 0 {
		return nil, errors.New("products is empty")
	}
	if cfg.Pricing.FallbackRate <= 0 {
		return nil, errors.New("pricing.fallback_rate must be positive")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Tron.ExplorerEndpoints) == 0 {
		cfg.Tron.ExplorerEndpoints = []string{"https://apilist.tronscanapi.com"}
	}
	if cfg.Tron.NodeEndpoint == "" {
		cfg.Tron.NodeEndpoint = "https://api.trongrid.io"
	}
	if cfg.Tron.ScanLimit <= 0 {
		cfg.Tron.ScanLimit = 50
	}
	if cfg.Pricing.CoinGeckoURL == "" {
		cfg.Pricing.CoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=tron&vs_currencies=usd"
	}
	if cfg.Pricing.CryptoCompareURL == "" {
		cfg.Pricing.CryptoCompareURL = "https://min-api.cryptocompare.com/data/price?fsym=TRX&tsyms=USD"
	}
	if cfg.Pricing.CacheTTLMinutes <= 0 {
		cfg.Pricing.CacheTTLMinutes = 5
	}
	if cfg.Orders.ValidityMinutes <= 0 {
		cfg.Orders.ValidityMinutes = 30
	}
	if cfg.Worker.IntervalSeconds <= 0 {
		cfg.Worker.IntervalSeconds = 20
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 465
	}
	if cfg.Files.Dir == "" {
		cfg.Files.Dir = "files"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("OWNER_ADDRESS"); v != "" {
		cfg.Tron.OwnerAddress = v
	}
	if v := os.Getenv("EXPLORER_ENDPOINTS"); v != "" {
		cfg.Tron.ExplorerEndpoints = splitCommaList(v)
	}
	if v := os.Getenv("NODE_ENDPOINT"); v != "" {
		cfg.Tron.NodeEndpoint = v
	}
	if v := os.Getenv("FEE_BUFFER_SUN"); v != "" {
		cfg.Tron.FeeBufferSun = atoi64Or(cfg.Tron.FeeBufferSun, v)
	}
	if v := os.Getenv("SCAN_LIMIT"); v != "" {
		cfg.Tron.ScanLimit = atoiOr(cfg.Tron.ScanLimit, v)
	}
	if v := os.Getenv("FALLBACK_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pricing.FallbackRate = f
		}
	}
	if v := os.Getenv("RATE_CACHE_TTL_MINUTES"); v != "" {
		cfg.Pricing.CacheTTLMinutes = atoiOr(cfg.Pricing.CacheTTLMinutes, v)
	}
	if v := os.Getenv("ORDER_VALIDITY_MINUTES"); v != "" {
		cfg.Orders.ValidityMinutes = atoiOr(cfg.Orders.ValidityMinutes, v)
	}
	if v := os.Getenv("ORDER_ABANDON_TTL_HOURS"); v != "" {
		cfg.Orders.AbandonTTLHours = atoiOr(cfg.Orders.AbandonTTLHours, v)
	}
	if v := os.Getenv("WORKER_INTERVAL_SECONDS"); v != "" {
		cfg.Worker.IntervalSeconds = atoi64Or(cfg.Worker.IntervalSeconds, v)
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Mail.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		cfg.Mail.Port = atoiOr(cfg.Mail.Port, v)
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Mail.User = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		cfg.Mail.Pass = v
	}
	if v := os.Getenv("MAIL_FROM"); v != "" {
		cfg.Mail.From = v
	}
	if v := os.Getenv("FILES_DIR"); v != "" {
		cfg.Files.Dir = v
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
