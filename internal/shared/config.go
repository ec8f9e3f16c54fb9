package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	CatalogPath string // local document; takes precedence when set
	CatalogURL  string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	SearchDebounce time.Duration
	PriceDebounce  time.Duration
	AnnounceTTL    time.Duration

	AmenityPreview  int
	ContactEmail    string
	PrefetchWorkers int
	ImageRPS        int
}

// fileConfig is the optional YAML underlay (CONFIG_FILE); env vars
// override anything set here.
type fileConfig struct {
	AppEnv            string `yaml:"app_env"`
	HTTPAddr          string `yaml:"http_addr"`
	MetricsAddr       string `yaml:"metrics_addr"`
	CatalogPath       string `yaml:"catalog_path"`
	CatalogURL        string `yaml:"catalog_url"`
	RedisAddr         string `yaml:"redis_addr"`
	RedisDB           int    `yaml:"redis_db"`
	RedisPass         string `yaml:"redis_password"`
	CacheTTLSeconds   int    `yaml:"cache_ttl_seconds"`
	SearchDebounceMS  int    `yaml:"search_debounce_ms"`
	PriceDebounceMS   int    `yaml:"price_debounce_ms"`
	AnnounceTTLMS     int    `yaml:"announce_ttl_ms"`
	AmenityPreview    int    `yaml:"amenity_preview"`
	ContactEmail      string `yaml:"contact_email"`
	PrefetchWorkers   int    `yaml:"prefetch_workers"`
	ImageRPS          int    `yaml:"image_rps"`
}

func Load() Config {
	fc := loadFile(os.Getenv("CONFIG_FILE"))

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}

	c := Config{
		AppEnv:      env("APP_ENV", or(fc.AppEnv, "prod")),
		HTTPAddr:    env("HTTP_ADDR", or(fc.HTTPAddr, ":8080")),
		MetricsAddr: env("METRICS_ADDR", fc.MetricsAddr),

		CatalogPath: env("CATALOG_PATH", or(fc.CatalogPath, "data/lodgings.json")),
		CatalogURL:  env("CATALOG_URL", fc.CatalogURL),

		RedisAddr: env("REDIS_ADDR", or(fc.RedisAddr, "localhost:6379")),
		RedisDB:   atoi("REDIS_DB", fc.RedisDB),
		RedisPass: env("REDIS_PASSWORD", fc.RedisPass),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", orInt(fc.CacheTTLSeconds, 300))) * time.Second,

		SearchDebounce: time.Duration(atoi("SEARCH_DEBOUNCE_MS", orInt(fc.SearchDebounceMS, 300))) * time.Millisecond,
		PriceDebounce:  time.Duration(atoi("PRICE_DEBOUNCE_MS", orInt(fc.PriceDebounceMS, 150))) * time.Millisecond,
		AnnounceTTL:    time.Duration(atoi("ANNOUNCE_TTL_MS", orInt(fc.AnnounceTTLMS, 2000))) * time.Millisecond,

		AmenityPreview:  atoi("AMENITY_PREVIEW", orInt(fc.AmenityPreview, 4)),
		ContactEmail:    env("CONTACT_EMAIL", or(fc.ContactEmail, "stay@lodgecatalog.example")),
		PrefetchWorkers: atoi("PREFETCH_WORKERS", orInt(fc.PrefetchWorkers, 8)),
		ImageRPS:        atoi("IMAGE_RPS", orInt(fc.ImageRPS, 10)),
	}
	return c
}

func loadFile(path string) fileConfig {
	var fc fileConfig
	if path == "" {
		return fc
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("config file unreadable, using env/defaults")
		return fc
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("config file invalid, using env/defaults")
		return fileConfig{}
	}
	return fc
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
