package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv        string
	LogLevel      string
	HTTPAddr      string
	MetricsAddr   string
	StorageDriver string // mysql|memory
	MySQLDSN      string
	RedisAddr     string // empty disables the cache
	RedisDB       int
	RedisPass     string
	CacheTTL      time.Duration
	Workers       int
	SourcesFile   string
	SourceRPS     int
	SeedOnStart   bool

	HostawayBase      string
	HostawayKey       string
	HostawayAccountID string
	PlacesBase        string
	PlacesKey         string
}

// Load reads an optional .env file, then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		LogLevel:      env("LOG_LEVEL", "info"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ""),
		StorageDriver: env("STORAGE_DRIVER", "mysql"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		Workers:       atoi("INGEST_WORKERS", 4),
		SourcesFile:   env("SOURCES_FILE", "configs/sources.yaml"),
		SourceRPS:     atoi("SOURCE_RPS", 5),
		SeedOnStart:   env("SEED_ON_START", "true") == "true",

		HostawayBase:      os.Getenv("HOSTAWAY_BASE_URL"),
		HostawayKey:       os.Getenv("HOSTAWAY_API_KEY"),
		HostawayAccountID: os.Getenv("HOSTAWAY_ACCOUNT_ID"),
		PlacesBase:        env("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
		PlacesKey:         os.Getenv("PLACES_API_KEY"),
	}
	if c.HostawayBase != "" && c.HostawayKey == "" {
		log.Warn().Msg("HOSTAWAY_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Sources describes what each source adapter pulls.
type Sources struct {
	Hostaway HostawaySource `yaml:"hostaway"`
	Places   []PlaceSource  `yaml:"places"`
}

type HostawaySource struct {
	ListingIDs []string `yaml:"listingIds"`
	Limit      int      `yaml:"limit"`
}

type PlaceSource struct {
	PlaceID      string `yaml:"placeId"`
	PropertyID   string `yaml:"propertyId"`
	PropertyName string `yaml:"propertyName"`
}

// LoadSources reads the YAML source list. A missing file yields an empty
// configuration.
func LoadSources(path string) (Sources, error) {
	var s Sources
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read sources file: %w", err)
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	for i, p := range s.Places {
		if p.PlaceID == "" {
			return s, fmt.Errorf("sources file %s: places[%d].placeId is required", path, i)
		}
	}
	return s, nil
}
