package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/publicartatlas/artimport/internal/scorer"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Scorer  scorer.Config `yaml:"scorer" mapstructure:"scorer"`
	Spatial SpatialConfig `yaml:"spatial" mapstructure:"spatial"`
	Artist  ArtistConfig  `yaml:"artist" mapstructure:"artist"`
	Photo   PhotoConfig   `yaml:"photo" mapstructure:"photo"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the read-only corpus backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// IngestConfig holds ingestion endpoint credentials and limits.
type IngestConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// GeocodeConfig configures the reverse-geocoding lookup.
type GeocodeConfig struct {
	Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	CachePath      string  `yaml:"cache_path" mapstructure:"cache_path"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// SpatialConfig configures the duplicate-candidate prefilter.
type SpatialConfig struct {
	RadiusMeters  float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	MaxCandidates int     `yaml:"max_candidates" mapstructure:"max_candidates"`
}

// ArtistConfig configures artist resolution.
type ArtistConfig struct {
	MatchThreshold float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
	CreateMissing  bool    `yaml:"create_missing" mapstructure:"create_missing"`
}

// PhotoConfig configures photo fetching and staging.
type PhotoConfig struct {
	CacheDir    string `yaml:"cache_dir" mapstructure:"cache_dir"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ImportConfig configures the orchestrator run loop.
type ImportConfig struct {
	CheckpointDir     string `yaml:"checkpoint_dir" mapstructure:"checkpoint_dir"`
	ReportDir         string `yaml:"report_dir" mapstructure:"report_dir"`
	InterItemDelayMs  int    `yaml:"inter_item_delay_ms" mapstructure:"inter_item_delay_ms"`
	WarnPolicy        string `yaml:"warn_policy" mapstructure:"warn_policy"`
	MergeTags         bool   `yaml:"merge_tags" mapstructure:"merge_tags"`
	RequireArtists    bool   `yaml:"require_artists" mapstructure:"require_artists"`
	RequirePhotos     bool   `yaml:"require_photos" mapstructure:"require_photos"`
	SubmitMaxAttempts int    `yaml:"submit_max_attempts" mapstructure:"submit_max_attempts"`
}

// InterItemDelay returns the configured delay as a duration.
func (c ImportConfig) InterItemDelay() time.Duration {
	return time.Duration(c.InterItemDelayMs) * time.Millisecond
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ARTIMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	// Every key needs a default, even an empty one: viper's AutomaticEnv
	// only surfaces keys it already knows about to Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "corpus.db")
	v.SetDefault("ingest.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ingest.base_url", "https://api.publicartatlas.org/v1")
	v.SetDefault("ingest.requests_per_sec", 5.0)
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.cache_path", "geocode-cache.db")
	v.SetDefault("geocode.requests_per_sec", 1.0)
	v.SetDefault("scorer.geo_weight", 0.6)
	v.SetDefault("scorer.title_weight", 0.25)
	v.SetDefault("scorer.artist_weight", 0.2)
	v.SetDefault("scorer.ref_id_weight", 0.5)
	v.SetDefault("scorer.tag_weight", 0.05)
	v.SetDefault("scorer.max_distance_meters", 100.0)
	v.SetDefault("scorer.high_threshold", 0.80)
	v.SetDefault("scorer.warn_threshold", 0.65)
	v.SetDefault("scorer.artist_match_threshold", 0.95)
	v.SetDefault("spatial.radius_meters", 100.0)
	v.SetDefault("spatial.max_candidates", 50)
	v.SetDefault("artist.match_threshold", 0.95)
	v.SetDefault("artist.create_missing", true)
	v.SetDefault("photo.cache_dir", "photo-cache")
	v.SetDefault("photo.timeout_secs", 10)
	v.SetDefault("photo.max_retries", 3)
	v.SetDefault("import.checkpoint_dir", "checkpoints")
	v.SetDefault("import.report_dir", "reports")
	v.SetDefault("import.inter_item_delay_ms", 250)
	v.SetDefault("import.warn_policy", "skip")
	v.SetDefault("import.merge_tags", true)
	v.SetDefault("import.require_artists", false)
	v.SetDefault("import.require_photos", false)
	v.SetDefault("import.submit_max_attempts", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Scorer.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields a command mode needs before it runs, so missing
// credentials fail fast instead of mid-batch.
func (c *Config) Validate(mode string) error {
	var errs []string

	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	corpus := func() {
		switch c.Store.Driver {
		case "sqlite":
			check(c.Store.SQLitePath != "", "store.sqlite_path is required")
		case "postgres":
			check(c.Store.DatabaseURL != "", "store.database_url is required")
		default:
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
	}

	switch mode {
	case "run":
		corpus()
		check(c.Ingest.Key != "", "ingest.key is required")
		check(c.Ingest.RequestsPerSec > 0, "ingest.requests_per_sec must be > 0")
		check(c.Import.SubmitMaxAttempts >= 1, "import.submit_max_attempts must be >= 1")
		switch c.Import.WarnPolicy {
		case "skip", "create":
		default:
			errs = append(errs, "import.warn_policy must be skip or create")
		}
		if c.Geocode.Enabled {
			check(c.Geocode.RequestsPerSec > 0, "geocode.requests_per_sec must be > 0")
		}
	case "validate":
		corpus()
	case "sessions", "report":
		check(c.Import.CheckpointDir != "", "import.checkpoint_dir is required")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
