package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.BaseURL)
	assert.InDelta(t, 1.0, cfg.Geocode.RequestsPerSec, 0.001)
	assert.InDelta(t, 0.6, cfg.Scorer.GeoWeight, 0.001)
	assert.InDelta(t, 0.25, cfg.Scorer.TitleWeight, 0.001)
	assert.InDelta(t, 0.5, cfg.Scorer.RefIDWeight, 0.001)
	assert.InDelta(t, 0.80, cfg.Scorer.HighThreshold, 0.001)
	assert.InDelta(t, 0.65, cfg.Scorer.WarnThreshold, 0.001)
	assert.InDelta(t, 0.95, cfg.Scorer.ArtistMatchThreshold, 0.001)
	assert.InDelta(t, 100.0, cfg.Spatial.RadiusMeters, 0.001)
	assert.Equal(t, 50, cfg.Spatial.MaxCandidates)
	assert.True(t, cfg.Artist.CreateMissing)
	assert.Equal(t, 10, cfg.Photo.TimeoutSecs)
	assert.Equal(t, "skip", cfg.Import.WarnPolicy)
	assert.True(t, cfg.Import.MergeTags)
	assert.Equal(t, 4, cfg.Import.SubmitMaxAttempts)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/atlas
log:
  level: debug
  format: console
scorer:
  high_threshold: 0.9
import:
  warn_policy: create
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.InDelta(t, 0.9, cfg.Scorer.HighThreshold, 0.001)
	assert.Equal(t, "create", cfg.Import.WarnPolicy)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.65, cfg.Scorer.WarnThreshold, 0.001)
	assert.Equal(t, 50, cfg.Spatial.MaxCandidates)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ARTIMPORT_STORE_DRIVER", "postgres")
	t.Setenv("ARTIMPORT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("ARTIMPORT_INGEST_KEY", "pk-test")
	t.Setenv("ARTIMPORT_STORE_DATABASE_URL", "postgres://localhost/atlas")
	t.Setenv("ARTIMPORT_IMPORT_REQUIRE_ARTISTS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pk-test", cfg.Ingest.Key)
	assert.Equal(t, "postgres://localhost/atlas", cfg.Store.DatabaseURL)
	assert.True(t, cfg.Import.RequireArtists)
}

func TestLoadRejectsBadScorerConfig(t *testing.T) {
	chTempDir(t)

	// Warn above high is inconsistent.
	t.Setenv("ARTIMPORT_SCORER_WARN_THRESHOLD", "0.99")

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validRun returns a Config that passes run-mode validation.
func validRun() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "corpus.db"
	cfg.Ingest.Key = "pk-test"
	cfg.Ingest.RequestsPerSec = 5
	cfg.Import.WarnPolicy = "skip"
	cfg.Import.SubmitMaxAttempts = 4
	cfg.Import.CheckpointDir = "checkpoints"
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validRun().Validate("run"))
}

func TestValidateRun_MissingFields(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.sqlite_path is required")
	assert.Contains(t, err.Error(), "ingest.key is required")
}

func TestValidateRun_BadWarnPolicy(t *testing.T) {
	cfg := validRun()
	cfg.Import.WarnPolicy = "maybe"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "warn_policy")
}

func TestValidateRun_GeocodeRate(t *testing.T) {
	cfg := validRun()
	cfg.Geocode.Enabled = true
	cfg.Geocode.RequestsPerSec = 0

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "geocode.requests_per_sec")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validRun()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("validate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/atlas"
	assert.NoError(t, cfg.Validate("validate"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validRun().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
