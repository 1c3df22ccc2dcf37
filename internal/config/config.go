// Package config loads application configuration from a YAML file and
// TRIALSCORE_-prefixed environment variables.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ybbu/NexJen-Bio/internal/errors"
)

// Config holds all runtime configuration for the server and the batch
// pipeline.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// DataConfig locates the trial snapshot and the score artifacts.
type DataConfig struct {
	Dir            string `mapstructure:"dir"`
	TrialsCSV      string `mapstructure:"trials_csv"`
	ScoresPath     string `mapstructure:"scores_path"`
	BreakdownsPath string `mapstructure:"breakdowns_path"`
	FailuresPath   string `mapstructure:"failures_path"`
}

// ServerConfig holds HTTP server tuning.
type ServerConfig struct {
	Port              string        `mapstructure:"port"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxRequestsPerMin int           `mapstructure:"max_requests_per_min"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

// ProvidersConfig holds upstream API endpoints. Overridable for tests
// and mirrored deployments.
type ProvidersConfig struct {
	ClinicalTrialsBaseURL string `mapstructure:"clinicaltrials_base_url"`
	PubMedBaseURL         string `mapstructure:"pubmed_base_url"`
	LookupsEnabled        bool   `mapstructure:"lookups_enabled"`
}

// Load reads configuration from the given file (optional) and the
// environment. Environment variables use underscores for nesting,
// e.g. TRIALSCORE_SERVER_PORT or TRIALSCORE_DATA_TRIALS_CSV.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.trials_csv", "./data/trials.csv")
	v.SetDefault("data.scores_path", "./data/quality_scores.json")
	v.SetDefault("data.breakdowns_path", "./data/detailed_breakdowns.jsonl")
	v.SetDefault("data.failures_path", "./data/failed_lookups.json")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cache_ttl", 15*time.Minute)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.max_requests_per_min", 60)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("providers.clinicaltrials_base_url", "https://clinicaltrials.gov/api/v2/studies")
	v.SetDefault("providers.pubmed_base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("providers.lookups_enabled", false)

	v.SetEnvPrefix("TRIALSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewPersistenceError(path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewValidationError("invalid configuration", err)
	}

	return &cfg, nil
}
