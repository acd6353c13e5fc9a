package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/younsl/autosnap/internal/logger"
	"github.com/younsl/autosnap/pkg/policy"
	"gopkg.in/yaml.v3"
)

// Config holds everything the host supplies to a run. It is loaded and
// validated once at startup; see Load for the order of sources.
type Config struct {
	// TagKey is the volume tag holding the policy, and the snapshot tag
	// holding the expiration date
	TagKey string `yaml:"tagKey" validate:"required,max=127"`

	DefaultRetentionDays int `yaml:"defaultRetentionDays" validate:"min=1,max=3650"`

	// Regions restricts the run to these regions. Empty means every region
	// enabled for the account.
	Regions []string `yaml:"regions" validate:"dive,awsregion"`

	// HomeRegion is used for DescribeRegions, CloudWatch and S3. Empty
	// means resolve from the environment or instance metadata.
	HomeRegion string `yaml:"homeRegion" validate:"omitempty,awsregion"`

	Concurrency int           `yaml:"concurrency" validate:"min=1,max=64"`
	Timeout     time.Duration `yaml:"timeout" validate:"min=1s"`
	DryRun      bool          `yaml:"dryRun"`

	// Schedule is the cron expression used by the serve command
	Schedule string `yaml:"schedule" validate:"cron"`

	LogMode  string `yaml:"logMode" validate:"oneof=production development"`
	LogLevel string `yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`

	// MetricsNamespace enables CloudWatch run metrics when set
	MetricsNamespace string `yaml:"metricsNamespace" validate:"omitempty,max=255"`

	// ReportBucket enables uploading the JSON run report to S3 when set
	ReportBucket string `yaml:"reportBucket" validate:"omitempty,min=3,max=63"`
	ReportPrefix string `yaml:"reportPrefix"`
}

// Default returns the configuration used when no source overrides a field
func Default() Config {
	return Config{
		TagKey:               policy.DefaultTagKey,
		DefaultRetentionDays: policy.DefaultRetentionDays,
		Concurrency:          4,
		Timeout:              5 * time.Minute,
		Schedule:             "0 3 * * *",
		LogMode:              logger.ModeProduction,
		ReportPrefix:         "autosnap",
	}
}

// Load builds the configuration from, in increasing order of precedence:
// defaults, the YAML file at path (optional), a .env file in the working
// directory (optional) and the process environment. Command line flags are
// applied on top by the caller before Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshalling yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// lookupEnv returns the first non-empty variable among names
func lookupEnv(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// applyEnv overlays environment variables. The lowercase names are accepted
// for existing Lambda deployments.
func applyEnv(cfg *Config) error {
	if v, ok := lookupEnv("AUTOSNAP_TAG_KEY", "custom_tag"); ok {
		cfg.TagKey = v
	}
	if v, ok := lookupEnv("AUTOSNAP_DEFAULT_RETENTION_DAYS", "default_retention_days"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid default retention days %q: %w", v, err)
		}
		cfg.DefaultRetentionDays = n
	}
	if v, ok := lookupEnv("AUTOSNAP_REGIONS", "custom_aws_regions"); ok {
		cfg.Regions = SplitList(v)
	}
	if v, ok := lookupEnv("AUTOSNAP_HOME_REGION"); ok {
		cfg.HomeRegion = strings.ToLower(v)
	}
	if v, ok := lookupEnv("AUTOSNAP_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid concurrency %q: %w", v, err)
		}
		cfg.Concurrency = n
	}
	if v, ok := lookupEnv("AUTOSNAP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", v, err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookupEnv("AUTOSNAP_DRY_RUN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid dry run flag %q: %w", v, err)
		}
		cfg.DryRun = b
	}
	if v, ok := lookupEnv("AUTOSNAP_SCHEDULE"); ok {
		cfg.Schedule = v
	}
	if v, ok := lookupEnv("AUTOSNAP_LOG_MODE"); ok {
		cfg.LogMode = v
	}
	if v, ok := lookupEnv("AUTOSNAP_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookupEnv("AUTOSNAP_METRICS_NAMESPACE"); ok {
		cfg.MetricsNamespace = v
	}
	if v, ok := lookupEnv("AUTOSNAP_REPORT_BUCKET"); ok {
		cfg.ReportBucket = v
	}
	if v, ok := lookupEnv("AUTOSNAP_REPORT_PREFIX"); ok {
		cfg.ReportPrefix = v
	}
	return nil
}

// SplitList splits a comma separated list, trimming and lowercasing items
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
