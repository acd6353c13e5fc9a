package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envNames = []string{
	"AUTOSNAP_TAG_KEY", "custom_tag",
	"AUTOSNAP_DEFAULT_RETENTION_DAYS", "default_retention_days",
	"AUTOSNAP_REGIONS", "custom_aws_regions",
	"AUTOSNAP_HOME_REGION", "AUTOSNAP_CONCURRENCY", "AUTOSNAP_TIMEOUT",
	"AUTOSNAP_DRY_RUN", "AUTOSNAP_SCHEDULE", "AUTOSNAP_LOG_MODE", "AUTOSNAP_LOG_LEVEL",
	"AUTOSNAP_METRICS_NAMESPACE", "AUTOSNAP_REPORT_BUCKET", "AUTOSNAP_REPORT_PREFIX",
}

// isolate clears the environment and runs the test in an empty directory so
// a developer's .env file cannot leak in
func isolate(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		if v, ok := os.LookupEnv(name); ok {
			require.NoError(t, os.Unsetenv(name))
			t.Cleanup(func() { os.Setenv(name, v) })
		}
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "scheduler:ebs-auto-snapshot-creation", cfg.TagKey)
	assert.Equal(t, 2, cfg.DefaultRetentionDays)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "autosnap.yaml")
	content := `
tagKey: backup
defaultRetentionDays: 14
regions: [us-east-1, eu-west-1]
concurrency: 8
timeout: 10m
dryRun: true
reportBucket: my-reports
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "backup", cfg.TagKey)
	assert.Equal(t, 14, cfg.DefaultRetentionDays)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, cfg.Regions)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "my-reports", cfg.ReportBucket)
	assert.Equal(t, "0 3 * * *", cfg.Schedule, "unset fields keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)

	t.Setenv("custom_tag", "legacy:tag")
	t.Setenv("default_retention_days", "7")
	t.Setenv("custom_aws_regions", " US-EAST-1 , ap-northeast-2,")
	t.Setenv("AUTOSNAP_TIMEOUT", "90s")
	t.Setenv("AUTOSNAP_DRY_RUN", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy:tag", cfg.TagKey)
	assert.Equal(t, 7, cfg.DefaultRetentionDays)
	assert.Equal(t, []string{"us-east-1", "ap-northeast-2"}, cfg.Regions)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.True(t, cfg.DryRun)
}

func TestLoad_EnvPrecedence(t *testing.T) {
	isolate(t)

	t.Setenv("custom_tag", "legacy:tag")
	t.Setenv("AUTOSNAP_TAG_KEY", "new:tag")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "new:tag", cfg.TagKey)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)

	require.NoError(t, os.WriteFile(".env", []byte("AUTOSNAP_CONCURRENCY=12\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("AUTOSNAP_CONCURRENCY") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Concurrency)
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := map[string]string{
		"default_retention_days": "seven",
		"AUTOSNAP_CONCURRENCY":   "many",
		"AUTOSNAP_TIMEOUT":       "soon",
		"AUTOSNAP_DRY_RUN":       "perhaps",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			t.Setenv(name, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"empty tag key", func(c *Config) { c.TagKey = "" }, "TagKey"},
		{"zero retention", func(c *Config) { c.DefaultRetentionDays = 0 }, "DefaultRetentionDays"},
		{"bad region", func(c *Config) { c.Regions = []string{"us-east-1", "moon"} }, "Regions[1]"},
		{"bad home region", func(c *Config) { c.HomeRegion = "Virginia" }, "HomeRegion"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "Concurrency"},
		{"short timeout", func(c *Config) { c.Timeout = time.Millisecond }, "Timeout"},
		{"bad schedule", func(c *Config) { c.Schedule = "every day" }, "Schedule"},
		{"bad log mode", func(c *Config) { c.LogMode = "verbose" }, "LogMode"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "LogLevel"},
		{"short bucket", func(c *Config) { c.ReportBucket = "ab" }, "ReportBucket"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.field)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" A ,, b ,"))
	assert.Empty(t, SplitList(""))
}
