package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/younsl/autosnap/internal/config"
	"github.com/younsl/autosnap/internal/version"
	"github.com/younsl/autosnap/pkg/policy"
)

// rootFlags are the command line overrides applied on top of the loaded
// configuration
type rootFlags struct {
	configPath  string
	tagKey      string
	retention   int
	regions     []string
	homeRegion  string
	concurrency int
	dryRun      bool
	logMode     string
	logLevel    string
}

func main() {
	rootCmd := newRootCmd(&rootFlags{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(flags *rootFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "autosnap",
		Short: "Tag-driven EBS snapshot scheduler",
		Long: `autosnap creates, expires and replicates EBS snapshots according to
a policy tag on each volume, for example:

  scheduler:ebs-auto-snapshot-creation = Enable=Yes;Type=Weekly;When=Tue,Fri;Retention=7;CopyTo=us-west-2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Get().String(),
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML configuration file")
	pf.StringVar(&flags.tagKey, "tag-key", "", fmt.Sprintf("Policy tag key (default: %s)", policy.DefaultTagKey))
	pf.IntVar(&flags.retention, "default-retention", 0, fmt.Sprintf("Retention in days when a policy has none (default: %d)", policy.DefaultRetentionDays))
	pf.StringSliceVarP(&flags.regions, "regions", "r", nil, "AWS regions to process (comma separated, default: all enabled regions)")
	pf.StringVar(&flags.homeRegion, "home-region", "", "Region for account-wide calls (default: from environment or instance metadata)")
	pf.IntVar(&flags.concurrency, "concurrency", 0, "Number of regions processed in parallel")
	pf.StringVar(&flags.logMode, "log-mode", "", "Log format: production or development")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newRunCmd(flags),
		newPlanCmd(flags),
		newServeCmd(flags),
		newExplainCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig loads the configuration and applies the flags the user set
func loadConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("tag-key") {
		cfg.TagKey = flags.tagKey
	}
	if changed("default-retention") {
		cfg.DefaultRetentionDays = flags.retention
	}
	if changed("regions") {
		cfg.Regions = config.SplitList(strings.Join(flags.regions, ","))
	}
	if changed("home-region") {
		cfg.HomeRegion = strings.ToLower(flags.homeRegion)
	}
	if changed("concurrency") {
		cfg.Concurrency = flags.concurrency
	}
	if changed("dry-run") {
		cfg.DryRun = flags.dryRun
	}
	if changed("log-mode") {
		cfg.LogMode = flags.logMode
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}
