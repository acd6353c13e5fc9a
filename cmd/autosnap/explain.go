package main

import (
	"github.com/spf13/cobra"
	"github.com/younsl/autosnap/pkg/formatter"
	"github.com/younsl/autosnap/pkg/policy"
)

func newExplainCmd(root *rootFlags) *cobra.Command {
	var (
		from  string
		count int
	)

	cmd := &cobra.Command{
		Use:   "explain <tag-value>",
		Short: "Show how a policy tag value is understood and when it creates snapshots",
		Example: `  autosnap explain "Enable=Yes;Type=Monthly;When=1,15,31;Retention=30"
  autosnap explain "Enable=Yes;Type=Weekly;When=Tue" --from 2024-01-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			day, err := today(from)
			if err != nil {
				return err
			}

			// CopyTo is checked against the configured regions, or the
			// built-in region list when none are configured.
			codec := policy.NewCodec(cfg.TagKey, cfg.DefaultRetentionDays, policy.NewRegionSet(cfg.Regions))
			p := codec.Parse(args[0])
			formatter.PrintPolicy(cmd.OutOrStdout(), p, policy.NextRuns(p, day, count))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date to evaluate (YYYY-MM-DD, default: today)")
	cmd.Flags().IntVarP(&count, "count", "n", 7, "Number of upcoming snapshot dates to show")
	return cmd
}
