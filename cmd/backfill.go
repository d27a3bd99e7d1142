package cmd

import (
	"fmt"
	"strings"

	"github.com/arthspark/etl/pipeline"
	"github.com/arthspark/etl/utils"
	"github.com/spf13/cobra"
)

func newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill [series]",
		Short: "Re-pulls the full history for the given comma-separated series ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := initializeConfigAndLogger()
			if err != nil {
				return err
			}

			p, err := pipeline.NewPipeline(cfg, log, utils.RealTimeProvider{})
			if err != nil {
				return err
			}
			defer p.Close()

			ids := strings.Split(args[0], ",")
			summary := p.Backfill(cmd.Context(), cfg.Series, ids)
			logSummary(log, summary)

			if err := summary.Err(); err != nil {
				return fmt.Errorf("%d of %d series failed: %w", summary.Failed(), len(summary.Results), err)
			}
			return nil
		},
	}
}
