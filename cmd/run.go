package cmd

import (
	"fmt"

	"github.com/arthspark/etl/pipeline"
	"github.com/arthspark/etl/utils"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs the incremental ETL for all configured series",
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

			summary := p.Run(cmd.Context(), cfg.Series)
			logSummary(log, summary)

			if err := summary.Err(); err != nil {
				return fmt.Errorf("%d of %d series failed: %w", summary.Failed(), len(summary.Results), err)
			}
			return nil
		},
	}
}
