package cmd

import (
	"fmt"

	"github.com/arthspark/etl/pipeline"
	"github.com/arthspark/etl/utils"
	"github.com/spf13/cobra"
)

func newMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Syncs the series registry metadata without loading observations",
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

			synced, err := p.SyncMetadata(cmd.Context(), cfg.Series)
			if err != nil {
				return fmt.Errorf("synced %d of %d series: %w", synced, len(cfg.Series), err)
			}
			log.Info(fmt.Sprintf("Synced metadata for %d series", synced))
			return nil
		},
	}
}
