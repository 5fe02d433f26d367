package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the default-area lead pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.RunDefault(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("pipeline run finished",
			zap.String("run_id", res.Run.ID),
			zap.Int("leads", len(res.Leads)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
