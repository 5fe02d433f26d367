package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send outreach for the latest lead batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateSend(); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// The batch lives in process memory, so a standalone send has to
		// produce it first.
		if _, err := env.Pipeline.RunDefault(ctx); err != nil {
			return err
		}

		res, err := env.Pipeline.SendAll(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("outreach finished",
			zap.Int("sent", res.Sent),
			zap.Int("failed", res.Failed),
			zap.Int("no_email", res.NoEmail),
			zap.Int("skipped", res.Skipped),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
