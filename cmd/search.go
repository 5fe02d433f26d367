package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	searchAreas    string
	searchCategory string
	searchSend     bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Crawl named areas for a business category",
	Long:  "Resolves each area name, crawls it for the given category, enriches and scores the results, and writes the lead files. Pass --send to follow up with the outreach pass.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if searchAreas == "" {
			return eris.New("--areas is required")
		}
		if searchCategory == "" {
			return eris.New("--category is required")
		}
		if searchSend {
			if err := cfg.ValidateSend(); err != nil {
				return err
			}
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.RunSearch(ctx, searchAreas, searchCategory)
		if err != nil {
			return err
		}

		zap.L().Info("search run finished",
			zap.String("run_id", res.Run.ID),
			zap.String("category", searchCategory),
			zap.Int("leads", len(res.Leads)),
		)

		if !searchSend {
			return nil
		}

		sendRes, err := env.Pipeline.SendAll(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("outreach finished",
			zap.Int("sent", sendRes.Sent),
			zap.Int("failed", sendRes.Failed),
			zap.Int("no_email", sendRes.NoEmail),
		)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchAreas, "areas", "", "comma-separated area names, e.g. \"Bangalore, Mysore\"")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "business category, e.g. gym")
	searchCmd.Flags().BoolVar(&searchSend, "send", false, "send outreach after the run completes")
	rootCmd.AddCommand(searchCmd)
}
