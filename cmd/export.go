package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gconnect/leadgen-cli/internal/export"
	"github.com/gconnect/leadgen-cli/internal/model"
)

var exportLimit int

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored leads to the CSV and XLSX files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		stored, err := st.ListLeads(ctx, exportLimit)
		if err != nil {
			return err
		}

		leads := make([]model.Lead, 0, len(stored))
		for _, pl := range stored {
			leads = append(leads, model.Lead{
				Name:       pl.Name,
				Address:    pl.Address,
				RawWebsite: pl.Website,
				Email:      strings.ToLower(pl.Email),
				Category:   pl.Category,
				FinalScore: pl.Score,
				Tier:       pl.Tier,
				Status:     pl.Status,
			})
		}

		if err := export.WriteAll(ctx, cfg.Export.CSVPath, cfg.Export.XLSXPath, leads); err != nil {
			return err
		}

		zap.L().Info("exported stored leads", zap.Int("leads", len(leads)))
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportLimit, "limit", 1000, "maximum number of leads to export")
	rootCmd.AddCommand(exportCmd)
}
