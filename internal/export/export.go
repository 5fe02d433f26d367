// Package export writes scored leads to tabular output files.
package export

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gconnect/leadgen-cli/internal/model"
)

const sheetName = "Scored Leads"

var columns = []string{"name", "email", "website", "category", "address", "score", "tier", "status"}

func leadRow(lead model.Lead) []string {
	return []string{
		lead.Name,
		lead.Email,
		lead.RawWebsite,
		lead.Category,
		lead.Address,
		strconv.Itoa(lead.FinalScore),
		string(lead.Tier),
		string(lead.Status),
	}
}

// WriteCSV writes leads to a CSV file with a header row.
func WriteCSV(path string, leads []model.Lead) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, lead := range leads {
		if err := w.Write(leadRow(lead)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteXLSX writes leads to a single-sheet workbook with a header row.
func WriteXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().Value = col
	}
	for _, lead := range leads {
		row := sheet.AddRow()
		for _, val := range leadRow(lead) {
			row.AddCell().Value = val
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save xlsx")
	}
	return nil
}

// WriteAll writes both output files concurrently. A partial output file
// may remain on disk if its sibling fails; callers get the first error.
func WriteAll(ctx context.Context, csvPath, xlsxPath string, leads []model.Lead) error {
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		return WriteCSV(csvPath, leads)
	})
	g.Go(func() error {
		return WriteXLSX(xlsxPath, leads)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	zap.L().Info("export complete",
		zap.String("csv", csvPath),
		zap.String("xlsx", xlsxPath),
		zap.Int("leads", len(leads)))
	return nil
}
