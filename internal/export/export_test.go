package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/gconnect/leadgen-cli/internal/model"
)

func sampleLeads() []model.Lead {
	return []model.Lead{
		{
			Name:       "Stone Arch Architects",
			Email:      "hello@stonearch.in",
			RawWebsite: "https://stonearch.in",
			Category:   "architect",
			Address:    "MG Road, Bengaluru",
			FinalScore: 30,
			Tier:       model.TierHot,
			Status:     model.StatusPending,
		},
		{
			Name:     "Corner Cafe",
			Category: "cafe",
			Address:  "Bengaluru",
			Tier:     model.TierWarm,
			Status:   model.StatusNoEmail,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, WriteCSV(path, sampleLeads()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, columns, rows[0])
	assert.Equal(t, "Stone Arch Architects", rows[1][0])
	assert.Equal(t, "30", rows[1][5])
	assert.Equal(t, "HOT_LEAD", rows[1][6])
	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "NO_EMAIL", rows[2][7])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, WriteXLSX(path, sampleLeads()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	sheet, ok := f.Sheet[sheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "name", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "hello@stonearch.in", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "WARM_LEAD", sheet.Rows[2].Cells[6].String())
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	xlsxPath := filepath.Join(dir, "out.xlsx")

	require.NoError(t, WriteAll(context.Background(), csvPath, xlsxPath, sampleLeads()))

	assert.FileExists(t, csvPath)
	assert.FileExists(t, xlsxPath)
}

func TestWriteAllBadPath(t *testing.T) {
	dir := t.TempDir()
	err := WriteAll(context.Background(),
		filepath.Join(dir, "missing", "out.csv"),
		filepath.Join(dir, "out.xlsx"),
		sampleLeads())
	assert.Error(t, err)
}

func TestWriteCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteCSV(path, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, columns, rows[0])
}
