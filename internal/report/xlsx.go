package report

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/watchheat/internal/contracts"
)

const (
	heatSheet    = "Heat"
	summarySheet = "Summary"
)

// XLSXWriter writes watch_heat_<date>.xlsx with a Heat and a Summary sheet
type XLSXWriter struct{}

func (XLSXWriter) Format() string { return "xlsx" }

func (XLSXWriter) Write(dir string, res *contracts.RunResult) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", heatSheet); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return "", err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", err
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(heatSheet, "A1", &header); err != nil {
		return "", err
	}
	if err := f.SetRowStyle(heatSheet, 1, 1, bold); err != nil {
		return "", err
	}

	for i, r := range res.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		row := values(i+1, r)
		// nil leaves the cell empty
		if err := f.SetSheetRow(heatSheet, cell, &row); err != nil {
			return "", err
		}
	}

	if err := f.SetPanes(heatSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return "", err
	}

	if err := writeSummary(f, res.Metadata, bold); err != nil {
		return "", err
	}

	path := filepath.Join(dir, Filename(res, "xlsx"))
	if err := f.SaveAs(path); err != nil {
		return "", err
	}
	return path, nil
}

func writeSummary(f *excelize.File, m contracts.RunMetadata, bold int) error {
	rows := [][]interface{}{
		{"run_id", m.RunID},
		{"as_of", m.AsOf.Format(contracts.DateLayout)},
		{"universe_size", m.UniverseSize},
		{"scored", m.Scored},
		{"hot", m.HotCount},
		{"insufficient_history", m.InsufficientHistory},
		{"missing_observations", m.MissingObservations},
		{"failures", len(m.Failures)},
		{"duration", m.Duration.String()},
		{"scoring_hash", m.ScoringHash},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	if len(m.Failures) == 0 {
		return f.SetColStyle(summarySheet, "A", bold)
	}

	start := len(rows) + 2
	header := []interface{}{"item_id", "stage", "error"}
	if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", start), &header); err != nil {
		return err
	}
	for i, fail := range m.Failures {
		row := []interface{}{fail.ItemID, string(fail.Stage), fail.Error}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", start+i+1), &row); err != nil {
			return err
		}
	}
	return f.SetColStyle(summarySheet, "A", bold)
}
