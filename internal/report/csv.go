package report

import (
	"encoding/csv"

	"github.com/wonny/watchheat/internal/contracts"
)

// CSVWriter writes watch_heat_<date>.csv
type CSVWriter struct{}

func (CSVWriter) Format() string { return "csv" }

func (CSVWriter) Write(dir string, res *contracts.RunResult) (string, error) {
	f, path, err := create(dir, Filename(res, "csv"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return "", err
	}
	for i, r := range res.Records {
		if err := w.Write(textRow(i+1, r)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, f.Close()
}
