// Package report renders ranked heat records to files. Null metrics are
// written as blank cells, never as zero.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wonny/watchheat/internal/contracts"
)

// Writer renders one run result into dir and returns the written path
type Writer interface {
	Format() string
	Write(dir string, res *contracts.RunResult) (string, error)
}

// Columns of the record table, in order
var Columns = []string{
	"rank",
	"item_id",
	"brand",
	"reference",
	"display_name",
	"as_of",
	"price",
	"listings",
	"days_on_market",
	"demand_count",
	"delta_7",
	"delta_14",
	"delta_30",
	"z90",
	"supply_delta",
	"dom_delta",
	"demand_momentum",
	"heat",
	"hot",
	"max_bid_low",
	"max_bid_high",
	"warnings",
}

// Filename returns watch_heat_<date>.<ext>
func Filename(res *contracts.RunResult, ext string) string {
	return fmt.Sprintf("watch_heat_%s.%s", res.Metadata.AsOf.Format(contracts.DateLayout), ext)
}

// WriteAll runs every writer against the same result
func WriteAll(dir string, res *contracts.RunResult, writers ...Writer) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	paths := make([]string, 0, len(writers))
	for _, w := range writers {
		p, err := w.Write(dir, res)
		if err != nil {
			return paths, fmt.Errorf("%s %s: %w", contracts.StageReport, w.Format(), err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ByFormat maps format names ("csv", "xlsx", "html") to writers
func ByFormat(formats []string) ([]Writer, error) {
	writers := make([]Writer, 0, len(formats))
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "csv":
			writers = append(writers, CSVWriter{})
		case "xlsx":
			writers = append(writers, XLSXWriter{})
		case "html":
			writers = append(writers, HTMLWriter{})
		default:
			return nil, fmt.Errorf("unknown report format %q", f)
		}
	}
	return writers, nil
}

// values returns one cell per column. Nil entries are nulls.
func values(rank int, r contracts.HeatRecord) []interface{} {
	row := []interface{}{
		rank,
		r.ItemID,
		r.Item.Brand,
		r.Item.Reference,
		r.Item.DisplayName,
		r.AsOf.Format(contracts.DateLayout),
		nil, nil, nil, nil,
		f64(r.Metrics.Delta7),
		f64(r.Metrics.Delta14),
		f64(r.Metrics.Delta30),
		f64(r.Metrics.Z90),
		i64(r.Metrics.SupplyDelta),
		f64(r.Metrics.DOMDelta),
		f64(r.Metrics.DemandMomentum),
		f64(r.Heat),
		r.Hot,
		nil, nil,
		strings.Join(r.Warnings, ";"),
	}
	if o := r.Observation; o != nil {
		row[6] = o.Price
		row[7] = i64(o.Listings)
		row[8] = f64(o.DaysOnMarket)
		row[9] = i64(o.DemandCount)
	}
	if r.MaxBidLow.Valid {
		row[19] = r.MaxBidLow.Decimal.InexactFloat64()
	}
	if r.MaxBidHigh.Valid {
		row[20] = r.MaxBidHigh.Decimal.InexactFloat64()
	}
	return row
}

// f64 and i64 unwrap nullable fields into an untyped nil or a value
func f64(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func i64(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// text renders a cell for the text formats
func text(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func textRow(rank int, r contracts.HeatRecord) []string {
	vals := values(rank, r)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = text(v)
	}
	return out
}

func create(dir, name string) (*os.File, string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}
