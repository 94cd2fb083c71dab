package commands

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/watchheat/internal/contracts"
)

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintHeader prints a titled block header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	PrintSeparator()
}

// PrintRunSummary prints the run metadata block
func PrintRunSummary(m contracts.RunMetadata) {
	PrintSeparator()
	fmt.Printf("  Run ID      : %s\n", m.RunID)
	fmt.Printf("  As of       : %s\n", m.AsOf.Format(contracts.DateLayout))
	fmt.Printf("  Universe    : %d\n", m.UniverseSize)
	fmt.Printf("  Scored      : %d\n", m.Scored)
	fmt.Printf("  Hot         : %d\n", m.HotCount)
	fmt.Printf("  Missing     : %d\n", m.MissingObservations)
	fmt.Printf("  Short hist. : %d\n", m.InsufficientHistory)
	fmt.Printf("  Failures    : %d\n", len(m.Failures))
	for _, f := range m.Failures {
		fmt.Printf("    - %-32s %-8s %s\n", f.ItemID, f.Stage, f.Error)
	}
	if m.ScoringHash != "" {
		fmt.Printf("  Scoring     : %s\n", truncate(m.ScoringHash, 12))
	}
	if m.Duration > 0 {
		fmt.Printf("  Duration    : %s\n", m.Duration.Round(1e6))
	}
	PrintSeparator()
}

// PrintRecords prints the top n ranked records; n <= 0 prints all
func PrintRecords(records []contracts.HeatRecord, n int) {
	if n <= 0 || n > len(records) {
		n = len(records)
	}
	fmt.Printf("  %-4s %-32s %10s %8s %8s %8s %4s %10s\n",
		"#", "ITEM", "PRICE", "Δ14", "Δ30", "HEAT", "HOT", "MAX BID")
	for i, r := range records[:n] {
		hot := ""
		if r.Hot {
			hot = "🔥"
		}
		fmt.Printf("  %-4d %-32s %10s %8s %8s %8s %4s %10s\n",
			i+1, truncate(r.ItemID, 32),
			fmtFloat(r.Price(), "%.2f"),
			fmtPct(r.Metrics.Delta14),
			fmtPct(r.Metrics.Delta30),
			fmtFloat(r.Heat, "%.3f"),
			hot,
			fmtDecimal(r.MaxBidHigh))
	}
}

func fmtFloat(p *float64, format string) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf(format, *p)
}

func fmtPct(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", *p*100)
}

func fmtInt(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}

func fmtDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// maskPassword hides the password part of a connection URL
func maskPassword(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 {
		return url
	}
	creds := url[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return url[:scheme+3] + creds[:colon] + ":****" + url[at:]
	}
	return url
}
