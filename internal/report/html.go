package report

import (
	"html/template"

	"github.com/wonny/watchheat/internal/contracts"
)

var htmlTemplate = template.Must(template.New("heat").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Watch Heat Report - {{.AsOf}}</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; margin: 20px; color: #333; }
.stats { display: flex; gap: 24px; margin-bottom: 16px; }
.stat b { display: block; font-size: 22px; }
table { border-collapse: collapse; font-size: 13px; }
th, td { border-bottom: 1px solid #eee; padding: 4px 8px; text-align: right; white-space: nowrap; }
th { background: #f9f9f9; position: sticky; top: 0; }
td.text { text-align: left; }
tr.hot { background: #fff7e6; }
</style>
</head>
<body>
<h1>Watch Heat Report</h1>
<div class="stats">
  <div class="stat">As of<b>{{.AsOf}}</b></div>
  <div class="stat">Universe<b>{{.Meta.UniverseSize}}</b></div>
  <div class="stat">Scored<b>{{.Meta.Scored}}</b></div>
  <div class="stat">Hot<b>{{.Meta.HotCount}}</b></div>
  <div class="stat">Failures<b>{{len .Meta.Failures}}</b></div>
</div>
<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr{{if .Hot}} class="hot"{{end}}>{{range $i, $c := .Cells}}<td{{if and (ge $i 1) (le $i 5)}} class="text"{{end}}>{{$c}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{if .Meta.Failures}}
<h2>Failures</h2>
<ul>{{range .Meta.Failures}}<li>{{.ItemID}} ({{.Stage}}): {{.Error}}</li>{{end}}</ul>
{{end}}
</body>
</html>
`))

type htmlRow struct {
	Hot   bool
	Cells []string
}

// HTMLWriter writes watch_heat_<date>.html
type HTMLWriter struct{}

func (HTMLWriter) Format() string { return "html" }

func (HTMLWriter) Write(dir string, res *contracts.RunResult) (string, error) {
	f, path, err := create(dir, Filename(res, "html"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	rows := make([]htmlRow, len(res.Records))
	for i, r := range res.Records {
		rows[i] = htmlRow{Hot: r.Hot, Cells: textRow(i+1, r)}
	}

	err = htmlTemplate.Execute(f, struct {
		AsOf    string
		Meta    contracts.RunMetadata
		Columns []string
		Rows    []htmlRow
	}{
		AsOf:    res.Metadata.AsOf.Format(contracts.DateLayout),
		Meta:    res.Metadata,
		Columns: Columns,
		Rows:    rows,
	})
	if err != nil {
		return "", err
	}
	return path, f.Close()
}
