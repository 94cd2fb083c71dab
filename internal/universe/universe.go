// Package universe loads the list of tracked items.
package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/watchheat/internal/contracts"
)

// ErrEmptyUniverse is returned when a file holds no items
var ErrEmptyUniverse = errors.New("universe has no items")

// Load reads a universe file, picking the format from the extension
// (.yaml/.yml, otherwise CSV).
func Load(path string) ([]contracts.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("universe file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return ParseCSV(f)
	}
}

// ParseCSV reads "brand,reference[,display_name]" rows with a header line.
// Column order follows the header; extra columns are ignored.
func ParseCSV(r io.Reader) ([]contracts.Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyUniverse
	}
	if err != nil {
		return nil, fmt.Errorf("read universe header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, required := range []string{"brand", "reference"} {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("universe is missing columns: %s", strings.Join(missing, ", "))
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var items []contracts.Item
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read universe: %w", err)
		}
		items = append(items, contracts.Item{
			Brand:       field(row, "brand"),
			Reference:   field(row, "reference"),
			DisplayName: field(row, "display_name"),
		})
	}
	return validate(items)
}

type yamlFile struct {
	Items []contracts.Item `yaml:"items"`
}

// ParseYAML reads
//
//	items:
//	  - brand: Rolex
//	    reference: 126610LV
//	    display_name: Submariner Kermit
//
// Unknown keys are rejected.
func ParseYAML(r io.Reader) ([]contracts.Item, error) {
	var file yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyUniverse
		}
		return nil, fmt.Errorf("decode universe: %w", err)
	}
	for i := range file.Items {
		file.Items[i].Brand = strings.TrimSpace(file.Items[i].Brand)
		file.Items[i].Reference = strings.TrimSpace(file.Items[i].Reference)
		file.Items[i].DisplayName = strings.TrimSpace(file.Items[i].DisplayName)
	}
	return validate(file.Items)
}

func validate(items []contracts.Item) ([]contracts.Item, error) {
	if len(items) == 0 {
		return nil, ErrEmptyUniverse
	}
	seen := make(map[string]int, len(items))
	for i, it := range items {
		// entry numbers are 1-based for humans
		switch {
		case it.Brand == "":
			return nil, fmt.Errorf("universe entry %d: empty brand", i+1)
		case it.Reference == "":
			return nil, fmt.Errorf("universe entry %d: empty reference", i+1)
		case strings.Contains(it.Brand, "/"):
			return nil, fmt.Errorf("universe entry %d: brand %q contains '/'", i+1, it.Brand)
		}
		if prev, dup := seen[it.ID()]; dup {
			return nil, fmt.Errorf("universe entry %d: %s duplicates entry %d", i+1, it.ID(), prev)
		}
		seen[it.ID()] = i + 1
	}
	return items, nil
}
