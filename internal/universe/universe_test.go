package universe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/watchheat/internal/contracts"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []contracts.Item
		wantErr string
	}{
		{
			name:  "with display name",
			input: "brand,reference,display_name\nRolex,126610LV,Submariner Kermit\nOmega,310.30.42.50.01.001,Speedmaster\n",
			want: []contracts.Item{
				{Brand: "Rolex", Reference: "126610LV", DisplayName: "Submariner Kermit"},
				{Brand: "Omega", Reference: "310.30.42.50.01.001", DisplayName: "Speedmaster"},
			},
		},
		{
			name:  "reordered columns without display name",
			input: "reference, brand\n5711/1A-011, Patek Philippe\n",
			want:  []contracts.Item{{Brand: "Patek Philippe", Reference: "5711/1A-011"}},
		},
		{
			name:    "missing reference column",
			input:   "brand,display_name\nRolex,Sub\n",
			wantErr: "missing columns: reference",
		},
		{
			name:    "empty reference",
			input:   "brand,reference\nRolex,\n",
			wantErr: "empty reference",
		},
		{
			name:    "duplicate",
			input:   "brand,reference\nRolex,126610LV\nTudor,79360N\nRolex,126610LV\n",
			wantErr: "duplicates entry 1",
		},
		{
			name:    "header only",
			input:   "brand,reference\n",
			wantErr: ErrEmptyUniverse.Error(),
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: ErrEmptyUniverse.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseYAML(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := ParseYAML(strings.NewReader(`
items:
  - brand: Rolex
    reference: 126610LV
    display_name: Submariner Kermit
  - brand: Tudor
    reference: 79360N
`))
		require.NoError(t, err)
		assert.Equal(t, []contracts.Item{
			{Brand: "Rolex", Reference: "126610LV", DisplayName: "Submariner Kermit"},
			{Brand: "Tudor", Reference: "79360N"},
		}, got)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := ParseYAML(strings.NewReader("items:\n  - brand: Rolex\n    ref: 126610LV\n"))
		assert.Error(t, err)
	})

	t.Run("slash in brand", func(t *testing.T) {
		_, err := ParseYAML(strings.NewReader("items:\n  - brand: A/B\n    reference: X\n"))
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseYAML(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyUniverse)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "universe.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("brand,reference\nRolex,126610LV\n"), 0o644))
	items, err := Load(csvPath)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	yamlPath := filepath.Join(dir, "universe.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("items:\n  - brand: Rolex\n    reference: 126610LV\n"), 0o644))
	items, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "Rolex/126610LV", items[0].ID())

	_, err = Load(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
