package rates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Rows(t *testing.T) {
	tbl := Default()
	require.Equal(t, 13, tbl.Len())

	cases := []struct {
		name          string
		full, partial float64
		group         string
	}{
		{"Deutschland", 40, 20, ""},
		{"Bulgarien", 22, 15, ""},
		{"Schweiz", 64, 43, ""},
		{"Griechenland", 36, 24, "Griechenland"},
		{"Athen", 40, 27, "Griechenland"},
		{"Polen", 34, 23, "Polen"},
		{"Warschau", 40, 27, "Polen"},
		{"Portugal", 32, 20, ""},
		{"Rumänien", 24, 18, "Rumänien"},
		{"Bukarest", 32, 21, "Rumänien"},
		{"Serbien", 27, 18, ""},
		{"Slowakei", 33, 22, ""},
		{"Ungarn", 32, 20, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, ok := tbl.Lookup(tc.name)
			require.True(t, ok)
			assert.Equal(t, tc.full, r.FullDay)
			assert.Equal(t, tc.partial, r.PartialDay)
			assert.Equal(t, tc.group, r.Group)
			assert.False(t, r.Fallback)
		})
	}
}

func TestLookup_CaseInsensitiveExact(t *testing.T) {
	tbl := Default()

	r, ok := tbl.Lookup("SCHWEIZ")
	require.True(t, ok)
	assert.Equal(t, "Schweiz", r.Jurisdiction)

	_, ok = tbl.Lookup("rumänien")
	assert.True(t, ok)

	_, ok = tbl.Lookup("Schweiz ")
	assert.False(t, ok, "match is exact apart from case")

	_, ok = tbl.Lookup("Schwe")
	assert.False(t, ok)
}

func TestResolve_DomesticFallback(t *testing.T) {
	tbl := Default()

	r := tbl.Resolve("Atlantis")
	assert.True(t, r.Fallback)
	assert.Equal(t, "Atlantis", r.Jurisdiction)
	assert.Equal(t, float64(40), r.FullDay)
	assert.Equal(t, float64(20), r.PartialDay)

	known := tbl.Resolve("Polen")
	assert.False(t, known.Fallback)
	assert.Equal(t, float64(34), known.FullDay)
}

func TestResolve_CustomDomestic(t *testing.T) {
	tbl, err := NewTable([]JurisdictionRate{{Jurisdiction: "A", FullDay: 1, PartialDay: 1}}, WithDomestic(28, 14))
	require.NoError(t, err)

	r := tbl.Resolve("B")
	assert.Equal(t, float64(28), r.FullDay)
	assert.Equal(t, float64(14), r.PartialDay)
}

func TestNewTable_Validation(t *testing.T) {
	_, err := NewTable(nil)
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = NewTable([]JurisdictionRate{{Jurisdiction: "A"}, {Jurisdiction: "a"}})
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	_, err = NewTable([]JurisdictionRate{{Jurisdiction: " "}})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = NewTable([]JurisdictionRate{{Jurisdiction: "A", FullDay: -1}})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestTable_IsolatedFromInput(t *testing.T) {
	rows := []JurisdictionRate{{Jurisdiction: "A", FullDay: 10, PartialDay: 5}}
	tbl, err := NewTable(rows)
	require.NoError(t, err)

	rows[0].FullDay = 99
	all := tbl.All()
	all[0].FullDay = 77

	r, _ := tbl.Lookup("A")
	assert.Equal(t, float64(10), r.FullDay)
}

func TestGrouped(t *testing.T) {
	g := Default().Grouped()

	assert.Equal(t, []string{"Deutschland", "Bulgarien", "Schweiz", "Portugal", "Serbien", "Slowakei", "Ungarn"}, g.Ungrouped)
	require.Len(t, g.Groups, 3)
	assert.Equal(t, Group{Label: "Griechenland", Countries: []string{"Griechenland", "Athen"}}, g.Groups[0])
	assert.Equal(t, Group{Label: "Polen", Countries: []string{"Polen", "Warschau"}}, g.Groups[1])
	assert.Equal(t, Group{Label: "Rumänien", Countries: []string{"Rumänien", "Bukarest"}}, g.Groups[2])
}

func TestNames(t *testing.T) {
	names := Default().Names()
	require.Len(t, names, 13)
	assert.Equal(t, "Deutschland", names[0])
	assert.Equal(t, "Ungarn", names[12])
}

func TestSuggest(t *testing.T) {
	tbl := Default()

	got := tbl.Suggest("Schwiz", 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "Schweiz", got[0])

	assert.Empty(t, tbl.Suggest("Japan", 3))
	assert.Nil(t, tbl.Suggest("", 3))
	assert.Nil(t, tbl.Suggest("Polen", 0))
}

func TestParse_Formats(t *testing.T) {
	yamlDoc := []byte(`
domestic:
  country: Inland
  fullDay: 28
  partialDay: 14
rates:
  - country: Frankreich
    fullDay: 53
    partialDay: 36
  - country: Paris
    fullDay: 58
    partialDay: 39
    group: Frankreich
`)
	tomlDoc := []byte(`
[domestic]
country = "Inland"
fullDay = 28.0
partialDay = 14.0

[[rates]]
country = "Frankreich"
fullDay = 53.0
partialDay = 36.0

[[rates]]
country = "Paris"
fullDay = 58.0
partialDay = 39.0
group = "Frankreich"
`)
	jsonDoc := []byte(`{
  "domestic": {"country": "Inland", "fullDay": 28, "partialDay": 14},
  "rates": [
    {"country": "Frankreich", "fullDay": 53, "partialDay": 36},
    {"country": "Paris", "fullDay": 58, "partialDay": 39, "group": "Frankreich"}
  ]
}`)

	for ext, data := range map[string][]byte{".yaml": yamlDoc, ".toml": tomlDoc, ".json": jsonDoc} {
		t.Run(ext, func(t *testing.T) {
			tbl, err := Parse(data, ext)
			require.NoError(t, err)
			assert.Equal(t, 2, tbl.Len())

			r, ok := tbl.Lookup("paris")
			require.True(t, ok)
			assert.Equal(t, float64(58), r.FullDay)
			assert.Equal(t, "Frankreich", r.Group)

			fb := tbl.Resolve("Nowhere")
			assert.Equal(t, float64(28), fb.FullDay)
			assert.Equal(t, float64(14), fb.PartialDay)
		})
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte("x"), ".ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rates.yml")
	require.NoError(t, os.WriteFile(path, []byte("rates:\n  - country: Italien\n    fullDay: 42\n    partialDay: 28\n"), 0o644))

	tbl, err := LoadFile(path)
	require.NoError(t, err)
	r, ok := tbl.Lookup("ITALIEN")
	require.True(t, ok)
	assert.Equal(t, float64(28), r.PartialDay)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(dir)
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	tbl, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, 13, tbl.Len())
}
