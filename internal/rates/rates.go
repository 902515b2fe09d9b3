// Package rates holds the per-diem rate table: full-day and partial-day meal
// allowances per jurisdiction.
//
// A Table is immutable once built and is passed explicitly to the code that
// needs it. There is no package level table.
package rates

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Domestic fallback rates used when a jurisdiction is not in the table.
const (
	DomesticFullDay    = 40
	DomesticPartialDay = 20
)

var (
	ErrEmptyTable        = errors.New("rate table has no entries")
	ErrDuplicateEntry    = errors.New("duplicate jurisdiction")
	ErrInvalidEntry      = errors.New("invalid rate entry")
	ErrUnsupportedFormat = errors.New("unsupported rate file format")
)

// JurisdictionRate is one row of the table.
type JurisdictionRate struct {
	Jurisdiction string  `json:"country" yaml:"country" toml:"country"`
	FullDay      float64 `json:"fullDay" yaml:"fullDay" toml:"fullDay"`
	PartialDay   float64 `json:"partialDay" yaml:"partialDay" toml:"partialDay"`
	Group        string  `json:"group,omitempty" yaml:"group,omitempty" toml:"group,omitempty"`

	// Fallback is set on rates produced by Resolve for unknown jurisdictions.
	Fallback bool `json:"-" yaml:"-" toml:"-"`
}

// Group is a labelled set of jurisdictions, e.g. a country and its capital.
type Group struct {
	Label     string   `json:"label"`
	Countries []string `json:"countries"`
}

// Grouped is the table arranged for a picker.
type Grouped struct {
	Ungrouped []string `json:"ungrouped"`
	Groups    []Group  `json:"groups"`
}

type Table struct {
	rows     []JurisdictionRate
	index    map[string]int
	domestic JurisdictionRate
}

// Option customises a Table.
type Option func(*Table)

// WithDomestic overrides the fallback rates for unknown jurisdictions.
func WithDomestic(fullDay, partialDay float64) Option {
	return func(t *Table) {
		t.domestic.FullDay = fullDay
		t.domestic.PartialDay = partialDay
	}
}

// NewTable validates rows and builds an immutable table. Jurisdiction names
// must be unique ignoring case.
func NewTable(rows []JurisdictionRate, opts ...Option) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table{
		rows:  make([]JurisdictionRate, 0, len(rows)),
		index: make(map[string]int, len(rows)),
		domestic: JurisdictionRate{
			Jurisdiction: "Deutschland",
			FullDay:      DomesticFullDay,
			PartialDay:   DomesticPartialDay,
		},
	}
	for _, opt := range opts {
		opt(t)
	}

	for i, r := range rows {
		name := strings.TrimSpace(r.Jurisdiction)
		if name == "" {
			return nil, fmt.Errorf("%w: row %d has no jurisdiction", ErrInvalidEntry, i+1)
		}
		if r.FullDay < 0 || r.PartialDay < 0 {
			return nil, fmt.Errorf("%w: %s has a negative rate", ErrInvalidEntry, name)
		}
		key := strings.ToLower(name)
		if _, dup := t.index[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
		}
		r.Jurisdiction = name
		r.Group = strings.TrimSpace(r.Group)
		r.Fallback = false
		t.index[key] = len(t.rows)
		t.rows = append(t.rows, r)
	}
	return t, nil
}

// Lookup finds a jurisdiction by case-insensitive exact name.
func (t *Table) Lookup(name string) (JurisdictionRate, bool) {
	i, ok := t.index[strings.ToLower(name)]
	if !ok {
		return JurisdictionRate{}, false
	}
	return t.rows[i], true
}

// Resolve returns the jurisdiction's rate or the domestic fallback. A fallback
// keeps the requested name and has Fallback set.
func (t *Table) Resolve(name string) JurisdictionRate {
	if r, ok := t.Lookup(name); ok {
		return r
	}
	r := t.domestic
	r.Jurisdiction = name
	r.Group = ""
	r.Fallback = true
	return r
}

// Domestic returns the fallback rate.
func (t *Table) Domestic() JurisdictionRate {
	return t.domestic
}

func (t *Table) Len() int {
	return len(t.rows)
}

// All returns a copy of the rows in table order.
func (t *Table) All() []JurisdictionRate {
	return append([]JurisdictionRate(nil), t.rows...)
}

// Names returns the jurisdiction names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.rows))
	for i, r := range t.rows {
		names[i] = r.Jurisdiction
	}
	return names
}

// Grouped splits the names into ungrouped rows and groups, both in table order.
func (t *Table) Grouped() Grouped {
	out := Grouped{Ungrouped: []string{}, Groups: []Group{}}
	pos := map[string]int{}
	for _, r := range t.rows {
		if r.Group == "" {
			out.Ungrouped = append(out.Ungrouped, r.Jurisdiction)
			continue
		}
		i, ok := pos[r.Group]
		if !ok {
			i = len(out.Groups)
			pos[r.Group] = i
			out.Groups = append(out.Groups, Group{Label: r.Group})
		}
		out.Groups[i].Countries = append(out.Groups[i].Countries, r.Jurisdiction)
	}
	return out
}

// Suggest returns up to n jurisdiction names close to name, nearest first.
// It is used to hint at typos when a lookup falls back to domestic rates.
func (t *Table) Suggest(name string, n int) []string {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" || n <= 0 {
		return nil
	}
	limit := len([]rune(needle))/3 + 1

	type candidate struct {
		name string
		dist int
	}
	var cands []candidate
	for _, r := range t.rows {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(r.Jurisdiction))
		if d <= limit {
			cands = append(cands, candidate{r.Jurisdiction, d})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > n {
		cands = cands[:n]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.name
	}
	return out
}
