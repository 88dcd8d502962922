// Package regions holds the region table: which weather offices, state FIPS
// codes and fallback coordinates belong to each supported region.
package regions

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

//go:embed regions.yaml
var embedded []byte

// Region describes one first-level administrative division.
type Region struct {
	Name     string                  `yaml:"name" validate:"required"`
	Abbrev   string                  `yaml:"abbrev" validate:"required,len=2,uppercase"`
	FIPS     string                  `yaml:"fips" validate:"required,len=2,numeric"`
	Offices  []string                `yaml:"offices" validate:"required,min=1,dive,len=3,uppercase"`
	Default  *domain.Coord           `yaml:"default"`
	Counties map[string]domain.Coord `yaml:"counties"`
}

// Table is an ordered region list with name and abbreviation indexes.
type Table struct {
	regions  []Region
	byKey    map[string]int
	byAbbrev map[string]int
}

type document struct {
	Regions []Region `yaml:"regions" validate:"required,min=1,dive"`
}

// Default returns the built-in table.
func Default() *Table {
	t, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded region table: %v", err))
	}
	return t
}

// Load reads a table from a YAML file. An empty path returns the built-in table.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse region table %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a YAML region table.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	t := &Table{
		regions:  doc.Regions,
		byKey:    make(map[string]int, 2*len(doc.Regions)),
		byAbbrev: make(map[string]int, len(doc.Regions)),
	}
	for i, r := range doc.Regions {
		if _, dup := t.byAbbrev[r.Abbrev]; dup {
			return nil, fmt.Errorf("duplicate region %s", r.Abbrev)
		}
		t.byAbbrev[r.Abbrev] = i
		t.byKey[strings.ToLower(r.Abbrev)] = i
		t.byKey[strings.ToLower(r.Name)] = i
	}
	return t, nil
}

// All returns the regions in table order.
func (t *Table) All() []Region {
	return t.regions
}

// Lookup resolves a region by name or abbreviation, case-insensitively.
func (t *Table) Lookup(target string) (Region, bool) {
	i, ok := t.byKey[strings.ToLower(strings.TrimSpace(target))]
	if !ok {
		return Region{}, false
	}
	return t.regions[i], true
}

// Abbrev returns the abbreviation for target, or target itself when it does not resolve.
func (t *Table) Abbrev(target string) string {
	if r, ok := t.Lookup(target); ok {
		return r.Abbrev
	}
	return target
}

// StateCodes returns the FIPS codes to download stations for. An empty or
// unknown target yields every region.
func (t *Table) StateCodes(target string) []string {
	if r, ok := t.Lookup(target); ok {
		return []string{r.FIPS}
	}
	codes := make([]string, 0, len(t.regions))
	for _, r := range t.regions {
		codes = append(codes, r.FIPS)
	}
	return codes
}

// Offices returns the weather offices to query for alerts. An empty or
// unknown target yields every office in table order.
func (t *Table) Offices(target string) []string {
	if r, ok := t.Lookup(target); ok {
		return r.Offices
	}
	var offices []string
	for _, r := range t.regions {
		offices = append(offices, r.Offices...)
	}
	return offices
}

// CountyCoord implements domain.Gazetteer.
func (t *Table) CountyCoord(abbrev, county string) (domain.Coord, bool) {
	i, ok := t.byAbbrev[abbrev]
	if !ok {
		return domain.Coord{}, false
	}
	c, ok := t.regions[i].Counties[county]
	return c, ok
}

// RegionDefault implements domain.Gazetteer.
func (t *Table) RegionDefault(abbrev string) (domain.Coord, bool) {
	i, ok := t.byAbbrev[abbrev]
	if !ok || t.regions[i].Default == nil {
		return domain.Coord{}, false
	}
	return *t.regions[i].Default, true
}
