package vehicle

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is an ordered, read-only list of vehicles. It is safe for
// concurrent use because nothing mutates it after construction.
type Catalog struct {
	vehicles []Vehicle
}

type catalogFile struct {
	Vehicles []Vehicle `yaml:"vehicles"`
}

// NewCatalog validates vehicles and builds a catalog from a copy of them
func NewCatalog(vehicles []Vehicle) (*Catalog, error) {
	seen := make(map[string]bool, len(vehicles))
	for _, v := range vehicles {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("duplicate vehicle id: %s", v.ID)
		}
		seen[v.ID] = true
	}
	return &Catalog{vehicles: append([]Vehicle(nil), vehicles...)}, nil
}

// ParseCatalog reads a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing vehicle catalog: %w", err)
	}
	return NewCatalog(f.Vehicles)
}

// LoadCatalog reads a YAML catalog from path. An empty path loads the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vehicle catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// All returns a copy of the vehicles in catalog order
func (c *Catalog) All() []Vehicle {
	return append([]Vehicle(nil), c.vehicles...)
}

// ByID looks up a vehicle by id
func (c *Catalog) ByID(id string) (Vehicle, bool) {
	for _, v := range c.vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// ByCategory returns the first vehicle whose category label matches, ignoring case
func (c *Catalog) ByCategory(label string) (Vehicle, bool) {
	for _, v := range c.vehicles {
		if strings.EqualFold(strings.TrimSpace(v.CategoryLabel), label) {
			return v, true
		}
	}
	return Vehicle{}, false
}
