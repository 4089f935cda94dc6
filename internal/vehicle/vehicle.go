package vehicle

import (
	"fmt"
	"strings"
)

// Category labels used by the auto-selector
const (
	CategoryTruck   = "TRUCK"
	CategoryCarreta = "CARRETA"
)

// TruckLimit is the heaviest net weight, in kilograms, still carried by a truck
const TruckLimit = 15000.0

// Vehicle is a catalog entry. Weights are in kilograms.
type Vehicle struct {
	ID            string  `json:"id" yaml:"id"`
	CategoryLabel string  `json:"category_label" yaml:"category"`
	Plate         string  `json:"plate" yaml:"plate"`
	Description   string  `json:"description,omitempty" yaml:"description"`
	TareWeight    float64 `json:"tare_weight" yaml:"tare_weight"`
	MaxCapacity   float64 `json:"max_capacity" yaml:"max_capacity"`
}

// Validate checks the catalog invariants of a single entry
func (v Vehicle) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if strings.TrimSpace(v.CategoryLabel) == "" {
		return fmt.Errorf("vehicle %s: category is required", v.ID)
	}
	if v.TareWeight < 0 {
		return fmt.Errorf("vehicle %s: tare weight must not be negative", v.ID)
	}
	if v.MaxCapacity <= v.TareWeight {
		return fmt.Errorf("vehicle %s: max capacity must exceed tare weight", v.ID)
	}
	return nil
}

// Selection is the outcome of auto-selecting a vehicle for a net weight
type Selection struct {
	Category string   `json:"category"`
	Vehicle  *Vehicle `json:"vehicle"`
	Message  string   `json:"message,omitempty"`
}

// Found reports whether the catalog had a vehicle for the category
func (s Selection) Found() bool {
	return s.Vehicle != nil
}

// CategoryFor maps a net weight to a vehicle category. The thresholds are
// fixed and do not look at any vehicle's capacity.
func CategoryFor(netWeight float64) string {
	if netWeight <= TruckLimit {
		return CategoryTruck
	}
	return CategoryCarreta
}

// AutoSelect picks the first catalog vehicle of the category matching
// netWeight. A miss is not an error: the selection carries a message so the
// caller can fall back to manual selection.
func AutoSelect(netWeight float64, catalog *Catalog) Selection {
	category := CategoryFor(netWeight)
	sel := Selection{Category: category}
	if v, ok := catalog.ByCategory(category); ok {
		sel.Vehicle = &v
		return sel
	}
	sel.Message = fmt.Sprintf("no %s vehicle in catalog, select one manually", category)
	return sel
}
