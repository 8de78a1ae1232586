package compare

import (
	"strings"

	"github.com/goreulmanhae/compare-api/internal/catalog"
)

// PriceKey is the key of the built-in price spec.
const PriceKey = "price"

// PriceSpec is the synthetic price definition prepended to every category.
var PriceSpec = catalog.SpecDefinition{
	Key:         PriceKey,
	DisplayName: "가격",
	Unit:        "원",
	Orientation: catalog.OrientationNegative,
	IconKey:     "price",
}

// ResolveSpecs returns the comparable specs for a category: the built-in
// price first, then the stored specs in order with any stored "price"
// entry (case-insensitive) dropped.
func ResolveSpecs(stored []catalog.SpecDefinition) []catalog.SpecDefinition {
	resolved := make([]catalog.SpecDefinition, 0, len(stored)+1)
	resolved = append(resolved, PriceSpec)
	for _, spec := range stored {
		if strings.EqualFold(spec.Key, PriceKey) {
			continue
		}
		resolved = append(resolved, spec)
	}
	return resolved
}

// findSpec returns the definition for key, if any.
func findSpec(specs []catalog.SpecDefinition, key string) (catalog.SpecDefinition, bool) {
	for _, s := range specs {
		if s.Key == key {
			return s, true
		}
	}
	return catalog.SpecDefinition{}, false
}
