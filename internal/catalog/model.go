// Package catalog provides the product catalog model (categories, makers,
// products and their purchasable variants) and the stores that serve it.
package catalog

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a referenced catalog entity does not exist.
var ErrNotFound = errors.New("catalog entity not found")

// Orientation tells whether a higher or a lower raw value is preferred for a spec.
type Orientation string

const (
	// OrientationPositive means higher raw values are better.
	OrientationPositive Orientation = "positive"
	// OrientationNegative means lower raw values are better (e.g. price).
	OrientationNegative Orientation = "negative"
)

// SpecDefinition describes one comparable attribute of a category.
type SpecDefinition struct {
	Key         string      `json:"key"`
	DisplayName string      `json:"display_name"`
	Unit        string      `json:"unit"`
	Orientation Orientation `json:"orientation"`
	IconKey     string      `json:"icon_key"`
}

// SpecRecord is the stored shape of a category spec entry.
type SpecRecord struct {
	EngName    string `json:"eng_name"`
	KorName    string `json:"kor_name"`
	Unit       string `json:"unit"`
	IsPositive bool   `json:"is_positive"`
	IconKey    string `json:"icon_key"`
}

// Definition converts the stored record into a SpecDefinition.
func (r SpecRecord) Definition() SpecDefinition {
	orientation := OrientationNegative
	if r.IsPositive {
		orientation = OrientationPositive
	}
	return SpecDefinition{
		Key:         r.EngName,
		DisplayName: r.KorName,
		Unit:        r.Unit,
		Orientation: orientation,
		IconKey:     r.IconKey,
	}
}

// Definitions converts a category's stored spec records, preserving order.
func Definitions(records []SpecRecord) []SpecDefinition {
	defs := make([]SpecDefinition, 0, len(records))
	for _, r := range records {
		defs = append(defs, r.Definition())
	}
	return defs
}

// AttributeMap maps a spec key to its raw value: a number, a string, or a
// structured object such as {"width": 1920, "height": 1080}.
type AttributeMap map[string]any

// Clone returns a shallow copy of the map. A nil map clones to an empty map.
func (m AttributeMap) Clone() AttributeMap {
	out := make(AttributeMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Category groups products that share the same set of comparable specs.
type Category struct {
	ID    int64        `json:"id"`
	Slug  string       `json:"slug"`
	Name  string       `json:"name"`
	Specs []SpecRecord `json:"specs"`
}

// Maker is a product manufacturer.
type Maker struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is a catalog entry whose shared specs apply to all of its variants.
type Product struct {
	ID          int64        `json:"id"`
	CategoryID  int64        `json:"category_id"`
	MakerID     *int64       `json:"maker_id,omitempty"`
	Name        string       `json:"name"`
	ImageURL    string       `json:"image_url"`
	CommonSpecs AttributeMap `json:"common_specs"`
}

// Variant is one purchasable option of a product.
type Variant struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"product_id"`
	VariantName string       `json:"variant_name"`
	Price       float64      `json:"price"`
	OptionSpecs AttributeMap `json:"option_specs"`
}

// VariantListing is the public shape returned when listing a product's variants.
type VariantListing struct {
	ID          int64        `json:"id"`
	VariantName string       `json:"variant_name"`
	Price       float64      `json:"price"`
	OptionSpecs AttributeMap `json:"option_specs"`
}

// ProductSummary is the public shape of a product search hit.
type ProductSummary struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Brand    string       `json:"brand"`
	ImageURL string       `json:"image_url"`
	Specs    AttributeMap `json:"specs"`
}

// VariantDetail is a variant joined with its owning product and maker.
type VariantDetail struct {
	Variant
	ProductName     string
	ProductImageURL string
	CommonSpecs     AttributeMap
	Brand           string
}

// UnknownBrand is reported for products without a maker.
const UnknownBrand = "Unknown"

// brandOrUnknown returns the maker name, falling back to UnknownBrand.
func brandOrUnknown(name string) string {
	if strings.TrimSpace(name) == "" {
		return UnknownBrand
	}
	return name
}

// ProductQuery filters product search.
type ProductQuery struct {
	// Text is matched case-insensitively against the product name.
	Text string
	// CategorySlug restricts results to one category when non-empty.
	CategorySlug string
}

// Snapshot is a full catalog dump, used for seeding stores and for tests.
type Snapshot struct {
	Categories []Category `json:"categories"`
	Makers     []Maker    `json:"makers"`
	Products   []Product  `json:"products"`
	Variants   []Variant  `json:"variants"`
}
