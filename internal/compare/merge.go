package compare

import "github.com/goreulmanhae/compare-api/internal/catalog"

// MergeAttributes flattens a variant's attribute sources into one map.
// Product-shared attributes are overlaid by variant options; the base price
// is written last, so a "price" key in either map never replaces it.
// Inputs are not modified.
func MergeAttributes(price float64, shared, option catalog.AttributeMap) catalog.AttributeMap {
	merged := make(catalog.AttributeMap, len(shared)+len(option)+1)
	for k, v := range shared {
		merged[k] = v
	}
	for k, v := range option {
		merged[k] = v
	}
	merged[PriceKey] = price
	return merged
}

// CandidateFromDetail builds a Candidate from a catalog variant joined with its product.
func CandidateFromDetail(d catalog.VariantDetail) Candidate {
	return Candidate{
		ID:           d.ID,
		DisplayName:  d.ProductName,
		VariantLabel: d.VariantName,
		Brand:        d.Brand,
		ImageURL:     d.ProductImageURL,
		Price:        d.Price,
		Attributes:   MergeAttributes(d.Price, d.CommonSpecs, d.OptionSpecs),
	}
}
