package compare

import "github.com/goreulmanhae/compare-api/internal/catalog"

// ComputeRanges returns the min and max numeric value of every spec across
// candidates. With no candidates every range is {0, 0}.
func ComputeRanges(specs []catalog.SpecDefinition, candidates []Candidate) map[string]Range {
	ranges := make(map[string]Range, len(specs))
	for _, spec := range specs {
		if len(candidates) == 0 {
			ranges[spec.Key] = Range{}
			continue
		}
		r := Range{Min: NumericValue(spec.Key, candidates[0].Attributes)}
		r.Max = r.Min
		for _, c := range candidates[1:] {
			v := NumericValue(spec.Key, c.Attributes)
			if v < r.Min {
				r.Min = v
			}
			if v > r.Max {
				r.Max = v
			}
		}
		ranges[spec.Key] = r
	}
	return ranges
}
