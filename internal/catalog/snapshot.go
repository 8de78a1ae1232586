package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goreulmanhae/compare-api/internal/validate"
)

// ErrInvalidSnapshot is returned when a snapshot fails validation.
var ErrInvalidSnapshot = errors.New("invalid catalog snapshot")

// ReadSnapshot decodes a JSON snapshot from r and validates it. Image URLs
// are normalized in place.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// LoadSnapshotFile reads and validates the snapshot stored at path.
func LoadSnapshotFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// Validate checks ids, references and image URLs. All problems are reported
// together.
func (s *Snapshot) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSnapshot}, args...)...))
	}

	categories := make(map[int64]bool, len(s.Categories))
	slugs := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c.ID <= 0 || categories[c.ID] {
			fail("category id %d is not a unique positive id", c.ID)
		}
		categories[c.ID] = true
		if strings.TrimSpace(c.Slug) == "" || slugs[c.Slug] {
			fail("category %d needs a unique slug", c.ID)
		}
		slugs[c.Slug] = true
		keys := make(map[string]bool, len(c.Specs))
		for _, spec := range c.Specs {
			if spec.EngName == "" || keys[spec.EngName] {
				fail("category %d has an empty or repeated spec key %q", c.ID, spec.EngName)
			}
			keys[spec.EngName] = true
		}
	}

	makers := make(map[int64]bool, len(s.Makers))
	for _, m := range s.Makers {
		if m.ID <= 0 || makers[m.ID] {
			fail("maker id %d is not a unique positive id", m.ID)
		}
		makers[m.ID] = true
	}

	products := make(map[int64]bool, len(s.Products))
	for i := range s.Products {
		p := &s.Products[i]
		if p.ID <= 0 || products[p.ID] {
			fail("product id %d is not a unique positive id", p.ID)
		}
		products[p.ID] = true
		if !categories[p.CategoryID] {
			fail("product %d references unknown category %d", p.ID, p.CategoryID)
		}
		if p.MakerID != nil && !makers[*p.MakerID] {
			fail("product %d references unknown maker %d", p.ID, *p.MakerID)
		}
		imageURL, err := validate.ImageURL(p.ImageURL)
		if err != nil {
			fail("product %d image_url: %v", p.ID, err)
		}
		p.ImageURL = imageURL
	}

	variants := make(map[int64]bool, len(s.Variants))
	for _, v := range s.Variants {
		if v.ID <= 0 || variants[v.ID] {
			fail("variant id %d is not a unique positive id", v.ID)
		}
		variants[v.ID] = true
		if !products[v.ProductID] {
			fail("variant %d references unknown product %d", v.ID, v.ProductID)
		}
		if v.Price < 0 {
			fail("variant %d has a negative price", v.ID)
		}
	}

	return errors.Join(errs...)
}
