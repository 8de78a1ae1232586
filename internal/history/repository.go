package history

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrInvalidRecord is returned when a record is missing required fields.
var ErrInvalidRecord = errors.New("invalid history record")

// Repository stores comparison history.
type Repository interface {
	// Create atomically stores a record together with its score rows.
	Create(ctx context.Context, rec *Record) error

	// ListByOwner returns one page of the owner's records, newest first,
	// and the owner's total record count.
	ListByOwner(ctx context.Context, ownerID string, page Page) ([]Summary, int, error)

	// GetForOwner returns the record with the given id if it belongs to ownerID.
	GetForOwner(ctx context.Context, id, ownerID string) (*Record, error)
}

func validateRecord(rec *Record) error {
	switch {
	case rec == nil:
		return ErrInvalidRecord
	case rec.ID == "":
		return errors.Join(ErrInvalidRecord, errors.New("id is required"))
	case rec.OwnerUserID == "":
		return errors.Join(ErrInvalidRecord, errors.New("owner is required"))
	case rec.CreatedAt.IsZero():
		return errors.Join(ErrInvalidRecord, errors.New("created_at is required"))
	}
	return nil
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryRepository creates a new in-memory history repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
	}
}

// Create implements Repository.
func (r *InMemoryRepository) Create(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.ID]; exists {
		return errors.Join(ErrInvalidRecord, errors.New("duplicate id"))
	}
	r.records[rec.ID] = rec.clone()
	return nil
}

// ListByOwner implements Repository.
func (r *InMemoryRepository) ListByOwner(ctx context.Context, ownerID string, page Page) ([]Summary, int, error) {
	page = page.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []*Record
	for _, rec := range r.records {
		if rec.OwnerUserID == ownerID {
			owned = append(owned, rec)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID < owned[j].ID
	})

	out := []Summary{}
	for i := page.Offset(); i < len(owned) && len(out) < page.Limit; i++ {
		rec := owned[i]
		out = append(out, Summary{
			ID:           rec.ID,
			CreatedAt:    rec.CreatedAt,
			CategoryID:   rec.CategoryID,
			SpecsSummary: append([]string{}, rec.SpecsSummary...),
		})
	}
	return out, len(owned), nil
}

// GetForOwner implements Repository.
func (r *InMemoryRepository) GetForOwner(ctx context.Context, id, ownerID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.OwnerUserID != ownerID {
		return nil, ErrNotFound
	}
	return rec.clone(), nil
}
