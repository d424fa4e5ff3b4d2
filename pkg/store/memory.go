package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Record)}
}

func (m *Memory) Save(_ context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "record must have an ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = clone(rec)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "layout %s not found", id)
	}
	return clone(rec), nil
}

func (m *Memory) List(_ context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	out := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, clone(rec))
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareStrings(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return errors.New(errors.ErrCodeNotFound, "layout %s not found", id)
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

func clone(rec *Record) *Record {
	c := *rec
	if rec.Book != nil {
		c.Book = rec.Book.Clone()
	}
	c.Options.Genotypes = slices.Clone(rec.Options.Genotypes)
	c.Options.Capacities = slices.Clone(rec.Options.Capacities)
	return &c
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var _ Store = (*Memory)(nil)
