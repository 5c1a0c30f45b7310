// Package store provides in-memory PropertyStore implementations.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	properties map[generic.PropertyID]compliance.Property
	runs       []compliance.QueueRun
}

func NewMemory(props ...compliance.Property) *Memory {
	m := &Memory{properties: make(map[generic.PropertyID]compliance.Property)}
	for _, p := range props {
		m.properties[p.ID] = clone(p)
	}
	return m
}

// SaveProperty inserts or replaces a property.
func (m *Memory) SaveProperty(_ context.Context, p compliance.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = clone(p)
	return nil
}

// FindProperties returns matching properties ordered by sale date.
func (m *Memory) FindProperties(ctx context.Context, q compliance.PropertyQuery) ([]compliance.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]compliance.Property, 0, len(m.properties))
	for _, p := range m.properties {
		if !q.Matches(p) {
			continue
		}
		p = clone(p)
		p.Communications = q.FilterCommunications(p.Communications)
		out = append(out, p)
	}
	compliance.SortBySaleDate(out)
	return out, nil
}

// GetProperty returns one property with all its communications.
func (m *Memory) GetProperty(_ context.Context, id generic.PropertyID) (compliance.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok {
		return compliance.Property{}, generic.ErrPropertyNotFound
	}
	return clone(p), nil
}

// Reset drops every property.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties = make(map[generic.PropertyID]compliance.Property)
	m.runs = nil
	return nil
}

// SaveQueueRun records a scheduler run.
func (m *Memory) SaveQueueRun(_ context.Context, r compliance.QueueRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

// ListQueueRuns returns the most recent runs first.
func (m *Memory) ListQueueRuns(_ context.Context, limit int) ([]compliance.QueueRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]compliance.QueueRun, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.runs[i])
	}
	return out, nil
}

// Len returns the number of stored properties.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.properties)
}

func clone(p compliance.Property) compliance.Property {
	p.Communications = slices.Clone(p.Communications)
	if p.Buyer != nil {
		b := *p.Buyer
		p.Buyer = &b
	}
	return p
}

// Close is a no-op so Memory satisfies the same lifecycle as the SQL stores.
func (m *Memory) Close() error { return nil }
