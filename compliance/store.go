/*
store.go - Read interface to the property system of record

PURPOSE:
  The engine never writes compliance state. It reads properties with their
  buyer and communications in one bulk query per request and computes
  everything else in memory.

KEY INTERFACES:
  PropertyStore: bulk fetch + single fetch
  PropertyWriter: upsert used by imports, seeding and demo scenarios

ORDERING:
  FindProperties returns properties ordered by sale date ascending, nulls
  last, then ID. The aggregators sort stably, so ties keep this order.

IMPLEMENTATIONS:
  - compliance/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite property cache
  - store/postgres/postgres.go: Postgres property cache

SEE ALSO:
  - service.go: Fetch + aggregate
*/
package compliance

import (
	"context"
	"slices"
	"strings"

	"github.com/landbank/compliance-engine/generic"
)

// PropertyQuery filters a bulk property read.
type PropertyQuery struct {
	// Program keeps only this program when set.
	Program string
	// ExcludeStatuses drops properties in any of these statuses.
	ExcludeStatuses []string
	// CommunicationStatus keeps only communications in this status when set.
	CommunicationStatus CommunicationStatus
}

// PropertyStore reads properties with their buyer and communications.
type PropertyStore interface {
	// FindProperties returns matching properties ordered by sale date.
	FindProperties(ctx context.Context, q PropertyQuery) ([]Property, error)

	// GetProperty returns one property or generic.ErrPropertyNotFound.
	GetProperty(ctx context.Context, id generic.PropertyID) (Property, error)
}

// PropertyWriter persists properties. Used by loaders, never by the engine.
type PropertyWriter interface {
	SaveProperty(ctx context.Context, p Property) error
}

// Matches reports whether p passes the query's property filters.
func (q PropertyQuery) Matches(p Property) bool {
	if q.Program != "" && p.ProgramType != q.Program {
		return false
	}
	return !slices.Contains(q.ExcludeStatuses, p.Status)
}

// FilterCommunications applies the query's communication status filter.
func (q PropertyQuery) FilterCommunications(comms []Communication) []Communication {
	if q.CommunicationStatus == "" {
		return slices.Clone(comms)
	}
	out := make([]Communication, 0, len(comms))
	for _, c := range comms {
		if c.Status == q.CommunicationStatus {
			out = append(out, c)
		}
	}
	return out
}

// SortBySaleDate orders properties by sale date ascending, undated last,
// then by ID.
func SortBySaleDate(props []Property) {
	slices.SortStableFunc(props, func(a, b Property) int {
		switch {
		case a.DateSold == nil && b.DateSold == nil:
		case a.DateSold == nil:
			return 1
		case b.DateSold == nil:
			return -1
		default:
			if c := a.DateSold.Compare(*b.DateSold); c != 0 {
				return c
			}
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
}
