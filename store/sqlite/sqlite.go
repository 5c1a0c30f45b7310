/*
Package sqlite provides a SQLite-backed property cache for the compliance engine.

PURPOSE:
  Holds a local copy of the system-of-record tables the engine reads
  (properties, buyers, communications) plus the queue runs recorded by the
  scheduler. The engine only reads properties; writes come from imports,
  seeding and demo scenarios.

INTERFACES IMPLEMENTED:
  compliance.PropertyStore:  Bulk and single property reads
  compliance.PropertyWriter: Upserts from loaders
  compliance.RunStore:       Scheduler run history

KEY TABLES:
  properties:     One row per parcel sold under a program
  buyers:         Purchaser of record (one per property)
  communications: Outreach events, any status
  queue_runs:     Due-now snapshots recorded by the scheduler

INDEXES:
  - idx_properties_program_sold: Program filter + sale-date ordering (hot path)
  - idx_properties_status:       Exceptions exclude closed files
  - idx_communications_property: Grouping outreach per property

DATES:
  Stored as RFC 3339 text in UTC, so lexical order is chronological. A
  sale date that fails to parse is read back as NULL; the timing resolver
  then reports the property on its error channel instead of failing the
  whole queue.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Reads share the lock, loaders take
  it exclusively.

USAGE:
  store, err := sqlite.New("./data/landbank.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := compliance.NewService(store, logger)

SEE ALSO:
  - compliance/store.go: Interface definitions
  - compliance/store/memory.go: In-memory implementation for testing
  - store/postgres: Same contract on Postgres
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

// Store implements the compliance storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Buyers
	CREATE TABLE IF NOT EXISTS buyers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT,
		created_at TEXT NOT NULL
	);

	-- Properties (read-mostly copy of the system of record)
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		parcel_id TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		program_type TEXT NOT NULL DEFAULT '',
		date_sold TEXT,
		compliance_1st_attempt TEXT,
		compliance_2nd_attempt TEXT,
		last_contact_date TEXT,
		enforcement_level INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		buyer_id TEXT REFERENCES buyers(id),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_properties_program_sold
		ON properties(program_type, date_sold);
	CREATE INDEX IF NOT EXISTS idx_properties_status
		ON properties(status);

	-- Communications (outreach log)
	CREATE TABLE IF NOT EXISTS communications (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		action TEXT NOT NULL,
		status TEXT NOT NULL,
		sent_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_communications_property
		ON communications(property_id, status);

	-- Queue runs (scheduler snapshots)
	CREATE TABLE IF NOT EXISTS queue_runs (
		id TEXT PRIMARY KEY,
		as_of TEXT NOT NULL,
		status TEXT NOT NULL,
		queue_count INTEGER NOT NULL DEFAULT 0,
		due_now_count INTEGER NOT NULL DEFAULT 0,
		skipped_count INTEGER NOT NULL DEFAULT 0,
		max_days_overdue INTEGER NOT NULL DEFAULT 0,
		total_penalty TEXT NOT NULL DEFAULT '0',
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queue_runs_started
		ON queue_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROPERTY STORE (compliance.PropertyStore interface)
// =============================================================================

const propertyColumns = `
	p.id, p.parcel_id, p.address, p.program_type, p.date_sold,
	p.compliance_1st_attempt, p.compliance_2nd_attempt, p.last_contact_date,
	p.enforcement_level, p.status, b.id, b.name, b.email
`

// FindProperties returns matching properties with buyer and communications,
// ordered by sale date ascending (undated last).
func (s *Store) FindProperties(ctx context.Context, q compliance.PropertyQuery) ([]compliance.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if q.Program != "" {
		where = append(where, "p.program_type = ?")
		args = append(args, q.Program)
	}
	if len(q.ExcludeStatuses) > 0 {
		where = append(where, "p.status NOT IN ("+placeholders(len(q.ExcludeStatuses))+")")
		for _, st := range q.ExcludeStatuses {
			args = append(args, st)
		}
	}

	query := `SELECT ` + propertyColumns + `
		FROM properties p
		LEFT JOIN buyers b ON b.id = p.buyer_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY p.date_sold IS NULL, p.date_sold ASC, p.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	var props []compliance.Property
	index := make(map[generic.PropertyID]int)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(props)
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	comms, err := s.loadCommunications(ctx, "", q.CommunicationStatus)
	if err != nil {
		return nil, err
	}
	for _, c := range comms {
		if i, ok := index[c.PropertyID]; ok {
			props[i].Communications = append(props[i].Communications, c)
		}
	}

	return props, nil
}

// GetProperty returns one property with all its communications.
func (s *Store) GetProperty(ctx context.Context, id generic.PropertyID) (compliance.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + propertyColumns + `
		FROM properties p
		LEFT JOIN buyers b ON b.id = p.buyer_id
		WHERE p.id = ?`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return compliance.Property{}, fmt.Errorf("failed to query property: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return compliance.Property{}, err
		}
		return compliance.Property{}, generic.ErrPropertyNotFound
	}
	p, err := scanProperty(rows)
	if err != nil {
		return compliance.Property{}, err
	}
	rows.Close()

	p.Communications, err = s.loadCommunications(ctx, id, "")
	if err != nil {
		return compliance.Property{}, err
	}
	return p, nil
}

func (s *Store) loadCommunications(ctx context.Context, id generic.PropertyID, status compliance.CommunicationStatus) ([]compliance.Communication, error) {
	query := `SELECT id, property_id, action, status, sent_at FROM communications`
	var where []string
	var args []any
	if id != "" {
		where = append(where, "property_id = ?")
		args = append(args, id)
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sent_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query communications: %w", err)
	}
	defer rows.Close()

	var comms []compliance.Communication
	for rows.Next() {
		var c compliance.Communication
		var sentAt sql.NullString
		if err := rows.Scan(&c.ID, &c.PropertyID, &c.Action, &c.Status, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan communication: %w", err)
		}
		c.SentAt = parseNullTime(sentAt)
		comms = append(comms, c)
	}
	return comms, rows.Err()
}

func scanProperty(rows *sql.Rows) (compliance.Property, error) {
	var p compliance.Property
	var dateSold, first, second, lastContact sql.NullString
	var buyerID, buyerName, buyerEmail sql.NullString

	err := rows.Scan(
		&p.ID, &p.ParcelID, &p.Address, &p.ProgramType, &dateSold,
		&first, &second, &lastContact,
		&p.EnforcementLevel, &p.Status, &buyerID, &buyerName, &buyerEmail,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan property: %w", err)
	}

	p.DateSold = parseNullTime(dateSold)
	p.Compliance1stAttempt = parseNullTime(first)
	p.Compliance2ndAttempt = parseNullTime(second)
	p.LastContactDate = parseNullTime(lastContact)
	if buyerID.Valid {
		p.Buyer = &compliance.Buyer{ID: buyerID.String, Name: buyerName.String, Email: buyerEmail.String}
	}
	return p, nil
}

// =============================================================================
// PROPERTY WRITER (loaders only)
// =============================================================================

// SaveProperty upserts a property, its buyer, and replaces its communications
// in one transaction.
func (s *Store) SaveProperty(ctx context.Context, p compliance.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	var buyerID sql.NullString
	if p.Buyer != nil {
		bid := p.Buyer.ID
		if bid == "" {
			bid = "buyer-" + string(p.ID)
		}
		buyerID = nullString(bid)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO buyers (id, name, email, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email
		`, bid, p.Buyer.Name, nullString(p.Buyer.Email), now)
		if err != nil {
			return fmt.Errorf("failed to save buyer: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO properties (id, parcel_id, address, program_type, date_sold,
			compliance_1st_attempt, compliance_2nd_attempt, last_contact_date,
			enforcement_level, status, buyer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parcel_id = excluded.parcel_id,
			address = excluded.address,
			program_type = excluded.program_type,
			date_sold = excluded.date_sold,
			compliance_1st_attempt = excluded.compliance_1st_attempt,
			compliance_2nd_attempt = excluded.compliance_2nd_attempt,
			last_contact_date = excluded.last_contact_date,
			enforcement_level = excluded.enforcement_level,
			status = excluded.status,
			buyer_id = excluded.buyer_id,
			updated_at = excluded.updated_at
	`,
		p.ID, p.ParcelID, p.Address, p.ProgramType, formatNullTime(p.DateSold),
		formatNullTime(p.Compliance1stAttempt), formatNullTime(p.Compliance2ndAttempt),
		formatNullTime(p.LastContactDate), p.EnforcementLevel, statusOrActive(p.Status),
		buyerID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM communications WHERE property_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to clear communications: %w", err)
	}
	for _, c := range p.Communications {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO communications (id, property_id, action, status, sent_at)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, p.ID, c.Action, c.Status, formatNullTime(c.SentAt))
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("communication %s already belongs to another property: %w", c.ID, err)
			}
			return fmt.Errorf("failed to save communication: %w", err)
		}
	}

	return tx.Commit()
}

// SetRawSaleDate stores an arbitrary sale date string, bypassing the type
// system. Mirrors dirty rows arriving from the sync bridge.
func (s *Store) SetRawSaleDate(ctx context.Context, id generic.PropertyID, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "UPDATE properties SET date_sold = ? WHERE id = ?", raw, id)
	return err
}

// =============================================================================
// RUN STORE (compliance.RunStore interface)
// =============================================================================

// SaveQueueRun records a scheduler run.
func (s *Store) SaveQueueRun(ctx context.Context, r compliance.QueueRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO queue_runs (id, as_of, status, queue_count, due_now_count, skipped_count,
			max_days_overdue, total_penalty, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.AsOf.String(), r.Status, r.QueueCount, r.DueNowCount, r.SkippedCount,
		r.MaxDaysOverdue, r.TotalPenalty.Value.String(), nullString(r.Error),
		r.StartedAt.UTC().Format(time.RFC3339), r.CompletedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save queue run: %w", err)
	}
	return nil
}

// ListQueueRuns returns recent runs, newest first.
func (s *Store) ListQueueRuns(ctx context.Context, limit int) ([]compliance.QueueRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, as_of, status, queue_count, due_now_count, skipped_count,
			max_days_overdue, total_penalty, error, started_at, completed_at
		FROM queue_runs
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue runs: %w", err)
	}
	defer rows.Close()

	runs := make([]compliance.QueueRun, 0)
	for rows.Next() {
		var r compliance.QueueRun
		var asOf, penalty, startedAt, completedAt string
		var runErr sql.NullString
		if err := rows.Scan(
			&r.ID, &asOf, &r.Status, &r.QueueCount, &r.DueNowCount, &r.SkippedCount,
			&r.MaxDaysOverdue, &penalty, &runErr, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}
		r.AsOf, _ = generic.ParseDate(asOf)
		r.TotalPenalty = generic.Amount{Value: generic.MustParseDecimal(penalty), Unit: generic.UnitUSD}
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		r.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"communications", "properties", "buyers", "queue_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// CountProperties returns the number of cached properties.
func (s *Store) CountProperties(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM properties").Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return nullString(t.UTC().Format(time.RFC3339))
}

// parseNullTime accepts RFC 3339 or a bare date; anything else reads as NULL.
func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, ns.String); err == nil {
		return &t
	}
	if tp, err := generic.ParseDate(ns.String); err == nil {
		return &tp.Time
	}
	return nil
}

func statusOrActive(s string) string {
	if s == "" {
		return "active"
	}
	return s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
