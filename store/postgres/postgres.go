/*
Package postgres provides a Postgres-backed property store.

PURPOSE:
  Same contract as store/sqlite for deployments that read the land-bank
  tables straight from the shared Postgres database.

MIGRATIONS:
  Versioned SQL files under migrations/ are embedded in the binary and
  applied with golang-migrate on Open (iofs source, postgres driver).

CONCURRENCY:
  No application lock. The database/sql pool and Postgres MVCC handle
  concurrent readers.

USAGE:
  store, err := postgres.Open(ctx, os.Getenv("LANDBANK_DATABASE_URL"))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlite: Local cache with the same contract
  - compliance/store.go: Interface definitions
*/
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements the compliance storage interfaces on Postgres.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, verifies the connection and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: empty DSN: %w", generic.ErrStoreUnavailable)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w: %w", generic.ErrStoreUnavailable, err)
	}

	store := &Store{db: db}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate applies every pending embedded migration.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(s.db, &migratepg.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create the postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// PROPERTY STORE
// =============================================================================

const propertyColumns = `
	p.id, p.parcel_id, p.address, p.program_type, p.date_sold,
	p.compliance_1st_attempt, p.compliance_2nd_attempt, p.last_contact_date,
	p.enforcement_level, p.status, b.id, b.name, b.email
`

// FindProperties returns matching properties ordered by sale date ascending.
func (s *Store) FindProperties(ctx context.Context, q compliance.PropertyQuery) ([]compliance.Property, error) {
	var where []string
	var args []any
	if q.Program != "" {
		args = append(args, q.Program)
		where = append(where, "p.program_type = $"+strconv.Itoa(len(args)))
	}
	if len(q.ExcludeStatuses) > 0 {
		args = append(args, pq.Array(q.ExcludeStatuses))
		where = append(where, "NOT (p.status = ANY($"+strconv.Itoa(len(args))+"))")
	}

	query := `SELECT ` + propertyColumns + `
		FROM properties p
		LEFT JOIN buyers b ON b.id = p.buyer_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.date_sold ASC NULLS LAST, p.id ASC"

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
	if len(props) == 0 {
		return props, nil
	}

	ids := make([]string, len(props))
	for i, p := range props {
		ids[i] = string(p.ID)
	}
	comms, err := s.loadCommunications(ctx, ids, q.CommunicationStatus)
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
	query := `SELECT ` + propertyColumns + `
		FROM properties p
		LEFT JOIN buyers b ON b.id = p.buyer_id
		WHERE p.id = $1`

	rows, err := s.db.QueryContext(ctx, query, string(id))
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

	p.Communications, err = s.loadCommunications(ctx, []string{string(id)}, "")
	if err != nil {
		return compliance.Property{}, err
	}
	return p, nil
}

func (s *Store) loadCommunications(ctx context.Context, ids []string, status compliance.CommunicationStatus) ([]compliance.Communication, error) {
	query := `SELECT id, property_id, action, status, sent_at
		FROM communications
		WHERE property_id = ANY($1)`
	args := []any{pq.Array(ids)}
	if status != "" {
		query += " AND status = $2"
		args = append(args, string(status))
	}
	query += " ORDER BY sent_at ASC NULLS LAST, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query communications: %w", err)
	}
	defer rows.Close()

	var comms []compliance.Communication
	for rows.Next() {
		var c compliance.Communication
		var sentAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.PropertyID, &c.Action, &c.Status, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan communication: %w", err)
		}
		c.SentAt = timePtr(sentAt)
		comms = append(comms, c)
	}
	return comms, rows.Err()
}

func scanProperty(rows *sql.Rows) (compliance.Property, error) {
	var p compliance.Property
	var dateSold, first, second, lastContact sql.NullTime
	var buyerID, buyerName, buyerEmail sql.NullString

	err := rows.Scan(
		&p.ID, &p.ParcelID, &p.Address, &p.ProgramType, &dateSold,
		&first, &second, &lastContact,
		&p.EnforcementLevel, &p.Status, &buyerID, &buyerName, &buyerEmail,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan property: %w", err)
	}

	p.DateSold = timePtr(dateSold)
	p.Compliance1stAttempt = timePtr(first)
	p.Compliance2ndAttempt = timePtr(second)
	p.LastContactDate = timePtr(lastContact)
	if buyerID.Valid {
		p.Buyer = &compliance.Buyer{ID: buyerID.String, Name: buyerName.String, Email: buyerEmail.String}
	}
	return p, nil
}

// =============================================================================
// PROPERTY WRITER
// =============================================================================

// SaveProperty upserts a property, its buyer, and replaces its communications.
func (s *Store) SaveProperty(ctx context.Context, p compliance.Property) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var buyerID sql.NullString
	if p.Buyer != nil {
		bid := p.Buyer.ID
		if bid == "" {
			bid = "buyer-" + string(p.ID)
		}
		buyerID = sql.NullString{String: bid, Valid: true}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO buyers (id, name, email) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email
		`, bid, p.Buyer.Name, nullString(p.Buyer.Email))
		if err != nil {
			return fmt.Errorf("failed to save buyer: %w", err)
		}
	}

	status := p.Status
	if status == "" {
		status = "active"
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO properties (id, parcel_id, address, program_type, date_sold,
			compliance_1st_attempt, compliance_2nd_attempt, last_contact_date,
			enforcement_level, status, buyer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			parcel_id = EXCLUDED.parcel_id,
			address = EXCLUDED.address,
			program_type = EXCLUDED.program_type,
			date_sold = EXCLUDED.date_sold,
			compliance_1st_attempt = EXCLUDED.compliance_1st_attempt,
			compliance_2nd_attempt = EXCLUDED.compliance_2nd_attempt,
			last_contact_date = EXCLUDED.last_contact_date,
			enforcement_level = EXCLUDED.enforcement_level,
			status = EXCLUDED.status,
			buyer_id = EXCLUDED.buyer_id,
			updated_at = now()
	`,
		string(p.ID), string(p.ParcelID), p.Address, p.ProgramType, nullTime(p.DateSold),
		nullTime(p.Compliance1stAttempt), nullTime(p.Compliance2ndAttempt), nullTime(p.LastContactDate),
		p.EnforcementLevel, status, buyerID,
	)
	if err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM communications WHERE property_id = $1", string(p.ID)); err != nil {
		return fmt.Errorf("failed to clear communications: %w", err)
	}
	for _, c := range p.Communications {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO communications (id, property_id, action, status, sent_at)
			VALUES ($1, $2, $3, $4, $5)
		`, c.ID, string(p.ID), string(c.Action), string(c.Status), nullTime(c.SentAt))
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return fmt.Errorf("communication %s already belongs to another property: %w", c.ID, err)
			}
			return fmt.Errorf("failed to save communication: %w", err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// RUN STORE
// =============================================================================

// SaveQueueRun records a scheduler run.
func (s *Store) SaveQueueRun(ctx context.Context, r compliance.QueueRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queue_runs (id, as_of, status, queue_count, due_now_count, skipped_count,
			max_days_overdue, total_penalty, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		r.ID, r.AsOf.Time, r.Status, r.QueueCount, r.DueNowCount, r.SkippedCount,
		r.MaxDaysOverdue, r.TotalPenalty.Value.String(), nullString(r.Error),
		r.StartedAt, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save queue run: %w", err)
	}
	return nil
}

// ListQueueRuns returns recent runs, newest first.
func (s *Store) ListQueueRuns(ctx context.Context, limit int) ([]compliance.QueueRun, error) {
	query := `
		SELECT id, as_of, status, queue_count, due_now_count, skipped_count,
			max_days_overdue, total_penalty::text, error, started_at, completed_at
		FROM queue_runs
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
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
		var asOf time.Time
		var penalty string
		var runErr sql.NullString
		if err := rows.Scan(
			&r.ID, &asOf, &r.Status, &r.QueueCount, &r.DueNowCount, &r.SkippedCount,
			&r.MaxDaysOverdue, &penalty, &runErr, &r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, err
		}
		r.AsOf = generic.FromTime(asOf)
		r.TotalPenalty = generic.Amount{Value: generic.MustParseDecimal(penalty), Unit: generic.UnitUSD}
		r.Error = runErr.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE communications, properties, buyers, queue_runs")
	return err
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
