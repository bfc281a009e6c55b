package broker

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IyadElwy/AiBookSummarizer/internal/config"
	"github.com/IyadElwy/AiBookSummarizer/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

var (
	// ErrSchemaMismatch indicates the broker database was created by an incompatible version.
	ErrSchemaMismatch = errors.New("broker schema version mismatch")
	// ErrLeaseLost is returned when a lease expired and another consumer took the message.
	ErrLeaseLost = errors.New("message lease lost")
)

// Options controls lease and redelivery timing.
type Options struct {
	VisibilityTimeout time.Duration
	RetryDelay        time.Duration
	MaxDeliveries     int
}

// Store is a SQLite-backed message broker.
type Store struct {
	db   *sql.DB
	path string
	opts Options
	now  func() time.Time
}

// OptionsFromConfig converts broker config into Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		VisibilityTimeout: time.Duration(cfg.Broker.VisibilityTimeout) * time.Second,
		RetryDelay:        time.Duration(cfg.Broker.RetryDelay) * time.Second,
		MaxDeliveries:     cfg.Broker.MaxDeliveries,
	}
}

// Open opens the broker database configured in cfg.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.BrokerDBPath(), OptionsFromConfig(cfg))
}

// OpenPath opens a broker database at an explicit path.
func OpenPath(path string, opts Options) (*Store, error) {
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = 2 * time.Minute
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 5
	}
	db, err := sqlitedb.Open(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path, opts: opts, now: time.Now}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock overrides the time source. Tests use it to expire leases.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return sqlitedb.RetryOnBusy(ctx, func() error { return s.createSchema(ctx) })
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate it)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var rows int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_version").Scan(&rows); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if rows == 0 {
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) millis(t time.Time) int64 { return t.UTC().UnixMilli() }

// Publish encodes payload as JSON and enqueues it on topic.
func (s *Store) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}
	now := s.millis(s.now())
	if _, err := sqlitedb.Exec(ctx, s.db,
		`INSERT INTO messages (topic, payload, attempts, available_at, created_at) VALUES (?, ?, 0, ?, ?)`,
		topic, data, now, now,
	); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Receive leases the oldest available message on topic. It returns nil when
// nothing is available.
func (s *Store) Receive(ctx context.Context, topic string) (*Message, error) {
	for attempt := 0; attempt < 5; attempt++ {
		now := s.now()
		nowMillis := s.millis(now)

		if _, err := sqlitedb.Exec(ctx, s.db,
			`UPDATE messages SET dead = 1, lease_token = NULL, leased_until = NULL
             WHERE topic = ? AND dead = 0 AND attempts >= ? AND available_at <= ?
               AND (leased_until IS NULL OR leased_until < ?)`,
			topic, s.opts.MaxDeliveries, nowMillis, nowMillis,
		); err != nil {
			return nil, fmt.Errorf("dead-letter %s: %w", topic, err)
		}

		var id int64
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM messages
             WHERE topic = ? AND dead = 0 AND available_at <= ?
               AND (leased_until IS NULL OR leased_until < ?)
             ORDER BY id LIMIT 1`,
			topic, nowMillis, nowMillis,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select %s message: %w", topic, err)
		}

		token := uuid.NewString()
		leasedUntil := now.Add(s.opts.VisibilityTimeout)
		res, err := sqlitedb.Exec(ctx, s.db,
			`UPDATE messages SET lease_token = ?, leased_until = ?, attempts = attempts + 1
             WHERE id = ? AND dead = 0 AND (leased_until IS NULL OR leased_until < ?)`,
			token, s.millis(leasedUntil), id, nowMillis,
		)
		if err != nil {
			return nil, fmt.Errorf("lease message %d: %w", id, err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			continue
		}

		msg := &Message{ID: id, Topic: topic, LeaseToken: token}
		var leasedMillis, createdMillis int64
		if err := s.db.QueryRowContext(ctx,
			`SELECT payload, attempts, leased_until, created_at FROM messages WHERE id = ?`, id,
		).Scan(&msg.Payload, &msg.Attempts, &leasedMillis, &createdMillis); err != nil {
			return nil, fmt.Errorf("read message %d: %w", id, err)
		}
		msg.LeasedUntil = time.UnixMilli(leasedMillis).UTC()
		msg.CreatedAt = time.UnixMilli(createdMillis).UTC()
		return msg, nil
	}
	return nil, nil
}

// Ack removes a message the caller holds the lease for.
func (s *Store) Ack(ctx context.Context, msg *Message) error {
	res, err := sqlitedb.Exec(ctx, s.db, `DELETE FROM messages WHERE id = ? AND lease_token = ?`, msg.ID, msg.LeaseToken)
	if err != nil {
		return fmt.Errorf("ack message %d: %w", msg.ID, err)
	}
	return leaseHeld(res, msg)
}

// Nack releases the lease so the message is redelivered after the retry delay.
func (s *Store) Nack(ctx context.Context, msg *Message, cause error) error {
	var lastError any
	if cause != nil {
		lastError = cause.Error()
	}
	res, err := sqlitedb.Exec(ctx, s.db,
		`UPDATE messages SET lease_token = NULL, leased_until = NULL, available_at = ?, last_error = ?
         WHERE id = ? AND lease_token = ?`,
		s.millis(s.now().Add(s.opts.RetryDelay)), lastError, msg.ID, msg.LeaseToken,
	)
	if err != nil {
		return fmt.Errorf("nack message %d: %w", msg.ID, err)
	}
	return leaseHeld(res, msg)
}

// ExtendLease pushes the lease deadline out by another visibility timeout.
func (s *Store) ExtendLease(ctx context.Context, msg *Message) error {
	leasedUntil := s.now().Add(s.opts.VisibilityTimeout)
	res, err := sqlitedb.Exec(ctx, s.db,
		`UPDATE messages SET leased_until = ? WHERE id = ? AND lease_token = ?`,
		s.millis(leasedUntil), msg.ID, msg.LeaseToken,
	)
	if err != nil {
		return fmt.Errorf("extend lease %d: %w", msg.ID, err)
	}
	if err := leaseHeld(res, msg); err != nil {
		return err
	}
	msg.LeasedUntil = leasedUntil.UTC()
	return nil
}

func leaseHeld(res sql.Result, msg *Message) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("message %d: %w", msg.ID, ErrLeaseLost)
	}
	return nil
}

// Stats returns per-topic ready, leased and dead counts.
func (s *Store) Stats(ctx context.Context) (map[string]TopicStats, error) {
	nowMillis := s.millis(s.now())
	rows, err := s.db.QueryContext(ctx, `
        SELECT topic,
               SUM(CASE WHEN dead = 0 AND (leased_until IS NULL OR leased_until < ?) THEN 1 ELSE 0 END),
               SUM(CASE WHEN dead = 0 AND leased_until >= ? THEN 1 ELSE 0 END),
               SUM(CASE WHEN dead = 1 THEN 1 ELSE 0 END)
        FROM messages GROUP BY topic`, nowMillis, nowMillis)
	if err != nil {
		return nil, fmt.Errorf("broker stats: %w", err)
	}
	defer rows.Close()

	out := map[string]TopicStats{}
	for rows.Next() {
		var (
			topic string
			stats TopicStats
		)
		if err := rows.Scan(&topic, &stats.Ready, &stats.Leased, &stats.Dead); err != nil {
			return nil, fmt.Errorf("scan broker stats: %w", err)
		}
		out[topic] = stats
	}
	return out, rows.Err()
}
