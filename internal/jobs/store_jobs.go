package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var jobColumns = []string{"id", "owner", "isbn", "status", "failure_reason", "created_at", "updated_at"}

// Create inserts a new job at validating_isbn.
func (s *Store) Create(ctx context.Context, owner, isbn string) (*Job, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execBuilder(ctx, s.sb.Insert("jobs").
		Columns("owner", "isbn", "status", "created_at", "updated_at").
		Values(owner, isbn, string(StatusValidatingISBN), timestamp, timestamp))
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a job by identifier.
func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	query, args, err := s.sb.Select(jobColumns...).From("jobs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	job, err := scanJob(s.db.QueryRowContext(ensureContext(ctx), query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs matching filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Job, error) {
	builder := s.sb.Select(jobColumns...).From("jobs").OrderBy("created_at DESC", "id DESC")
	builder = applyFilter(builder, filter)
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// ApplyFilter adds filter constraints to a job select. Shared with the
// PostgreSQL store so both backends page identically.
func ApplyFilter(builder sq.SelectBuilder, filter Filter) sq.SelectBuilder {
	return applyFilter(builder, filter)
}

func applyFilter(builder sq.SelectBuilder, filter Filter) sq.SelectBuilder {
	if filter.Owner != "" {
		builder = builder.Where(sq.Eq{"owner": filter.Owner})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
		if filter.Offset > 0 {
			builder = builder.Offset(uint64(filter.Offset))
		}
	}
	return builder
}

// Stats returns job counts keyed by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	query, args, err := s.sb.Select("status", "COUNT(*)").From("jobs").GroupBy("status").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Transition moves a job to status to if its current status is an allowed
// predecessor. The check and the write are a single UPDATE.
func (s *Store) Transition(ctx context.Context, id int64, to Status) error {
	return s.transition(ctx, id, to, "")
}

// Fail moves a non-terminal job to failed and records a reason code.
func (s *Store) Fail(ctx context.Context, id int64, reason string) error {
	return s.transition(ctx, id, StatusFailed, reason)
}

func (s *Store) transition(ctx context.Context, id int64, to Status, reason string) error {
	preds := PredecessorStrings(to)
	if len(preds) > 0 {
		update := s.sb.Update("jobs").
			Set("status", string(to)).
			Set("updated_at", time.Now().UTC().Format(time.RFC3339Nano)).
			Where(sq.Eq{"id": id, "status": preds})
		if to == StatusFailed {
			update = update.Set("failure_reason", nullableString(reason))
		}
		res, err := s.execBuilder(ctx, update)
		if err != nil {
			return fmt.Errorf("transition job %d to %s: %w", id, to, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 1 {
			return nil
		}
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return &TransitionError{ID: id, Current: current.Status, To: to}
}
