package interval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"atomfleet/internal/history"
	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
	txcontext "atomfleet/pkg/platform/tx"
)

// PostgresStore persists the interval ledger. A partial unique index on
// (unit_id) WHERE valid_to IS NULL backs the single-open-interval
// invariant at the storage layer too.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, interval *history.StatusInterval) error {
	query := `
		INSERT INTO status_intervals (id, unit_id, status, valid_from, valid_to, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		interval.ID,
		uuid.UUID(interval.UnitID),
		string(interval.Status),
		interval.ValidFrom,
		interval.ValidTo,
		interval.Note,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert status interval: %w", err)
	}
	return nil
}

func (s *PostgresStore) CloseOpen(ctx context.Context, unitID id.UnitID, at time.Time) (*history.StatusInterval, error) {
	query := `
		UPDATE status_intervals
		SET valid_to = $2
		WHERE unit_id = $1 AND valid_to IS NULL
		RETURNING id, unit_id, status, valid_from, valid_to, note
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(unitID), at)
	interval, err := scanInterval(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("close open interval: %w", err)
	}
	return interval, nil
}

func (s *PostgresStore) FindOpen(ctx context.Context, unitID id.UnitID) (*history.StatusInterval, error) {
	query := `
		SELECT id, unit_id, status, valid_from, valid_to, note
		FROM status_intervals
		WHERE unit_id = $1 AND valid_to IS NULL
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(unitID))
	interval, err := scanInterval(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find open interval: %w", err)
	}
	return interval, nil
}

func (s *PostgresStore) ListByUnit(ctx context.Context, unitID id.UnitID) ([]history.StatusInterval, error) {
	query := `
		SELECT id, unit_id, status, valid_from, valid_to, note
		FROM status_intervals
		WHERE unit_id = $1
		ORDER BY valid_from, valid_to NULLS LAST
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(unitID))
	if err != nil {
		return nil, fmt.Errorf("list status intervals: %w", err)
	}
	defer rows.Close()

	var out []history.StatusInterval
	for rows.Next() {
		interval, err := scanInterval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status interval: %w", err)
		}
		out = append(out, *interval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status intervals: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterval(row rowScanner) (*history.StatusInterval, error) {
	var (
		interval history.StatusInterval
		unitID   uuid.UUID
		status   string
		validTo  sql.NullTime
	)
	if err := row.Scan(&interval.ID, &unitID, &status, &interval.ValidFrom, &validTo, &interval.Note); err != nil {
		return nil, err
	}
	interval.UnitID = id.UnitID(unitID)
	interval.Status = models.UnitStatus(status)
	if validTo.Valid {
		t := validTo.Time
		interval.ValidTo = &t
	}
	return &interval, nil
}
