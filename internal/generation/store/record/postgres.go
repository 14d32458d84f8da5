package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"atomfleet/internal/generation"
	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
	txcontext "atomfleet/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists the generation ledger. Uniqueness of (unit, year)
// rides on the table's composite unique constraint, so concurrent duplicate
// inserts resolve to exactly one winner.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

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

func (s *PostgresStore) CreateIfYearAvailable(ctx context.Context, rec *generation.GenerationRecord) error {
	query := `
		INSERT INTO generation_records (id, unit_id, year, net_generation_mwh, reference_capacity_mw, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		rec.ID, uuid.UUID(rec.UnitID), rec.Year,
		rec.NetGenerationMWh, rec.ReferenceCapacityMW, rec.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert generation record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUnitYear(ctx context.Context, unitID id.UnitID, year int) (*generation.GenerationRecord, error) {
	query := `
		SELECT id, unit_id, year, net_generation_mwh, reference_capacity_mw, created_at
		FROM generation_records
		WHERE unit_id = $1 AND year = $2
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(unitID), year)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find generation record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByUnit(ctx context.Context, unitID id.UnitID) ([]generation.GenerationRecord, error) {
	query := `
		SELECT id, unit_id, year, net_generation_mwh, reference_capacity_mw, created_at
		FROM generation_records
		WHERE unit_id = $1
		ORDER BY year
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(unitID))
	if err != nil {
		return nil, fmt.Errorf("list generation records: %w", err)
	}
	defer rows.Close()

	var out []generation.GenerationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generation records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*generation.GenerationRecord, error) {
	var (
		rec    generation.GenerationRecord
		unitID uuid.UUID
		refCap sql.NullFloat64
	)
	if err := row.Scan(&rec.ID, &unitID, &rec.Year, &rec.NetGenerationMWh, &refCap, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.UnitID = id.UnitID(unitID)
	if refCap.Valid {
		rec.ReferenceCapacityMW = &refCap.Float64
	}
	return &rec, nil
}
