package unit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
	txcontext "atomfleet/pkg/platform/tx"
)

// uniqueViolation is the postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// PostgresStore persists unit projections. Name uniqueness within a site
// rides on a unique index over (site_id, lower(name)).
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

const unitColumns = `
	id, site_id, design_id, operator_id, owner_id, name,
	thermal_power_mw, gross_power_mw, net_power_mw, design_life_years,
	construction_start, first_criticality, grid_connection,
	commercial_operation, permanent_shutdown,
	status, created_at, updated_at
`

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, u *models.Unit) error {
	query := `
		INSERT INTO units (` + unitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(u.ID), uuid.UUID(u.SiteID), uuid.UUID(u.DesignID),
		uuid.UUID(u.OperatorID), uuid.UUID(u.OwnerID), u.Name,
		u.ThermalPowerMW, u.GrossPowerMW, u.NetPowerMW, u.DesignLifeYears,
		u.ConstructionStart, u.FirstCriticality, u.GridConnection,
		u.CommercialOperation, u.PermanentShutdown,
		string(u.Status), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, unitID id.UnitID) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(unitID))
	u, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find unit: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.Unit) error {
	query := `
		UPDATE units SET
			name = $2,
			thermal_power_mw = $3, gross_power_mw = $4, net_power_mw = $5,
			design_life_years = $6,
			construction_start = $7, first_criticality = $8, grid_connection = $9,
			commercial_operation = $10, permanent_shutdown = $11,
			status = $12, updated_at = $13
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Name,
		u.ThermalPowerMW, u.GrossPowerMW, u.NetPowerMW, u.DesignLifeYears,
		u.ConstructionStart, u.FirstCriticality, u.GridConnection,
		u.CommercialOperation, u.PermanentShutdown,
		string(u.Status), u.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update unit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update unit rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units ORDER BY name, id`
	return s.queryUnits(ctx, query)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.UnitStatus) ([]models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE status = $1 ORDER BY name, id`
	return s.queryUnits(ctx, query, string(status))
}

func (s *PostgresStore) queryUnits(ctx context.Context, query string, args ...any) ([]models.Unit, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (*models.Unit, error) {
	var (
		u                                     models.Unit
		unitID, siteID, designID, opID, ownID uuid.UUID
		status                                string
		conStart, firstCrit, gridConn, comOp  sql.NullTime
		permShutdown                          sql.NullTime
		thermal, gross, net                   sql.NullFloat64
		designLife                            sql.NullInt64
	)
	err := row.Scan(
		&unitID, &siteID, &designID, &opID, &ownID, &u.Name,
		&thermal, &gross, &net, &designLife,
		&conStart, &firstCrit, &gridConn, &comOp, &permShutdown,
		&status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ID = id.UnitID(unitID)
	u.SiteID = id.SiteID(siteID)
	u.DesignID = id.DesignID(designID)
	u.OperatorID = id.OrganizationID(opID)
	u.OwnerID = id.OrganizationID(ownID)
	u.Status = models.UnitStatus(status)
	if thermal.Valid {
		u.ThermalPowerMW = &thermal.Float64
	}
	if gross.Valid {
		u.GrossPowerMW = &gross.Float64
	}
	if net.Valid {
		u.NetPowerMW = &net.Float64
	}
	if designLife.Valid {
		v := int(designLife.Int64)
		u.DesignLifeYears = &v
	}
	if conStart.Valid {
		t := conStart.Time
		u.ConstructionStart = &t
	}
	if firstCrit.Valid {
		t := firstCrit.Time
		u.FirstCriticality = &t
	}
	if gridConn.Valid {
		t := gridConn.Time
		u.GridConnection = &t
	}
	if comOp.Valid {
		t := comOp.Time
		u.CommercialOperation = &t
	}
	if permShutdown.Valid {
		t := permShutdown.Time
		u.PermanentShutdown = &t
	}
	return &u, nil
}
