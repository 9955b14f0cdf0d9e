package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"popmetrics/internal/models"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Supported database/sql drivers for warehouse mirrors.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQL runs queries on a database/sql mirror of the indicators table.
type SQL struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQL opens a mirror. driver is DriverSQLite or DriverPostgres.
func OpenSQL(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQL, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUpstream, driver, err)
	}
	if driver == DriverSQLite {
		// single writer; also keeps :memory: databases on one connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wrapUpstream(ctx, "ping "+driver, err)
	}
	return &SQL{db: db, logger: logger}, nil
}

// NewSQL wraps an already opened handle.
func NewSQL(db *sql.DB, logger *zap.Logger) *SQL {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQL{db: db, logger: logger}
}

// DB exposes the handle, mostly for seeding mirrors.
func (s *SQL) DB() *sql.DB { return s.db }

// Run executes query and scans every result row.
func (s *SQL) Run(ctx context.Context, query string) ([]models.RawRow, error) {
	rs, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapUpstream(ctx, "run query", err)
	}
	defer rs.Close()

	var rows []models.RawRow
	for rs.Next() {
		var (
			year  int64
			row   models.RawRow
			value sql.NullFloat64
		)
		if err := rs.Scan(&year, &row.CountryName, &row.CountryCode, &row.IndicatorName, &value); err != nil {
			return nil, wrapUpstream(ctx, "scan row", err)
		}
		row.Year = int(year)
		if value.Valid {
			v := value.Float64
			row.Value = &v
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, wrapUpstream(ctx, "iterate rows", err)
	}

	s.logger.Debug("sql rows read", zap.Int("rows", len(rows)))
	return rows, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
