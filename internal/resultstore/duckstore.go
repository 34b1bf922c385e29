// Package resultstore keeps the matched records of an analysis session in a
// temporary DuckDB file so the UI can page, sort and filter them.
package resultstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog/log"
	"github.com/section-speed/backend/internal/models"
)

const createRecordsTable = `
	CREATE TABLE records (
		id            INTEGER PRIMARY KEY,
		plate         VARCHAR NOT NULL,
		start_ts      BIGINT NOT NULL,
		start_speed   DOUBLE,
		end_ts        BIGINT NOT NULL,
		end_speed     DOUBLE,
		transit_ms    BIGINT NOT NULL,
		avg_speed     DOUBLE NOT NULL,
		over_speed    BOOLEAN NOT NULL
	)
`

// DuckStore stores matched records in a DuckDB file.
type DuckStore struct {
	db     *sql.DB
	dbPath string
	loc    *time.Location

	mu    sync.RWMutex
	count int

	// Semaphore to limit concurrent queries
	querySem chan struct{}
}

// QueryParams defines filters and sorting for record queries.
type QueryParams struct {
	Search        string // plate substring
	OverSpeedOnly bool
	SortKey       models.SortKey
}

// SpeedBand is the number of records whose average speed falls in [From, From+Width).
type SpeedBand struct {
	FromKmh float64 `json:"fromKmh"`
	Count   int     `json:"count"`
}

// NewDuckStore creates a new DuckDB-backed store in the given temp directory.
func NewDuckStore(tempDir string, sessionID string) (*DuckStore, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("analysis_%s.duckdb", sessionID))
	return NewDuckStoreAtPath(dbPath)
}

// NewDuckStoreAtPath creates a new DuckDB-backed store at a specific path.
func NewDuckStoreAtPath(dbPath string) (*DuckStore, error) {
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='512MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if _, err := db.Exec(createRecordsTable); err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	log.Debug().Str("path", dbPath).Msg("result store created")
	return &DuckStore{
		db:       db,
		dbPath:   dbPath,
		loc:      time.UTC,
		querySem: make(chan struct{}, 3),
	}, nil
}

// Replace swaps the stored records for a new result. A re-run never appends.
func (ds *DuckStore) Replace(ctx context.Context, records []models.MatchedRecord, loc *time.Location) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if _, err := ds.db.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	if loc != nil {
		ds.loc = loc
	}
	ds.count = 0
	if len(records) == 0 {
		return nil
	}

	conn, err := ds.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	// Native Appender API for bulk inserts
	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "records")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, r := range records {
			err := appender.AppendRow(
				int32(i),
				r.Plate,
				r.StartInstant.UnixMilli(),
				nullableFloat(r.StartSpeed),
				r.EndInstant.UnixMilli(),
				nullableFloat(r.EndSpeed),
				r.EndInstant.Sub(r.StartInstant).Milliseconds(),
				r.AvgSpeedKmh,
				r.IsOverSpeed,
			)
			if err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	ds.count = len(records)
	return nil
}

// Len returns the number of stored records.
func (ds *DuckStore) Len() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.count
}

// QueryRecords returns filtered, sorted and paginated records plus the filtered total.
func (ds *DuckStore) QueryRecords(ctx context.Context, params QueryParams, page, pageSize int) ([]models.MatchedRecord, int, error) {
	select {
	case ds.querySem <- struct{}{}:
		defer func() { <-ds.querySem }()
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	where, args := buildWhereClause(params)

	countQuery := "SELECT COUNT(*) FROM records"
	if where != "" {
		countQuery += " WHERE " + where
	}
	var total int
	if err := ds.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	query := "SELECT plate, start_ts, start_speed, end_ts, end_speed, transit_ms, avg_speed, over_speed FROM records"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + orderClause(params.SortKey) + " LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("record query failed: %w", err)
	}
	defer rows.Close()

	records := make([]models.MatchedRecord, 0, pageSize)
	for rows.Next() {
		r, err := ds.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

// SpeedBands counts records per average-speed band of width widthKmh.
func (ds *DuckStore) SpeedBands(ctx context.Context, widthKmh float64) ([]SpeedBand, error) {
	if widthKmh <= 0 {
		return nil, fmt.Errorf("band width must be positive, got %v", widthKmh)
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	rows, err := ds.db.QueryContext(ctx, `
		SELECT FLOOR(avg_speed / ?) * ? AS band, COUNT(*)
		FROM records
		GROUP BY band
		ORDER BY band
	`, widthKmh, widthKmh)
	if err != nil {
		return nil, fmt.Errorf("band query failed: %w", err)
	}
	defer rows.Close()

	bands := make([]SpeedBand, 0)
	for rows.Next() {
		var b SpeedBand
		if err := rows.Scan(&b.FromKmh, &b.Count); err != nil {
			return nil, err
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}

// Close closes the database and removes its file.
func (ds *DuckStore) Close() error {
	if ds.db != nil {
		ds.db.Close()
	}
	if ds.dbPath != "" {
		os.Remove(ds.dbPath)
		os.Remove(ds.dbPath + ".wal")
	}
	return nil
}

func (ds *DuckStore) scanRecord(rows *sql.Rows) (models.MatchedRecord, error) {
	var (
		r                models.MatchedRecord
		startTs, endTs   int64
		transitMs        int64
		startSpd, endSpd sql.NullFloat64
	)
	if err := rows.Scan(&r.Plate, &startTs, &startSpd, &endTs, &endSpd, &transitMs, &r.AvgSpeedKmh, &r.IsOverSpeed); err != nil {
		return r, fmt.Errorf("scanning record: %w", err)
	}
	r.StartInstant = time.UnixMilli(startTs).In(ds.loc)
	r.EndInstant = time.UnixMilli(endTs).In(ds.loc)
	r.TransitSeconds = float64(transitMs) / 1000
	if startSpd.Valid {
		v := startSpd.Float64
		r.StartSpeed = &v
	}
	if endSpd.Valid {
		v := endSpd.Float64
		r.EndSpeed = &v
	}
	return r, nil
}

func buildWhereClause(params QueryParams) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if params.Search != "" {
		clauses = append(clauses, "plate LIKE ?")
		args = append(args, "%"+params.Search+"%")
	}
	if params.OverSpeedOnly {
		clauses = append(clauses, "over_speed")
	}

	return strings.Join(clauses, " AND "), args
}

func orderClause(key models.SortKey) string {
	if key == models.SortBySpeed {
		return "avg_speed DESC, plate ASC"
	}
	return "start_ts ASC, plate ASC"
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
