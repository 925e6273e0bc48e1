package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"OTCFeed/internal/domain/models"
	domrepo "OTCFeed/internal/domain/repository"
	applogger "OTCFeed/pkg/logger"
)

const (
	DefaultTickTable = "otc_ticks"
	tickSource       = "otc"
	chunkSize        = 2000
)

// TickSchema returns the idempotent DDL for the tick table.
func TickSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    ts      DateTime64(3, 'UTC'),
    symbol  LowCardinality(String),
    price   Float64,
    source  LowCardinality(String)
) ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMMDD(ts)
ORDER BY (symbol, ts)`, table),
	}
}

// ClickHouseTickStorage implements TickStorage for ClickHouse.
type ClickHouseTickStorage struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.TickStorage = (*ClickHouseTickStorage)(nil)

// NewClickHouseTickStorage creates tick storage over an open pool.
func NewClickHouseTickStorage(db *sql.DB, table string, l *applogger.Logger) *ClickHouseTickStorage {
	if table == "" {
		table = DefaultTickTable
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseTickStorage{db: db, table: table, l: l}
}

func (s *ClickHouseTickStorage) Store(ctx context.Context, t *models.Tick) error {
	return s.StoreBatch(ctx, []*models.Tick{t})
}

// StoreBatch inserts ticks with multi-row VALUES, chunked to bound statement size.
// Invalid ticks are skipped.
func (s *ClickHouseTickStorage) StoreBatch(ctx context.Context, ticks []*models.Tick) error {
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}
		q, args := insertStatement(s.table, ticks[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert failed",
				applogger.String("table", s.table),
				applogger.Int("rows", len(args)/4),
				applogger.Error(err),
			)
			return fmt.Errorf("store ticks: %w", err)
		}
	}
	return nil
}

func insertStatement(table string, ticks []*models.Tick) (string, []interface{}) {
	values := make([]string, 0, len(ticks))
	args := make([]interface{}, 0, len(ticks)*4)
	for _, t := range ticks {
		if t == nil || t.Symbol == "" || t.Timestamp <= 0 {
			continue
		}
		values = append(values, "(?, ?, ?, ?)")
		args = append(args, t.Time().UTC(), t.Symbol, t.Price, tickSource)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, source) VALUES %s", table, strings.Join(values, ", "))
	return q, args
}

// Query returns ticks for symbol in [from, to], newest first.
func (s *ClickHouseTickStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error) {
	q := fmt.Sprintf("SELECT symbol, ts, price FROM %s FINAL WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	ticks := make([]*models.Tick, 0, limit)
	for rows.Next() {
		var t models.Tick
		var ts time.Time
		if err := rows.Scan(&t.Symbol, &ts, &t.Price); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.Timestamp = ts.UnixMilli()
		ticks = append(ticks, &t)
	}
	return ticks, rows.Err()
}

func (s *ClickHouseTickStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseTickStorage) Close() error {
	return nil
}
