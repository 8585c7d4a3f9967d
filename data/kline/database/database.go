package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	// import postgres driver
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common/convert"
	"github.com/tickforge/backtester/eventtypes/kline"
	"github.com/tickforge/backtester/log"
	"github.com/volatiletech/null"
)

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Connect opens a connection for the configured driver
func Connect(cfg *Config) (*sql.DB, error) {
	if cfg.Database == "" {
		return nil, ErrNoDatabaseProvided
	}
	switch cfg.Driver {
	case DBSQLite3:
		dbConn, err := sql.Open(DBSQLite3, cfg.Database)
		if err != nil {
			return nil, err
		}
		dbConn.SetMaxOpenConns(1)
		return dbConn, nil
	case DBPostgreSQL:
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		configDSN := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.Username,
			cfg.Password,
			cfg.Database,
			sslMode)
		return sql.Open(DBPostgreSQL, configDSN)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

func (c *Config) table() (string, error) {
	t := c.Table
	if t == "" {
		t = DefaultTable
	}
	if !tableNameRegex.MatchString(t) {
		return "", fmt.Errorf("%w %q", errInvalidTableName, t)
	}
	return t, nil
}

func (c *Config) placeholder(n int) string {
	if c.Driver == DBPostgreSQL {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (c *Config) selectQuery() (string, []any, error) {
	table, err := c.table()
	if err != nil {
		return "", nil, err
	}
	var (
		where []string
		args  []any
	)
	if len(c.Symbols) > 0 {
		ph := make([]string, len(c.Symbols))
		for i := range c.Symbols {
			args = append(args, c.Symbols[i])
			ph[i] = c.placeholder(len(args))
		}
		where = append(where, "symbol IN ("+strings.Join(ph, ", ")+")")
	}
	if !c.Start.IsZero() {
		args = append(args, c.Start.Unix())
		where = append(where, "timestamp >= "+c.placeholder(len(args)))
	}
	if !c.End.IsZero() {
		args = append(args, c.End.Unix())
		where = append(where, "timestamp <= "+c.placeholder(len(args)))
	}
	q := "SELECT symbol, timestamp, open, high, low, close, volume FROM " + table
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY symbol, timestamp"
	return q, args, nil
}

// Load implements data.Loader
func (l *Loader) Load(ctx context.Context) ([]*kline.Kline, error) {
	db := l.DB
	if db == nil {
		var err error
		db, err = Connect(&l.Config)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Errorln(log.DataLoader, closeErr)
			}
		}()
	}
	table, err := l.Config.table()
	if err != nil {
		return nil, err
	}
	q, args, err := l.Config.selectQuery()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resp []*kline.Kline
	for rows.Next() {
		var (
			ts     int64
			volume null.Float64
		)
		k := &kline.Kline{}
		if err = rows.Scan(&k.Symbol, &ts, &k.Open, &k.High, &k.Low, &k.Close, &volume); err != nil {
			return nil, err
		}
		k.Time = convert.UnixToTime(ts)
		if volume.Valid {
			k.Volume = decimal.NewFromFloat(volume.Float64)
		}
		resp = append(resp, k)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	log.Infof(log.DataLoader, "loaded %d bars from %s table %s", len(resp), l.Config.Driver, table)
	return resp, nil
}

// CreateTable creates the candle table when it does not exist
func CreateTable(ctx context.Context, db *sql.DB, cfg *Config) error {
	if db == nil {
		return errNilDatabase
	}
	table, err := cfg.table()
	if err != nil {
		return err
	}
	numeric := "REAL"
	if cfg.Driver == DBPostgreSQL {
		numeric = "NUMERIC"
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	symbol TEXT NOT NULL,
	timestamp BIGINT NOT NULL,
	open %[2]s NOT NULL,
	high %[2]s NOT NULL,
	low %[2]s NOT NULL,
	close %[2]s NOT NULL,
	volume %[2]s,
	PRIMARY KEY (symbol, timestamp)
)`, table, numeric)
	_, err = db.ExecContext(ctx, q)
	return err
}

// InsertBars writes bars in a single transaction
func InsertBars(ctx context.Context, db *sql.DB, cfg *Config, bars []*kline.Kline) error {
	if db == nil {
		return errNilDatabase
	}
	table, err := cfg.table()
	if err != nil {
		return err
	}
	ph := make([]string, 7)
	for i := range ph {
		ph[i] = cfg.placeholder(i + 1)
	}
	q := "INSERT INTO " + table + " (symbol, timestamp, open, high, low, close, volume) VALUES (" + strings.Join(ph, ", ") + ")"
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return rollback(tx, err)
	}
	defer stmt.Close()
	for i := range bars {
		volume := null.Float64From(bars[i].Volume.InexactFloat64())
		_, err = stmt.ExecContext(ctx,
			bars[i].Symbol,
			bars[i].Time.Unix(),
			bars[i].Open,
			bars[i].High,
			bars[i].Low,
			bars[i].Close,
			volume)
		if err != nil {
			return rollback(tx, err)
		}
	}
	return tx.Commit()
}

func rollback(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		return fmt.Errorf("%w, rollback failed: %v", err, rbErr)
	}
	return err
}
