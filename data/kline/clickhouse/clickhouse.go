package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/eventtypes/event"
	"github.com/tickforge/backtester/eventtypes/kline"
	"github.com/tickforge/backtester/log"
)

var (
	errNoAddress        = errors.New("no clickhouse address provided")
	errInvalidIdentifier = errors.New("invalid database or table identifier")
	identifierRegex     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Config holds connection and query settings. The table uses the candle
// layout symbol, interval, open_time_ms, open, high, low, close, volume
type Config struct {
	Addr     string    `json:"addr" mapstructure:"addr"`
	Database string    `json:"database" mapstructure:"database"`
	Username string    `json:"username" mapstructure:"username"`
	Password string    `json:"password" mapstructure:"password"`
	Table    string    `json:"table" mapstructure:"table"`
	Interval string    `json:"interval" mapstructure:"interval"`
	Symbols  []string  `json:"symbols" mapstructure:"symbols"`
	Start    time.Time `json:"start-date" mapstructure:"start-date"`
	End      time.Time `json:"end-date" mapstructure:"end-date"`
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type querier interface {
	query(ctx context.Context, q string, args ...any) (rows, error)
	close() error
}

type conn struct {
	clickhouse.Conn
}

func (c conn) query(ctx context.Context, q string, args ...any) (rows, error) {
	return c.Conn.Query(ctx, q, args...)
}

func (c conn) close() error {
	return c.Conn.Close()
}

// Loader reads bars from ClickHouse
type Loader struct {
	Config Config
	q      querier
}

// Connect opens and pings a ClickHouse connection
func Connect(ctx context.Context, c *Config) (clickhouse.Conn, error) {
	if c.Addr == "" {
		return nil, errNoAddress
	}
	database := c.Database
	if database == "" {
		database = "default"
	}
	chConn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{c.Addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: c.Username,
			Password: c.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, err
	}
	if err := chConn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return chConn, nil
}

func (c *Config) selectQuery() (string, []any, error) {
	database := c.Database
	if database == "" {
		database = "default"
	}
	table := c.Table
	if table == "" {
		table = "candles"
	}
	if !identifierRegex.MatchString(database) || !identifierRegex.MatchString(table) {
		return "", nil, fmt.Errorf("%w %s.%s", errInvalidIdentifier, database, table)
	}
	var (
		where []string
		args  []any
	)
	if c.Interval != "" {
		where = append(where, "interval = ?")
		args = append(args, c.Interval)
	}
	if len(c.Symbols) > 0 {
		where = append(where, "symbol IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(c.Symbols)), ", ")+")")
		for i := range c.Symbols {
			args = append(args, c.Symbols[i])
		}
	}
	if !c.Start.IsZero() {
		where = append(where, "open_time_ms >= ?")
		args = append(args, uint64(c.Start.UnixMilli()))
	}
	if !c.End.IsZero() {
		where = append(where, "open_time_ms <= ?")
		args = append(args, uint64(c.End.UnixMilli()))
	}
	q := fmt.Sprintf("SELECT symbol, open_time_ms, open, high, low, close, volume FROM %s.%s", database, table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY symbol, open_time_ms"
	return q, args, nil
}

// Load implements data.Loader
func (l *Loader) Load(ctx context.Context) ([]*kline.Kline, error) {
	q, args, err := l.Config.selectQuery()
	if err != nil {
		return nil, err
	}
	src := l.q
	if src == nil {
		chConn, err := Connect(ctx, &l.Config)
		if err != nil {
			return nil, err
		}
		src = conn{chConn}
		defer func() {
			if closeErr := src.close(); closeErr != nil {
				log.Errorln(log.DataLoader, closeErr)
			}
		}()
	}
	r, err := src.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var resp []*kline.Kline
	for r.Next() {
		var symbol string
		var openTimeMs uint64
		var openPx, highPx, lowPx, closePx, volume float64
		if err := r.Scan(&symbol, &openTimeMs, &openPx, &highPx, &lowPx, &closePx, &volume); err != nil {
			return nil, err
		}
		resp = append(resp, &kline.Kline{
			Base:   event.Base{Symbol: symbol, Time: time.UnixMilli(int64(openTimeMs)).UTC()},
			Open:   decimal.NewFromFloat(openPx),
			High:   decimal.NewFromFloat(highPx),
			Low:    decimal.NewFromFloat(lowPx),
			Close:  decimal.NewFromFloat(closePx),
			Volume: decimal.NewFromFloat(volume),
		})
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	log.Infof(log.DataLoader, "loaded %d bars from clickhouse %s", len(resp), l.Config.Addr)
	return resp, nil
}
