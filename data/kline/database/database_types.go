package database

import (
	"database/sql"
	"errors"
	"time"
)

// Supported drivers
const (
	DBSQLite3    = "sqlite3"
	DBPostgreSQL = "postgres"
)

// DefaultTable is used when no table name is configured
const DefaultTable = "candle"

var (
	// ErrNoDatabaseProvided is returned when no database name or path is set
	ErrNoDatabaseProvided = errors.New("no database provided")
	// ErrUnsupportedDriver is returned for drivers other than sqlite3 and postgres
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	errInvalidTableName = errors.New("invalid table name")
	errNilDatabase      = errors.New("database connection is nil")
)

// Config holds the connection and query settings for loading bars.
// The table is expected to hold the columns
// symbol, timestamp (unix seconds), open, high, low, close, volume (nullable)
type Config struct {
	Driver   string `json:"driver" mapstructure:"driver"`
	Host     string `json:"host" mapstructure:"host"`
	Port     uint16 `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	// Database is the file path for sqlite3 and the database name for postgres
	Database string    `json:"database" mapstructure:"database"`
	SSLMode  string    `json:"ssl-mode" mapstructure:"ssl-mode"`
	Table    string    `json:"table" mapstructure:"table"`
	Symbols  []string  `json:"symbols" mapstructure:"symbols"`
	Start    time.Time `json:"start-date" mapstructure:"start-date"`
	End      time.Time `json:"end-date" mapstructure:"end-date"`
}

// Loader reads bars from a SQL database
type Loader struct {
	Config Config
	// DB may be supplied to reuse an existing connection, otherwise Load
	// connects and closes its own
	DB *sql.DB
}
