package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Config selects a warehouse driver. Driver is "mysql" or "postgres".
type Config struct {
	Driver string     `yaml:"driver"`
	DSN    string     `yaml:"dsn" env:"ZTF_WAREHOUSE_DSN"`
	Pool   PoolConfig `yaml:"pool"`
}

// Open connects using the configured driver.
func Open(cfg Config) (*SQL, error) {
	switch Dialect(cfg.Driver) {
	case DialectMySQL:
		return NewMySQLWithConfig(MySQLConfig{DSN: cfg.DSN, Pool: cfg.Pool})
	case DialectPostgres, "postgresql":
		return NewPostgreSQLWithConfig(PostgreSQLConfig{DSN: cfg.DSN, Pool: cfg.Pool})
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// IsNoRows checks if the error is sql.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// UniqueViolation inspects a duplicate key error and returns the key or constraint name.
func UniqueViolation(err error) (string, bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return ExtractDuplicateKeyName(myErr.Message), true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}

// ExtractDuplicateKeyName parses duplicate key name from MySQL error message.
func ExtractDuplicateKeyName(message string) string {
	if message == "" {
		return ""
	}
	const marker = "for key "
	idx := strings.LastIndex(message, marker)
	if idx == -1 {
		return ""
	}
	key := strings.TrimSpace(message[idx+len(marker):])
	return strings.Trim(key, " `\"'")
}

// Placeholders returns n bind markers starting at position start (1-based) for the dialect.
func Placeholders(d Dialect, start, n int) []string {
	out := make([]string, n)
	for i := range out {
		if d == DialectPostgres {
			out[i] = fmt.Sprintf("$%d", start+i)
		} else {
			out[i] = "?"
		}
	}
	return out
}
