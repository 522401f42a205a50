package db

import (
	_ "github.com/lib/pq"
)

// PostgreSQLConfig holds the configuration for a PostgreSQL warehouse.
type PostgreSQLConfig struct {
	// DSN is the data source name
	// Format: "user=postgres password=password host=localhost port=5432 dbname=dbname sslmode=disable"
	DSN  string     `yaml:"dsn"`
	Pool PoolConfig `yaml:"pool"`
}

// NewPostgreSQLWithConfig opens and pings a PostgreSQL connection pool.
func NewPostgreSQLWithConfig(config PostgreSQLConfig) (*SQL, error) {
	return open("postgres", DialectPostgres, config.DSN, config.Pool)
}
