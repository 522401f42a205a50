package db

import (
	_ "github.com/go-sql-driver/mysql"
)

// MySQLConfig holds the configuration for a MySQL warehouse.
type MySQLConfig struct {
	// DSN is the data source name
	// Format: "user:password@tcp(host:port)/dbname?parseTime=true"
	DSN  string     `yaml:"dsn"`
	Pool PoolConfig `yaml:"pool"`
}

// NewMySQLWithConfig opens and pings a MySQL connection pool.
func NewMySQLWithConfig(config MySQLConfig) (*SQL, error) {
	return open("mysql", DialectMySQL, config.DSN, config.Pool)
}
