package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverHTTP     = "http"
)

var ErrUnknownDriver = errors.New("store: unknown driver")

// FactoryOptions groups configuration for every driver.
type FactoryOptions struct {
	SQLitePath  string
	Redis       RedisOptions
	PostgresDSN string
	HTTP        HTTPOptions
}

// NewFromDriver opens the repository for driver. The "none" driver (or an
// empty name) disables persistence and returns a nil Repository.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		return NewSQLite(opts.SQLitePath)
	case DriverRedis:
		return NewRedis(ctx, opts.Redis)
	case DriverPostgres:
		return NewPostgres(ctx, opts.PostgresDSN)
	case DriverHTTP:
		return NewHTTP(opts.HTTP)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
