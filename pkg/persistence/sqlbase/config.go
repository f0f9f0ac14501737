package sqlbase

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMinConns       = 2
	DefaultMaxConns       = 10
	DefaultAcquireTimeout = 5 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// Config describes the pool and the connection target of an Executor.
type Config struct {
	Driver         string
	DSN            string
	MinConns       int
	MaxConns       int
	AcquireTimeout time.Duration
	ConnectTimeout time.Duration
}

// ConnectionParams are the discrete settings a PostgreSQL DSN is built from.
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string
}

// DSN renders the connection params as a postgres:// URL accepted by lib/pq and pgx.
func (p ConnectionParams) DSN(connectTimeout time.Duration) string {
	host := p.Host
	if host == "" {
		host = "localhost"
	}

	if p.Port > 0 {
		host += ":" + strconv.Itoa(p.Port)
	}

	query := url.Values{}

	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)

	if connectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Seconds())))
	}

	if p.Schema != "" {
		query.Set("search_path", p.Schema)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + p.Database,
		RawQuery: query.Encode(),
	}

	if p.User != "" {
		dsn.User = url.UserPassword(p.User, p.Password)
	}

	return dsn.String()
}

func (c Config) withDefaults() Config {
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}

	if c.MinConns < 0 {
		c.MinConns = 0
	}

	if c.MinConns > c.MaxConns {
		c.MinConns = c.MaxConns
	}

	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}

	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}

	c.Driver = strings.ToLower(c.Driver)

	return c
}

func (c Config) validate() error {
	if c.DSN == "" {
		return fmt.Errorf("%w: empty DSN", ErrInvalidConfig)
	}

	if _, err := DialectFor(c.Driver); err != nil {
		return err
	}

	return nil
}
