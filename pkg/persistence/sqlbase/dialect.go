package sqlbase

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

// Dialect captures the few statements that differ between the supported databases.
// Every dialect accepts $N placeholders as long as they appear in ascending order.
type Dialect struct {
	Name string

	// ForUpdate is appended to a SELECT to lock the returned rows.
	// SQLite serializes writers itself and has no row locks.
	ForUpdate string
}

var dialects = map[string]Dialect{
	DriverPostgres: {Name: DriverPostgres, ForUpdate: " FOR UPDATE"},
	DriverPgx:      {Name: DriverPostgres, ForUpdate: " FOR UPDATE"},
	DriverSQLite:   {Name: DriverSQLite},
}

// DialectFor returns the dialect of a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	dialect, ok := dialects[driver]
	if !ok {
		return Dialect{}, fmt.Errorf("%w: unsupported driver %q", ErrInvalidConfig, driver)
	}

	return dialect, nil
}

// IsPostgres reports whether the dialect targets PostgreSQL through any driver.
func (d Dialect) IsPostgres() bool {
	return d.Name == DriverPostgres
}
