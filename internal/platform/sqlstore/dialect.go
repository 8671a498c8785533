package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name         string // value of database.driver in configuration
	DriverName   string // database/sql driver
	GooseDialect string
	migrations   string // directory under migrations/
	numbered     bool   // uses $1, $2... placeholders
}

var (
	// Postgres is the PostgreSQL dialect using the pgx stdlib driver.
	Postgres = Dialect{
		Name:         "postgres",
		DriverName:   "pgx",
		GooseDialect: "postgres",
		migrations:   "postgres",
		numbered:     true,
	}

	// SQLite is the SQLite dialect using go-sqlite3.
	SQLite = Dialect{
		Name:         "sqlite",
		DriverName:   "sqlite3",
		GooseDialect: "sqlite3",
		migrations:   "sqlite",
	}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case Postgres.Name:
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// Rebind rewrites "?" placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
