// Package sqlstore implements the store contracts on database/sql.
//
// Two dialects are supported: PostgreSQL through the pgx stdlib driver and
// SQLite through go-sqlite3. Both share the same queries, written with "?"
// placeholders and rebound for PostgreSQL. Schema changes are embedded goose
// migrations, one directory per dialect.
//
// Tasks carry a version column. Updates and deletes match on id and version
// together, so a row changed by another transaction after it was read is
// reported as store.ErrStaleEntity instead of being overwritten.
package sqlstore
