package store

import (
	"database/sql"
	"sort"

	_ "github.com/SAP/go-hdb/driver"    // SAP HANA: "hdb"
	_ "github.com/go-sql-driver/mysql"  // MySQL/MariaDB: "mysql"
	_ "github.com/jackc/pgx/v5/stdlib"  // PostgreSQL: "pgx"
	_ "github.com/lib/pq"               // PostgreSQL: "postgres"
	_ "github.com/microsoft/go-mssqldb" // SQL Server: "sqlserver", "mssql"
	_ "modernc.org/sqlite"              // SQLite: "sqlite"
)

// DefaultDriver is used when no driver is configured.
const DefaultDriver = "sqlite"

// DefaultDSN is an in-memory SQLite database.
const DefaultDSN = ":memory:"

// Drivers returns the sorted names of all registered database drivers.
func Drivers() []string {
	names := sql.Drivers()
	sort.Strings(names)
	return names
}
