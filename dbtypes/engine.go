package dbtypes

import "strings"

type DBEngineType int

const (
	DBEngineAny    DBEngineType = 0
	DBEngineSqlite DBEngineType = 1
	DBEnginePgsql  DBEngineType = 2
)

func (e DBEngineType) String() string {
	switch e {
	case DBEngineSqlite:
		return "sqlite"
	case DBEnginePgsql:
		return "pgsql"
	default:
		return "any"
	}
}

// EngineFromDriverName maps a database/sql driver name to the engine type.
func EngineFromDriverName(driverName string) DBEngineType {
	switch strings.ToLower(driverName) {
	case "sqlite", "sqlite3":
		return DBEngineSqlite
	case "pgx", "postgres", "pgsql":
		return DBEnginePgsql
	default:
		return DBEngineAny
	}
}
