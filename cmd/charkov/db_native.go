//go:build !cgo_sqlite

package main

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

const sqlDriver = "sqlite"

func initDB(dataSource string) (*sql.DB, error) {
	if err := ensureDBDir(dataSource); err != nil {
		return nil, err
	}
	return sql.Open(sqlDriver, dataSource)
}
