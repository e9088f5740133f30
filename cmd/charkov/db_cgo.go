//go:build cgo_sqlite

package main

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const sqlDriver = "sqlite3"

func initDB(dataSource string) (*sql.DB, error) {
	if err := ensureDBDir(dataSource); err != nil {
		return nil, err
	}
	return sql.Open(sqlDriver, dataSource)
}
