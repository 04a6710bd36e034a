/*
Package sqlite3adapter provides an implementation of the Adapter
interface in the sqlresolver package that works over an SQLite3
database.
*/
package sqlite3adapter

import (
	"database/sql"

	// Import of sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbanos/arboretum/resolver/sqlresolver"
)

const (
	createTableStmt = `CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY,
		export TEXT NOT NULL)`
	selectStmt = `SELECT export FROM models WHERE id = ?`
	upsertStmt = `INSERT INTO models (id, export) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET export = excluded.export`
	deleteStmt = `DELETE FROM models WHERE id = ?`
)

type adapter struct {
	db *sql.DB
}

/*
New takes a path to an SQLite3 database file and returns an Adapter that works
on the file's database or an error if it fails to open as an sqlite3 database.
*/
func New(path string) (sqlresolver.Adapter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	return &adapter{db}, nil
}

func (a *adapter) DB() *sql.DB             { return a.db }
func (a *adapter) CreateTableStmt() string { return createTableStmt }
func (a *adapter) SelectStmt() string      { return selectStmt }
func (a *adapter) UpsertStmt() string      { return upsertStmt }
func (a *adapter) DeleteStmt() string      { return deleteStmt }
