/*
Package pgadapter provides an implementation of the
Adapter interface in the sqlresolver package that works
over a PostgreSQL database.
*/
package pgadapter

import (
	"database/sql"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/pbanos/arboretum/resolver/sqlresolver"
)

const (
	createTableStmt = `CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY,
		export TEXT NOT NULL)`
	selectStmt = `SELECT export FROM models WHERE id = $1`
	upsertStmt = `INSERT INTO models (id, export) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET export = EXCLUDED.export`
	deleteStmt = `DELETE FROM models WHERE id = $1`
)

type adapter struct {
	db *sql.DB
}

/*
New takes a PostgreSQL database connection URL and returns
an Adapter that works on the database or an error if it fails to connect to it.
*/
func New(url string) (sqlresolver.Adapter, error) {
	db, err := sql.Open("postgres", url)
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
