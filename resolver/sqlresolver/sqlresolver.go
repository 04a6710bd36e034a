/*
Package sqlresolver provides an implementation of resolver.Store that
keeps model exports in a table of an SQL database. The SQL dialect is
provided by an Adapter, with implementations for SQLite3 and
PostgreSQL in subpackages.
*/
package sqlresolver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xh3b4sd/tracer"

	"github.com/pbanos/arboretum/resolver"
)

// TableName is the name of the table holding the exports
const TableName = "models"

/*
Adapter is an interface providing the database connection and the
statements in its dialect needed to keep exports in the models table,
which has a text id primary key column and a text export column.

SelectStmt and DeleteStmt take the ID as only parameter, UpsertStmt
takes the ID and the export.
*/
type Adapter interface {
	DB() *sql.DB
	CreateTableStmt() string
	SelectStmt() string
	UpsertStmt() string
	DeleteStmt() string
}

type sqlStore struct {
	adapter Adapter
}

/*
New takes a context and an Adapter and returns a resolver.Store working
on the adapter's database, ensuring the models table exists first. It
returns an error if the table cannot be created.
*/
func New(ctx context.Context, a Adapter) (resolver.Store, error) {
	createStmt, err := a.DB().PrepareContext(ctx, a.CreateTableStmt())
	if err != nil {
		return nil, fmt.Errorf("preparing %s creation statement: %v", TableName, tracer.Mask(err))
	}
	defer createStmt.Close()
	_, err = createStmt.ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensuring %s table exists: %v", TableName, tracer.Mask(err))
	}
	return &sqlStore{a}, nil
}

func (ss *sqlStore) Resolve(ctx context.Context, id string) ([]byte, error) {
	var export string
	err := ss.adapter.DB().QueryRowContext(ctx, ss.adapter.SelectStmt(), id).Scan(&export)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("resolving %s: %w", id, resolver.ErrModelNotFound)
	}
	if err != nil {
		return nil, tracer.Mask(err)
	}
	return []byte(export), nil
}

func (ss *sqlStore) Store(ctx context.Context, id string, export []byte) error {
	_, err := ss.adapter.DB().ExecContext(ctx, ss.adapter.UpsertStmt(), id, string(export))
	if err != nil {
		return tracer.Mask(err)
	}
	return nil
}

func (ss *sqlStore) Delete(ctx context.Context, id string) error {
	_, err := ss.adapter.DB().ExecContext(ctx, ss.adapter.DeleteStmt(), id)
	if err != nil {
		return tracer.Mask(err)
	}
	return nil
}

func (ss *sqlStore) Close(ctx context.Context) error {
	return ss.adapter.DB().Close()
}
