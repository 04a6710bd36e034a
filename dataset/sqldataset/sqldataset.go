/*
Package sqldataset provides an implementation of dataset.Reader that
reads records from the rows an SQL query returns.
*/
package sqldataset

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xh3b4sd/tracer"

	"github.com/pbanos/arboretum/dataset"
)

type sqlDataset struct {
	db    *sql.DB
	query string
	args  []interface{}
}

/*
Open takes a database, a query and its arguments and returns a
dataset.Reader whose records are the rows the query returns, keyed by
column name. NULL values are left out of their record.
*/
func Open(db *sql.DB, query string, args ...interface{}) dataset.Reader {
	return &sqlDataset{db, query, args}
}

func (sd *sqlDataset) Records(ctx context.Context) ([]dataset.Record, error) {
	return dataset.Collect(ctx, sd)
}

func (sd *sqlDataset) Count(ctx context.Context) (int, error) {
	var count int
	err := sd.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS records", sd.query), sd.args...).Scan(&count)
	if err != nil {
		return 0, tracer.Mask(err)
	}
	return count, nil
}

func (sd *sqlDataset) Read(ctx context.Context) (<-chan dataset.Record, <-chan error) {
	records := make(chan dataset.Record)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(records)
		err := sd.read(ctx, records)
		if err != nil {
			errs <- err
		}
	}()
	return records, errs
}

func (sd *sqlDataset) read(ctx context.Context, records chan<- dataset.Record) error {
	rows, err := sd.db.QueryContext(ctx, sd.query, sd.args...)
	if err != nil {
		return tracer.Mask(err)
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return tracer.Mask(err)
	}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err = rows.Scan(pointers...); err != nil {
			return tracer.Mask(err)
		}
		r := make(dataset.Record, len(columns))
		for i, c := range columns {
			switch v := values[i].(type) {
			case nil:
			case []byte:
				r[c] = string(v)
			default:
				r[c] = v
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case records <- r:
		}
	}
	if err = rows.Err(); err != nil {
		return tracer.Mask(err)
	}
	return nil
}
