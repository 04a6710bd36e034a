/*
Package dataset provides collections of input records to predict
in batches.
*/
package dataset

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

/*
Record holds the values of an input to predict, keyed by field name
or field ID.
*/
type Record map[string]interface{}

func (r Record) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", k, r[k]))
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, " "))
}

/*
Dataset represents a collection of records.

Its Records method returns the records it contains and its Count
method the number of them.
*/
type Dataset interface {
	Records(context.Context) ([]Record, error)
	Count(context.Context) (int, error)
}

/*
Reader is a Dataset whose records can be read one by one.

Read returns a channel on which the records are sent and a channel on
which an error is sent if the reading fails. Both channels are closed
when the reading is over.
*/
type Reader interface {
	Dataset
	Read(context.Context) (<-chan Record, <-chan error)
}

type memoryDataset struct {
	records []Record
}

// New takes a slice of records and returns a Reader holding them
func New(records []Record) Reader {
	return &memoryDataset{records}
}

func (md *memoryDataset) Records(ctx context.Context) ([]Record, error) {
	return md.records, nil
}

func (md *memoryDataset) Count(ctx context.Context) (int, error) {
	return len(md.records), nil
}

func (md *memoryDataset) Read(ctx context.Context) (<-chan Record, <-chan error) {
	records := make(chan Record)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(records)
		for _, r := range md.records {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case records <- r:
			}
		}
	}()
	return records, errs
}

/*
Collect takes a context and a Reader and returns all the records read
from it or the reading error.
*/
func Collect(ctx context.Context, r Reader) ([]Record, error) {
	var result []Record
	records, errs := r.Read(ctx)
	for record := range records {
		result = append(result, record)
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return result, nil
}
