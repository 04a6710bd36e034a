/*
Package csv reads datasets from CSV streams and writes prediction
results as CSV.
*/
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pbanos/arboretum/dataset"
)

/*
Writer is an interface for a CSV stream to which records
can be written.
*/
type Writer interface {
	// Write will attempt to write the given records and will
	// return the number of records actually written and an error
	// if not all records could be written
	Write([]dataset.Record) (int, error)
	// Count returns the total number of records written
	Count() int
	// Flush ensures any pending write operations finish
	// before returning. It returns an error if that cannot
	// be ensured.
	Flush() error
}

type csvWriter struct {
	count   int
	columns []string
	w       *csv.Writer
}

/*
ReadDataset takes an io.Reader for a CSV stream and returns a dataset
with the records parsed from it or an error.

The header or first row of the CSV content is expected to hold the
names (or IDs) of the fields. Values are kept as strings; empty values
are left out of their record.
*/
func ReadDataset(reader io.Reader) (dataset.Reader, error) {
	records := []dataset.Record{}
	err := ReadRecords(reader, func(_ int, r dataset.Record) (bool, error) {
		records = append(records, r)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return dataset.New(records), nil
}

/*
ReadRecords takes an io.Reader for a CSV stream and a lambda function on an
integer and a dataset.Record that returns a boolean value. It parses the
records from the reader and for each it calls the lambda function with the
record and its index as parameters. If the lambda function returns true,
it will continue processing the next record, otherwise it will stop. An
error is returned if something goes wrong when reading or parsing.
*/
func ReadRecords(reader io.Reader, lambda func(int, dataset.Record) (bool, error)) error {
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading header: %v", err)
	}
	r.FieldsPerRecord = len(header)
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading line %d: %v", l, err)
		}
		record := make(dataset.Record, len(header))
		for i, name := range header {
			if row[i] != "" {
				record[name] = row[i]
			}
		}
		ok, err := lambda(l-2, record)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

/*
ReadDatasetFromFilePath takes a filepath string, opens the file to which
it points (os.Stdin if it is "") and uses ReadDataset to return the
dataset read from it or an error.
*/
func ReadDatasetFromFilePath(filepath string) (dataset.Reader, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading dataset: %v", err)
		}
		defer f.Close()
	}
	ds, err := ReadDataset(f)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %v", filepath, err)
	}
	return ds, err
}

/*
NewWriter takes an io.Writer and a slice of column names and returns a
Writer that will write records on the io.Writer with a column for each
of the names, after writing a header with them.
*/
func NewWriter(writer io.Writer, columns []string) (Writer, error) {
	w := csv.NewWriter(writer)
	err := w.Write(columns)
	if err != nil {
		return nil, fmt.Errorf("writing CSV header: %v", err)
	}
	return &csvWriter{columns: columns, w: w}, nil
}

func (cw *csvWriter) Count() int {
	return cw.count
}

func (cw *csvWriter) Write(records []dataset.Record) (int, error) {
	for n, r := range records {
		if err := cw.WriteRecord(r); err != nil {
			return n, err
		}
	}
	return len(records), nil
}

// WriteRecord writes a single record, leaving empty the columns the
// record has no value for
func (cw *csvWriter) WriteRecord(r dataset.Record) error {
	row := make([]string, len(cw.columns))
	for j, c := range cw.columns {
		if v, ok := r[c]; ok && v != nil {
			row[j] = fmt.Sprintf("%v", v)
		}
	}
	err := cw.w.Write(row)
	if err != nil {
		return fmt.Errorf("writing CSV row for record %d: %v", cw.count+1, err)
	}
	cw.count++
	return nil
}

func (cw *csvWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}
