package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	mgo "gopkg.in/mgo.v2"
	yaml "gopkg.in/yaml.v2"

	"github.com/pbanos/arboretum/dataset"
	"github.com/pbanos/arboretum/dataset/csv"
	"github.com/pbanos/arboretum/dataset/json"
	"github.com/pbanos/arboretum/dataset/mongodataset"
	"github.com/pbanos/arboretum/dataset/sqldataset"
	"github.com/pbanos/arboretum/resolver/sqlresolver"
	"github.com/pbanos/arboretum/resolver/sqlresolver/pgadapter"
	"github.com/pbanos/arboretum/resolver/sqlresolver/sqlite3adapter"
	"github.com/spf13/cobra"
)

// defaultQuery is the query used to read datasets from SQL databases
// when none is given
const defaultQuery = "SELECT * FROM records"

/*
readInput reads a single input record in YAML or JSON from the file
at the given path or from STDIN if the path is empty.
*/
func readInput(filepath string) (map[string]interface{}, error) {
	var data []byte
	var err error
	if filepath == "" {
		data, err = ioutil.ReadAll(os.Stdin)
	} else {
		data, err = ioutil.ReadFile(filepath)
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %v", err)
	}
	raw := map[interface{}]interface{}{}
	if err = yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing input: %v", err)
	}
	input := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		input[fmt.Sprintf("%v", k)] = v
	}
	return input, nil
}

type datasetConfig struct {
	datasetInput string
	query        string
	collection   string
	closeFunc    func()
}

func (dc *datasetConfig) addFlags(cmd *cobra.Command, usage string) {
	cmd.Flags().StringVarP(&(dc.datasetInput), "dataset", "d", "", usage+": path to a CSV (.csv), JSON (.json) or SQLite3 (.db) file, or a PostgreSQL (postgresql://) or MongoDB (mongodb://) connection URL")
	cmd.Flags().StringVar(&(dc.query), "query", defaultQuery, "query returning the records of a dataset in an SQL database")
	cmd.Flags().StringVar(&(dc.collection), "collection", mongodataset.DefaultCollectionName, "collection with the records of a dataset in a MongoDB database")
}

/*
dataset returns a reader for the dataset the flags point to. CSV is
read from STDIN when the dataset flag is "-".
*/
func (dc *datasetConfig) dataset(ctx context.Context, l logger) (dataset.Reader, error) {
	input := dc.datasetInput
	switch {
	case input == "-":
		l.Logf("Reading dataset from STDIN...")
		return csv.ReadDatasetFromFilePath("")
	case strings.HasPrefix(input, "postgresql://") || strings.HasPrefix(input, "postgres://"):
		l.Logf("Connecting to PostgreSQL to read dataset...")
		adapter, err := pgadapter.New(input)
		if err != nil {
			return nil, err
		}
		return dc.sqlDataset(adapter), nil
	case strings.HasPrefix(input, "mongodb://"):
		l.Logf("Connecting to MongoDB to read dataset from collection %s...", dc.collection)
		session, err := mgo.Dial(input)
		if err != nil {
			return nil, fmt.Errorf("connecting to MongoDB: %v", err)
		}
		dc.closeFunc = session.Close
		return mongodataset.Open(session, dc.collection, nil), nil
	case strings.HasSuffix(input, ".db"):
		l.Logf("Opening SQLite3 database %s to read dataset...", input)
		adapter, err := sqlite3adapter.New(input)
		if err != nil {
			return nil, err
		}
		return dc.sqlDataset(adapter), nil
	case strings.HasSuffix(input, ".json") || strings.HasSuffix(input, ".jsonl"):
		l.Logf("Reading JSON dataset from %s...", input)
		return json.ReadDatasetFromFilePath(input)
	}
	l.Logf("Reading CSV dataset from %s...", input)
	return csv.ReadDatasetFromFilePath(input)
}

func (dc *datasetConfig) sqlDataset(adapter sqlresolver.Adapter) dataset.Reader {
	db := adapter.DB()
	dc.closeFunc = func() { db.Close() }
	return sqldataset.Open(db, dc.query)
}

func (dc *datasetConfig) Close() {
	if dc.closeFunc != nil {
		dc.closeFunc()
	}
}
