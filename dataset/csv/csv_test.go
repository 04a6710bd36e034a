package csv_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/arboretum/dataset"
	"github.com/pbanos/arboretum/dataset/csv"
)

const irisCSV = `sepal length,petal length,species
5.1,1.4,Iris-setosa
6.3,,Iris-virginica
`

func TestReadDataset(t *testing.T) {
	ds, err := csv.ReadDataset(strings.NewReader(irisCSV))
	require.NoError(t, err)
	records, err := ds.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, dataset.Record{"sepal length": "5.1", "petal length": "1.4", "species": "Iris-setosa"}, records[0])
	assert.Equal(t, dataset.Record{"sepal length": "6.3", "species": "Iris-virginica"}, records[1])
}

func TestReadRecordsStops(t *testing.T) {
	var seen []int
	err := csv.ReadRecords(strings.NewReader(irisCSV), func(i int, _ dataset.Record) (bool, error) {
		seen = append(seen, i)
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, seen)
}

func TestReadDatasetBadRow(t *testing.T) {
	_, err := csv.ReadDataset(strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := csv.NewWriter(&buf, []string{"species", "prediction"})
	require.NoError(t, err)
	n, err := w.Write([]dataset.Record{
		{"species": "Iris-setosa", "prediction": "Iris-setosa"},
		{"prediction": 3.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, w.Flush())
	assert.Equal(t, 2, w.Count())
	assert.Equal(t, "species,prediction\nIris-setosa,Iris-setosa\n,3.5\n", buf.String())
}
