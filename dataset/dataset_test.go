package dataset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/arboretum/dataset"
)

func TestMemoryDataset(t *testing.T) {
	records := []dataset.Record{
		{"sepal length": 5.1, "species": "Iris-setosa"},
		{"sepal length": 6.3},
	}
	ds := dataset.New(records)
	ctx := context.Background()

	count, err := ds.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	read, err := dataset.Collect(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, records, read)
}

func TestMemoryDatasetCancelled(t *testing.T) {
	ds := dataset.New([]dataset.Record{{"a": 1}, {"a": 2}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records, errs := ds.Read(ctx)
	// nobody receives, so the reader must give up on the cancelled context
	err := <-errs
	assert.Equal(t, context.Canceled, err)
	for range records {
	}
}

func TestRecordString(t *testing.T) {
	r := dataset.Record{"b": 2, "a": "x"}
	assert.Equal(t, "[a:x b:2]", r.String())
}
