package queue

import (
	"fmt"
	"strconv"

	"github.com/pbanos/arboretum/dataset"
)

// Task represents a record of a dataset to be
// predicted.
type Task struct {
	// The position of the record on its dataset
	Index int
	// The record to predict
	Record dataset.Record
}

// ID returns a string that identifies the
// task, the index of its record.
func (t *Task) ID() string {
	return strconv.Itoa(t.Index)
}

func (t *Task) String() string {
	return fmt.Sprintf("{Task %d %v}", t.Index, t.Record)
}
