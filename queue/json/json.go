/*
Package json encodes prediction tasks as JSON so that they can be kept
on queues backed by external stores.
*/
package json

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pbanos/arboretum/dataset"
	"github.com/pbanos/arboretum/queue"
)

/*
TaskEncodeDecoder is an interface for objects
that allow encoding tasks as slices of bytes and decoding
them back to tasks. It is used to serialize tasks into a
representation to store on redis.
*/
type TaskEncodeDecoder interface {

	//Encode receives a *queue.Task
	// and returns a slice of bytes with the task encoded or an
	//error if the encoding could not be performed for
	//some reason. Its counterpart is Decode.
	Encode(context.Context, *queue.Task) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *queue.Task decoded from the slice of bytes
	//or an error if the decoding could not be performed
	//for some reason.
	Decode(context.Context, []byte) (*queue.Task, error)
}

type jsonEncodeDecoder struct{}

type jsonTask struct {
	Index  int            `json:"i"`
	Record dataset.Record `json:"r"`
}

// New returns a TaskEncodeDecoder that encodes tasks as
// JSON objects with the index and the record of the task
func New() TaskEncodeDecoder {
	return &jsonEncodeDecoder{}
}

func (jed *jsonEncodeDecoder) Encode(ctx context.Context, t *queue.Task) ([]byte, error) {
	data, err := json.Marshal(&jsonTask{Index: t.Index, Record: t.Record})
	if err != nil {
		return nil, fmt.Errorf("encoding task %s as json: %v", t.ID(), err)
	}
	return data, nil
}

func (jed *jsonEncodeDecoder) Decode(ctx context.Context, data []byte) (*queue.Task, error) {
	jt := &jsonTask{}
	err := json.Unmarshal(data, jt)
	if err != nil {
		return nil, fmt.Errorf("decoding task from json: %v", err)
	}
	if jt.Record == nil {
		return nil, fmt.Errorf("decoding json task %d: no record", jt.Index)
	}
	return &queue.Task{Index: jt.Index, Record: jt.Record}, nil
}
