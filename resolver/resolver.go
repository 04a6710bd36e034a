/*
Package resolver provides the means to retrieve the exports of the
models that make up an ensemble on demand.
*/
package resolver

import (
	"context"
)

// Error is the type of the errors resolvers return
type Error string

func (re Error) Error() string {
	return string(re)
}

// ErrModelNotFound is returned when a resolver does not know
// the requested model
const ErrModelNotFound = Error("model not found")

/*
ModelResolver is an interface for the sources of model exports.

Resolve takes a context and a model ID and returns the JSON export of
the model. It returns an error wrapping ErrModelNotFound if the model
is unknown and any other error if the source cannot be queried.
*/
type ModelResolver interface {
	Resolve(ctx context.Context, id string) ([]byte, error)
}

// Func is an adapter to use ordinary functions as ModelResolvers
type Func func(ctx context.Context, id string) ([]byte, error)

// Resolve calls f(ctx, id)
func (f Func) Resolve(ctx context.Context, id string) ([]byte, error) {
	return f(ctx, id)
}

/*
Store is an interface to manage a store where model exports can be
saved, retrieved and deleted.

All its methods take a context that may allow cancelling the
operation (thus forcing the return of an error) if the implementation
allows it.
*/
type Store interface {
	ModelResolver
	// Store takes a model ID and its export and saves the export
	// in the store, replacing any previous export for the ID
	Store(ctx context.Context, id string, export []byte) error
	// Delete takes a model ID and removes its export from the store.
	// Deleting an unknown model is not an error.
	Delete(ctx context.Context, id string) error
	// Close frees any resources in use by the store
	Close(ctx context.Context) error
}
