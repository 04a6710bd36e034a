package resolver

import (
	"context"
	"errors"
	"fmt"
)

type chain []ModelResolver

/*
NewChain takes some ModelResolvers and returns a ModelResolver that
asks them for an export in order, moving on to the next one only when
the current one does not know the model. Nothing is saved along the
way, so unlike NewCache the resolvers behind the first one are queried
every time.
*/
func NewChain(resolvers ...ModelResolver) ModelResolver {
	return chain(resolvers)
}

func (c chain) Resolve(ctx context.Context, id string) ([]byte, error) {
	for _, r := range c {
		export, err := r.Resolve(ctx, id)
		if err == nil {
			return export, nil
		}
		if !errors.Is(err, ErrModelNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
}
