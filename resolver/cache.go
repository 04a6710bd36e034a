package resolver

import (
	"context"
	"errors"
	"fmt"
)

type cache struct {
	source ModelResolver
	store  Store
}

/*
NewCache takes a ModelResolver and a Store and returns a ModelResolver
that looks exports up in the store first and falls back to the given
resolver, saving what it gets from it in the store.
*/
func NewCache(source ModelResolver, store Store) ModelResolver {
	return &cache{source, store}
}

func (c *cache) Resolve(ctx context.Context, id string) ([]byte, error) {
	export, err := c.store.Resolve(ctx, id)
	if err == nil {
		return export, nil
	}
	if !errors.Is(err, ErrModelNotFound) {
		return nil, err
	}
	export, err = c.source.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = c.store.Store(ctx, id, export); err != nil {
		return nil, fmt.Errorf("caching %s: %v", id, err)
	}
	return export, nil
}
