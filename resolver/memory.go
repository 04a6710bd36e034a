package resolver

import (
	"context"
	"fmt"
	"sync"
)

type memoryStore struct {
	exports map[string][]byte
	lock    *sync.RWMutex
}

// NewMemoryStore returns an implementation of Store with the
// process memory space as underlying backend
func NewMemoryStore() Store {
	return &memoryStore{
		exports: make(map[string][]byte),
		lock:    &sync.RWMutex{},
	}
}

func (ms *memoryStore) Store(ctx context.Context, id string, export []byte) error {
	return ms.withLock(ctx, func(ctx context.Context) error {
		ms.exports[id] = export
		return nil
	})
}

func (ms *memoryStore) Resolve(ctx context.Context, id string) ([]byte, error) {
	var export []byte
	var ok bool
	err := ms.withRLock(ctx, func(ctx context.Context) error {
		export, ok = ms.exports[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("resolving %s: %w", id, ErrModelNotFound)
	}
	return export, nil
}

func (ms *memoryStore) Delete(ctx context.Context, id string) error {
	return ms.withLock(ctx, func(ctx context.Context) error {
		delete(ms.exports, id)
		return nil
	})
}

func (ms *memoryStore) Close(ctx context.Context) error {
	return nil
}

func (ms *memoryStore) withLock(ctx context.Context, f func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gotLock := make(chan struct{})
	go func() {
		ms.lock.Lock()
		select {
		case <-ctx.Done():
			ms.lock.Unlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.Unlock()
	}
	return f(ctx)
}

func (ms *memoryStore) withRLock(ctx context.Context, f func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gotLock := make(chan struct{})
	go func() {
		ms.lock.RLock()
		select {
		case <-ctx.Done():
			ms.lock.RUnlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.RUnlock()
	}
	return f(ctx)
}
