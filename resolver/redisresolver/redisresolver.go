/*
Package redisresolver provides an implementation of resolver.Store
backed by a redis DB.
*/
package redisresolver

import (
	"context"
	"fmt"
	"time"

	"github.com/xh3b4sd/tracer"
	"gopkg.in/redis.v5"

	"github.com/pbanos/arboretum/resolver"
)

// DefaultPrefix is the key prefix used when none is given
const DefaultPrefix = "arboretum:model"

type redisStore struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

/*
New takes a redis client, a key prefix and a time to live and returns a
resolver.Store that keeps the export of each model under the key
prefix:ID. Exports expire after the given ttl, unless it is 0.
*/
func New(rc *redis.Client, prefix string, ttl time.Duration) resolver.Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &redisStore{rc, prefix, ttl}
}

// Dial takes the address of a redis server, a DB number and a key
// prefix and returns a Store on a new client for that server.
func Dial(addr string, db int, prefix string) (resolver.Store, error) {
	rc := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	err := rc.Ping().Err()
	if err != nil {
		rc.Close()
		return nil, tracer.Mask(err)
	}
	return New(rc, prefix, 0), nil
}

func (rs *redisStore) Resolve(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	export, err := rs.rc.Get(rs.keyFor(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("resolving %s: %w", id, resolver.ErrModelNotFound)
	}
	if err != nil {
		return nil, tracer.Mask(err)
	}
	return export, nil
}

func (rs *redisStore) Store(ctx context.Context, id string, export []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := rs.rc.Set(rs.keyFor(id), export, rs.ttl).Result()
	if err != nil {
		return tracer.Mask(err)
	}
	return nil
}

func (rs *redisStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := rs.rc.Del(rs.keyFor(id)).Result()
	if err != nil {
		return tracer.Mask(err)
	}
	return nil
}

func (rs *redisStore) Close(ctx context.Context) error {
	return rs.rc.Close()
}

func (rs *redisStore) keyFor(id string) string {
	return fmt.Sprintf("%s:%s", rs.prefix, id)
}
