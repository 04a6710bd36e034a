package main

import (
	"context"
	"fmt"

	"github.com/pbanos/arboretum/resolver"
	"github.com/pbanos/arboretum/resolver/fileresolver"
	"github.com/pbanos/arboretum/resolver/mongoresolver"
	"github.com/pbanos/arboretum/resolver/redisresolver"
	"github.com/pbanos/arboretum/resolver/sqlresolver"
	"github.com/pbanos/arboretum/resolver/sqlresolver/pgadapter"
	"github.com/pbanos/arboretum/resolver/sqlresolver/sqlite3adapter"
	"github.com/spf13/cobra"
)

type resolverConfig struct {
	modelsDir   string
	redisAddr   string
	redisDB     int
	redisPrefix string
	sqlitePath  string
	postgresURL string
	mongoURL    string
	cache       bool
}

func (rc *resolverConfig) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&(rc.modelsDir), "models-dir", "", "path to a directory with the exports of models as JSON files")
	cmd.Flags().StringVar(&(rc.redisAddr), "redis", "", "address of a Redis server with the exports of models")
	cmd.Flags().IntVar(&(rc.redisDB), "redis-db", 0, "number of the Redis database with the exports of models")
	cmd.Flags().StringVar(&(rc.redisPrefix), "redis-prefix", redisresolver.DefaultPrefix, "prefix of the Redis keys of model exports")
	cmd.Flags().StringVar(&(rc.sqlitePath), "sqlite", "", "path to an SQLite3 database with a models table holding model exports")
	cmd.Flags().StringVar(&(rc.postgresURL), "postgres", "", "PostgreSQL connection URL to a database with a models table holding model exports")
	cmd.Flags().StringVar(&(rc.mongoURL), "mongo", "", "MongoDB connection URL to a database with a models collection holding model exports")
	cmd.Flags().BoolVar(&(rc.cache), "cache", false, "keep the model exports retrieved in memory so they are retrieved only once")
}

func (rc *resolverConfig) Validate() error {
	set := 0
	for _, v := range []string{rc.modelsDir, rc.redisAddr, rc.sqlitePath, rc.postgresURL, rc.mongoURL} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("only one of the models-dir, redis, sqlite, postgres and mongo flags can be set")
	}
	return nil
}

/*
store returns the store of model exports the flags point to, or nil
if they point to none.
*/
func (rc *resolverConfig) store(ctx context.Context, l logger) (resolver.Store, error) {
	switch {
	case rc.modelsDir != "":
		l.Logf("Using model exports in directory %s...", rc.modelsDir)
		return fileresolver.New(rc.modelsDir)
	case rc.redisAddr != "":
		l.Logf("Connecting to Redis at %s for model exports...", rc.redisAddr)
		return redisresolver.Dial(rc.redisAddr, rc.redisDB, rc.redisPrefix)
	case rc.sqlitePath != "":
		l.Logf("Opening SQLite3 database %s for model exports...", rc.sqlitePath)
		adapter, err := sqlite3adapter.New(rc.sqlitePath)
		if err != nil {
			return nil, err
		}
		return sqlresolver.New(ctx, adapter)
	case rc.postgresURL != "":
		l.Logf("Connecting to PostgreSQL for model exports...")
		adapter, err := pgadapter.New(rc.postgresURL)
		if err != nil {
			return nil, err
		}
		return sqlresolver.New(ctx, adapter)
	case rc.mongoURL != "":
		l.Logf("Connecting to MongoDB for model exports...")
		return mongoresolver.Dial(rc.mongoURL)
	}
	return nil, nil
}

// resolver returns the resolver the flags point to, wrapped in a
// memory cache if requested
func (rc *resolverConfig) resolver(ctx context.Context, l logger) (resolver.ModelResolver, resolver.Store, error) {
	store, err := rc.store(ctx, l)
	if err != nil || store == nil {
		return nil, nil, err
	}
	if rc.cache {
		return resolver.NewCache(store, resolver.NewMemoryStore()), store, nil
	}
	return store, store, nil
}
