package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pbanos/arboretum/queue"
	qjson "github.com/pbanos/arboretum/queue/json"
	"github.com/pbanos/arboretum/queue/redisq"
	"github.com/spf13/cobra"
	redis "gopkg.in/redis.v5"
)

type queueConfig struct {
	workers    int
	redisAddr  string
	redisDB    int
	queueID    string
	taskMaxRun time.Duration
	lockTTL    time.Duration
	client     *redis.Client
}

func (qc *queueConfig) addFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&(qc.workers), "workers", 1, "number of workers predicting the records of the dataset concurrently")
	cmd.Flags().StringVar(&(qc.redisAddr), "queue-redis", "", "address of a Redis server to keep the queue of records to predict (defaults to an in-memory queue)")
	cmd.Flags().IntVar(&(qc.redisDB), "queue-redis-db", 0, "number of the Redis database for the queue of records to predict")
	cmd.Flags().StringVar(&(qc.queueID), "queue-id", "", "prefix for the Redis keys of the queue (defaults to one based on the process ID)")
	cmd.Flags().DurationVar(&(qc.taskMaxRun), "task-max-run", time.Minute, "time a record may stay running on the Redis queue before it is dropped back")
	cmd.Flags().DurationVar(&(qc.lockTTL), "queue-lock-ttl", time.Second, "time to live of the locks on the records of the Redis queue")
}

func (qc *queueConfig) Validate() error {
	if qc.workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", qc.workers)
	}
	if qc.redisAddr != "" && qc.lockTTL <= 0 {
		return fmt.Errorf("queue-lock-ttl must be positive")
	}
	return nil
}

func (qc *queueConfig) parallel() bool {
	return qc.workers > 1 || qc.redisAddr != ""
}

// queue returns the queue the flags point to
func (qc *queueConfig) queue(ctx context.Context, l logger) (queue.Queue, error) {
	if qc.redisAddr == "" {
		l.Logf("Using an in-memory queue for %d workers", qc.workers)
		return queue.New(), nil
	}
	id := qc.queueID
	if id == "" {
		id = fmt.Sprintf("arboretum:predict:%d", os.Getpid())
	}
	l.Logf("Connecting to Redis at %s for queue %s...", qc.redisAddr, id)
	qc.client = redis.NewClient(&redis.Options{Addr: qc.redisAddr, DB: qc.redisDB})
	if err := qc.client.Ping().Err(); err != nil {
		qc.client.Close()
		qc.client = nil
		return nil, fmt.Errorf("connecting to redis queue at %s: %v", qc.redisAddr, err)
	}
	return redisq.New(id, qc.client, qc.taskMaxRun, qc.lockTTL, qjson.New()), nil
}

func (qc *queueConfig) Close() error {
	if qc.client == nil {
		return nil
	}
	return qc.client.Close()
}
