/*
Package redisq provides a queue.Queue backed by redis, so that
workers on several processes can share the prediction of a dataset.
*/
package redisq

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/pbanos/arboretum/queue"
	redis "gopkg.in/redis.v5"
)

// EncodeDecoder turns record tasks into the bytes kept under the
// data key of each task and back
type EncodeDecoder interface {
	Encode(context.Context, *queue.Task) ([]byte, error)
	Decode(context.Context, []byte) (*queue.Task, error)
}

type redisQ struct {
	id         string
	rc         *redis.Client
	allTaskCtx context.Context
	allTaskCF  context.CancelFunc
	taskMaxRun time.Duration
	lockTTL    time.Duration
	EncodeDecoder
}

const lockReleaseScript = `
if redis.call("GET",KEYS[1]) == ARGV[1] then
    return redis.call("DEL",KEYS[1])
else
    return 0
end
`
const lockAttempts = 5
const failToLockSleep = 10 * time.Millisecond

/*
New returns a queue.Queue kept on Redis through rc, so that workers in
several processes can share the records of a dataset. All keys start
with id:

	id:pending               set of the IDs of pending tasks
	id:running               set of the IDs of running tasks
	id:task:<task>:data      encoded record task, removed on completion
	id:task:<task>:lock      per task lock, expiring after lockTTL
	id:task:<task>:running   mark of a pulled task, expiring after taskMaxRun

A running task whose mark has expired is taken for abandoned by a
crashed worker and moved back to pending. A zero taskMaxRun never
expires the marks.

The queue may be used from several goroutines.
*/
func New(id string, rc *redis.Client, taskMaxRun, lockTTL time.Duration, encDec EncodeDecoder) queue.Queue {
	ctx, cf := context.WithCancel(context.Background())
	rq := &redisQ{
		id:            id,
		rc:            rc,
		allTaskCtx:    ctx,
		allTaskCF:     cf,
		taskMaxRun:    taskMaxRun,
		lockTTL:       lockTTL,
		EncodeDecoder: encDec,
	}
	if taskMaxRun > 0 {
		go rq.dropTimedOutTasks()
	}
	return rq
}

// Push saves the encoded task and adds its ID to the pending set
func (rq *redisQ) Push(ctx context.Context, t *queue.Task) error {
	data, err := rq.Encode(ctx, t)
	if err != nil {
		return fmt.Errorf("pushing task %s to queue: %v", t.ID(), err)
	}
	tKeyPrefix := rq.taskKeyPrefix(t.ID())
	tDataKey := fmt.Sprintf("%s:data", tKeyPrefix)
	ok, err := rq.rc.SetNX(tDataKey, string(data), time.Duration(0)).Result()
	if err != nil {
		return fmt.Errorf("pushing task %s to queue: %v", t.ID(), err)
	}
	if !ok {
		return fmt.Errorf("pushing task %s to queue: key %q already exists", t.ID(), tDataKey)
	}
	added, err := rq.rc.SAdd(rq.pendingSetKey(), tKeyPrefix).Result()
	if err != nil || added != 1 {
		rq.rc.Del(tDataKey)
		if err == nil {
			err = fmt.Errorf("%q already in pending set %q", tKeyPrefix, rq.pendingSetKey())
		}
		return fmt.Errorf("pushing task %s to queue %s: %v", t.ID(), rq.id, err)
	}
	return nil
}

// Pull claims the first pending task the scan of the pending set
// yields and returns it decoded. The task context ends when the
// running mark expires or the queue stops. Tasks whose data cannot be
// read are dropped back and skipped.
func (rq *redisQ) Pull(ctx context.Context) (*queue.Task, context.Context, context.CancelFunc, error) {
	iter := rq.rc.SScan(rq.pendingSetKey(), 0, "", 0).Iterator()
	for iter.Next() {
		prefix := iter.Val()
		if err := rq.withLockFor(ctx, prefix, 0, func(ctx context.Context) error {
			return rq.claim(ctx, prefix)
		}); err != nil {
			continue
		}
		t, err := rq.load(ctx, prefix)
		if err != nil {
			rq.Drop(ctx, taskIDFrom(prefix))
			continue
		}
		tctx, tcf := rq.taskContext()
		return t, tctx, tcf, nil
	}
	if err := iter.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("scanning pending set %q: %v", rq.pendingSetKey(), err)
	}
	return nil, nil, nil, nil
}

// claim sets the running mark of a task and moves it to the running
// set, failing if another worker got it first
func (rq *redisQ) claim(ctx context.Context, prefix string) error {
	mark := fmt.Sprintf("%s:running", prefix)
	ok, err := rq.rc.SetNX(mark, "true", rq.taskMaxRun).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %q already running", prefix)
	}
	if _, err = rq.rc.SMove(rq.pendingSetKey(), rq.runningSetKey(), prefix).Result(); err != nil {
		if ctx.Err() == nil {
			rq.rc.Del(mark)
		}
		return fmt.Errorf("moving %q to running set %q: %v", prefix, rq.runningSetKey(), err)
	}
	return nil
}

func (rq *redisQ) load(ctx context.Context, prefix string) (*queue.Task, error) {
	data, err := rq.rc.Get(fmt.Sprintf("%s:data", prefix)).Bytes()
	if err != nil {
		return nil, err
	}
	return rq.Decode(ctx, data)
}

func (rq *redisQ) taskContext() (context.Context, context.CancelFunc) {
	if rq.taskMaxRun == 0 {
		return context.WithCancel(rq.allTaskCtx)
	}
	return context.WithTimeout(rq.allTaskCtx, rq.taskMaxRun)
}

// Drop moves the ID back to the pending set if it is still running
func (rq *redisQ) Drop(ctx context.Context, id string) error {
	tKeyPrefix := rq.taskKeyPrefix(id)
	err := rq.withLockFor(ctx, tKeyPrefix, lockAttempts, func(ctx context.Context) error {
		ok, err := rq.rc.SMove(rq.runningSetKey(), rq.pendingSetKey(), tKeyPrefix).Result()
		if err != nil {
			return fmt.Errorf("moving %q from %q to %q: %v", tKeyPrefix, rq.runningSetKey(), rq.pendingSetKey(), err)
		}
		if !ok {
			return nil
		}
		runningMarkKey := fmt.Sprintf("%s:running", tKeyPrefix)
		_, err = rq.rc.Del(runningMarkKey).Result()
		if err != nil {
			return fmt.Errorf("removing %q: %v", runningMarkKey, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dropping %s: %v", id, err)
	}
	return nil
}

// Complete removes the ID from the running set along its data
func (rq *redisQ) Complete(ctx context.Context, id string) error {
	tKeyPrefix := rq.taskKeyPrefix(id)
	err := rq.withLockFor(ctx, tKeyPrefix, lockAttempts, func(ctx context.Context) error {
		count, err := rq.rc.SRem(rq.runningSetKey(), tKeyPrefix).Result()
		if err != nil {
			return fmt.Errorf("removing %q from %q: %v", tKeyPrefix, rq.runningSetKey(), err)
		}
		if count == 0 {
			return nil
		}
		keys := []string{fmt.Sprintf("%s:running", tKeyPrefix), fmt.Sprintf("%s:data", tKeyPrefix)}
		_, err = rq.rc.Del(keys...).Result()
		if err != nil {
			return fmt.Errorf("removing %v: %v", keys, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("completing %s: %v", id, err)
	}
	return nil
}

// Count returns the sizes of the pending and running sets
func (rq *redisQ) Count(context.Context) (int, int, error) {
	// count pending and running sets at the same time to prevent a task
	// moving between them from triggering a false "work finished" event
	cmd := redis.NewSliceCmd(
		"EVAL",
		`return {redis.call("SCARD", KEYS[1]), redis.call("SCARD", KEYS[2])}`,
		2,
		rq.pendingSetKey(),
		rq.runningSetKey(),
	)
	err := rq.rc.Process(cmd)
	if err != nil {
		return 0, 0, fmt.Errorf("counting tasks: %v", err)
	}
	v, err := cmd.Result()
	if err != nil {
		return 0, 0, fmt.Errorf("counting tasks: %v", err)
	}
	if len(v) != 2 {
		return 0, 0, fmt.Errorf("counting tasks: redis returned %d counts instead of 2", len(v))
	}
	p64, ok := v[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("counting tasks: cannot extract integer pending tasks count from %v (%T)", v[0], v[0])
	}
	r64, ok := v[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("counting tasks: cannot extract integer running tasks count from %v (%T)", v[1], v[1])
	}
	return int(p64), int(r64), nil
}

// Stop cancels the contexts of pulled tasks and
// the cleanup of timed out tasks.
func (rq *redisQ) Stop(context.Context) error {
	rq.allTaskCF()
	return nil
}

func (rq *redisQ) String() string {
	return fmt.Sprintf("{redis queue %s}", rq.id)
}

func (rq *redisQ) taskKeyPrefix(taskID string) string {
	return fmt.Sprintf("%s:task:%s", rq.id, taskID)
}

func (rq *redisQ) pendingSetKey() string {
	return fmt.Sprintf("%s:pending", rq.id)
}

func (rq *redisQ) runningSetKey() string {
	return fmt.Sprintf("%s:running", rq.id)
}

func taskIDFrom(taskKeyPrefix string) string {
	tokens := strings.Split(taskKeyPrefix, ":")
	return tokens[len(tokens)-1]
}

func (rq *redisQ) withLockFor(ctx context.Context, taskKeyPrefix string, additionalAttempts int, f func(ctx context.Context) error) error {
	tLockKey := fmt.Sprintf("%s:lock", taskKeyPrefix)
	tLockValue := randString(20)
	lctx, cf := context.WithTimeout(ctx, rq.lockTTL)
	defer cf()
	ok, err := rq.rc.SetNX(tLockKey, tLockValue, rq.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("could not acquire lock: %v", err)
	}
	if !ok {
		if additionalAttempts > 0 {
			cf()
			d, _ := rq.rc.TTL(tLockKey).Result()
			time.Sleep(d + time.Duration(rand.Int63n(int64(failToLockSleep)*int64(additionalAttempts))))
			return rq.withLockFor(ctx, taskKeyPrefix, additionalAttempts-1, f)
		}
		return fmt.Errorf("could not acquire lock: already taken")
	}
	defer func() {
		rq.rc.Eval(lockReleaseScript, []string{tLockKey}, tLockValue)
	}()
	return f(lctx)
}

func (rq *redisQ) dropTimedOutTasks() {
	ticker := time.NewTicker(rq.taskMaxRun / 2)
	defer ticker.Stop()
	for {
		iter := rq.rc.SScan(rq.runningSetKey(), 0, "", 0).Iterator()
		for iter.Next() {
			var timedOut bool
			tKeyPrefix := iter.Val()
			rq.withLockFor(rq.allTaskCtx, tKeyPrefix, 0, func(ctx context.Context) error {
				exists, err := rq.rc.Exists(fmt.Sprintf("%s:running", tKeyPrefix)).Result()
				if err != nil {
					return err
				}
				timedOut = !exists
				return nil
			})
			if timedOut {
				rq.Drop(rq.allTaskCtx, taskIDFrom(tKeyPrefix))
			}
			if rq.allTaskCtx.Err() != nil {
				return
			}
		}
		select {
		case <-rq.allTaskCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
