package arboretum

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pbanos/arboretum/dataset"
	"github.com/pbanos/arboretum/queue"
	"github.com/pbanos/arboretum/tree"
)

// DefaultEmptyQueueSleep is the time workers wait before pulling
// again from a queue with no pending tasks but with running ones.
const DefaultEmptyQueueSleep = 100 * time.Millisecond

// Enqueue takes a context, a dataset reader and a queue and
// pushes a task for every record read from the dataset.
// It returns the number of tasks pushed or an error if the
// dataset cannot be read or a task cannot be pushed (in the
// amount of time allowed by the given context).
func Enqueue(ctx context.Context, r dataset.Reader, q queue.Queue) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	records, errs := r.Read(ctx)
	i := 0
	for record := range records {
		err := q.Push(ctx, &queue.Task{Index: i, Record: record})
		if err != nil {
			return i, err
		}
		i++
	}
	return i, <-errs
}

// Work takes a context, a predictor, a queue, prediction options,
// a lambda function and an emptyQueueSleep duration and enters a
// loop in which it:
//   * pulls a task from the queue,
//   * predicts its record with the predictor,
//   * calls the lambda function with the task and its prediction,
//   * marks the task as completed on the queue
//
// If at some point no task can be pulled from the queue and
// the sum of tasks running and pending on the queue is 0, the
// worker ends returning nil. If no task can be pulled but the
// sum is not 0, then the worker will sleep for the given
// emptyQueueSleep duration and then retry.
//
// Work will return a non-nil error if the given context
// times out or is cancelled, if the prediction or the lambda
// function fail or if an operation with the given queue returns
// a non-nil error. Tasks that fail are dropped back to the queue.
func Work(ctx context.Context, p Predictor, q queue.Queue, opts *PredictOptions, lambda func(*queue.Task, *tree.Prediction) error, emptyQueueSleep time.Duration) error {
	for {
		task, tctx, tcf, err := q.Pull(ctx)
		if err != nil {
			return err
		}
		if task == nil {
			pending, running, err := q.Count(ctx)
			if err != nil {
				return err
			}
			if pending+running == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(emptyQueueSleep):
			}
			continue
		}
		mctx, cancel := mergeCtxCancel(tctx, ctx)
		err = workTask(mctx, p, task, q, opts, lambda)
		cancel()
		tcf()
		if err != nil {
			return err
		}
		err = ctx.Err()
		if err != nil {
			return err
		}
	}
	return nil
}

func workTask(ctx context.Context, p Predictor, task *queue.Task, q queue.Queue, opts *PredictOptions, lambda func(*queue.Task, *tree.Prediction) error) error {
	defer func() {
		q.Drop(ctx, task.ID())
	}()
	prediction, err := p.Predict(ctx, task.Record, opts)
	if err != nil {
		return fmt.Errorf("predicting record %d: %w", task.Index, err)
	}
	if err = lambda(task, prediction); err != nil {
		return err
	}
	return q.Complete(ctx, task.ID())
}

// ParallelPredict takes a context, a predictor, a dataset reader, a
// queue, prediction options, a number of workers and a lambda function.
// It pushes the records of the dataset to the queue and runs the given
// number of workers to predict them, calling the lambda function with
// the index of every record, the record and its prediction. The lambda
// function is called from several goroutines at once and records may
// be predicted in any order.
//
// It returns the first error any worker or the enqueuing of records
// return, cancelling the rest of workers.
func ParallelPredict(ctx context.Context, p Predictor, r dataset.Reader, q queue.Queue, opts *PredictOptions, workers int, lambda func(int, dataset.Record, *tree.Prediction) error) error {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	_, err := Enqueue(ctx, r, q)
	if err != nil {
		return fmt.Errorf("enqueuing records: %w", err)
	}
	wg := &sync.WaitGroup{}
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := Work(ctx, p, q, opts, func(t *queue.Task, pr *tree.Prediction) error {
				return lambda(t.Index, t.Record, pr)
			}, DefaultEmptyQueueSleep)
			if err != nil {
				errs <- err
				cancel()
			}
		}()
	}
	wg.Wait()
	close(errs)
	return <-errs
}

func mergeCtxCancel(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	mctx, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-mctx.Done():
		case <-ctx2.Done():
			cancel()
		}
	}()
	return mctx, cancel
}
