package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// maxDrainRounds bounds how many back-to-back polls one tick or wake may run.
const maxDrainRounds = 20

// JobProcessor claims and runs a batch of jobs, returning how many it claimed.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) (int, error)
}

// Worker polls its processor on an interval and whenever it is woken. A poll that
// claimed jobs is followed by another one straight away, so a backlog larger than
// one claim batch drains without waiting for the next tick.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	wake         chan struct{}
	stop         chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the loop until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	log.Printf("jobs: worker started with poll interval %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("jobs: worker stopped, context cancelled")
			return
		case <-w.stop:
			log.Println("jobs: worker stopped, stop signal received")
			return
		case <-ticker.C:
		case <-w.wake:
		}
		w.drain(ctx)
	}
}

func (w *Worker) drain(ctx context.Context) {
	for round := 0; round < maxDrainRounds; round++ {
		n, err := w.processor.ProcessJobs(ctx)
		if err != nil {
			log.Printf("jobs: error processing jobs: %v", err)
			return
		}
		if n == 0 || ctx.Err() != nil {
			return
		}
		select {
		case <-w.stop:
			return
		default:
		}
	}
	log.Printf("jobs: backlog remains after %d rounds, continuing on next tick", maxDrainRounds)
}

// Wake asks the loop to poll now instead of waiting for the next tick. It never blocks.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Stop ends the loop and waits for the batch in flight. Calling it twice is safe.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
	log.Println("jobs: worker shutdown complete")
}
