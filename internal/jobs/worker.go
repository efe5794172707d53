package jobs

import (
	"context"
	"log"
	"time"
)

// PassRunner runs one embedding pass over all dirty docs.
type PassRunner interface {
	ProcessDirtyDocs(ctx context.Context) error
}

// Worker polls for docs flagged for re-embedding. It is the asynchronous
// half of the pipeline: entity sync only flags docs, the worker (or an
// external POST /embed trigger) does the paid embedding work.
type Worker struct {
	runner       PassRunner
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(runner PassRunner, pollInterval time.Duration) *Worker {
	return &Worker{
		runner:       runner,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("embedding worker started with poll interval: %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("embedding worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("embedding worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.runner.ProcessDirtyDocs(ctx); err != nil {
				log.Printf("error running embedding pass: %v", err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("embedding worker shutdown complete")
}
