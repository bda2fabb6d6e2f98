package ingest

import (
	"context"
	"log"
	"sync"
	"time"
)

type QueueConfig struct {
	Workers     int
	BufferSize  int
	MaxAttempts int
	RetryDelay  time.Duration
}

type job struct {
	documentID string
	attempts   int
}

// Queue runs ingestion jobs in the background. Enqueue never blocks the
// caller for the duration of the job; workers pick jobs up and retry a
// failed document a bounded number of times.
type Queue struct {
	config   QueueConfig
	pipeline *Pipeline
	jobs     chan job
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

func NewQueue(config QueueConfig, pipeline *Pipeline) *Queue {
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}

	return &Queue{
		config:   config,
		pipeline: pipeline,
		jobs:     make(chan job, config.BufferSize),
	}
}

func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue schedules a document for ingestion. It returns false if the
// queue buffer is full.
func (q *Queue) Enqueue(documentID string) bool {
	select {
	case q.jobs <- job{documentID: documentID, attempts: 0}:
		return true
	default:
		log.Printf("ingest queue full, dropping document %s", documentID)
		return false
	}
}

// Stop cancels running jobs and waits for workers to exit.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			q.run(ctx, j)
		}
	}
}

func (q *Queue) run(ctx context.Context, j job) {
	stored, err := q.pipeline.Process(ctx, j.documentID)
	if err == nil {
		log.Printf("ingested document %s (%d chunks)", j.documentID, stored)
		return
	}

	j.attempts++
	if j.attempts >= q.config.MaxAttempts {
		log.Printf("giving up on document %s after %d attempts: %v", j.documentID, j.attempts, err)
		return
	}

	log.Printf("retrying document %s (attempt %d): %v", j.documentID, j.attempts, err)

	select {
	case <-ctx.Done():
	case <-time.After(q.config.RetryDelay):
		select {
		case q.jobs <- j:
		default:
			log.Printf("ingest queue full, dropping retry of document %s", j.documentID)
		}
	}
}
