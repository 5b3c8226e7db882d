package worker

import (
	"context"
	"sync"

	"github.com/rankitpro/review-followup/pkg/logger"
)

type WorkerHandler = func(workerIndex int, job interface{})

type WorkerManager struct {
	bufferSize     int
	jobChannel     chan interface{}
	numberOfWorker int
	do             WorkerHandler
	waiter         *sync.WaitGroup
	closeOnce      sync.Once
}

// NewWorkerManager
// is a job manager based on go routines. Define the number of internal
// workers, then Start them and publish jobs with Enqueue. Jobs are
// distributed among the pool. Workers stop when the context passed to
// Start is done or when Close is called and the channel drains.
func NewWorkerManager(bufferSize, numberOfWorkers int) *WorkerManager {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}
	return &WorkerManager{
		bufferSize:     bufferSize,
		numberOfWorker: numberOfWorkers,
		jobChannel:     make(chan interface{}, bufferSize),
		waiter:         &sync.WaitGroup{},
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue
// Publishes a job onto the channel, blocking while the buffer is full.
// It returns false when ctx is done before the job was accepted.
func (w *WorkerManager) Enqueue(ctx context.Context, val interface{}) bool {
	select {
	case w.jobChannel <- val:
		return true
	case <-ctx.Done():
		return false
	}
}

// Start
// starts off the workers as many as defined
// by w.numberOfWorker. It does not block; use Wait.
func (w *WorkerManager) Start(ctx context.Context) {
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job, ok := <-w.jobChannel:
					if !ok {
						return
					}
					w.run(index, job)
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}
}

func (w *WorkerManager) run(index int, job interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker recovered from panic", "worker", index, "panic", r)
		}
	}()
	w.do(index, job)
}

// Close stops accepting jobs; workers exit once the buffer drains.
func (w *WorkerManager) Close() {
	w.closeOnce.Do(func() {
		close(w.jobChannel)
	})
}

// Wait blocks until every worker returned.
func (w *WorkerManager) Wait() {
	w.waiter.Wait()
}

// Exit closes the channel and waits for the workers.
func (w *WorkerManager) Exit() {
	logger.Info("Exit() is called and worker manager is going to be shutdown")
	w.Close()
	w.Wait()
}
