package systems

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/geostore/engine/core"
)

// JobTask is one unit of work. OnComplete or OnFailure runs on the worker
// after Run returns.
type JobTask struct {
	Run        func() error
	OnComplete func()
	OnFailure  func(err error)
}

// JobSystem is a fixed pool of workers draining a job queue.
type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
}

var ErrNoWorkers = errors.New("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) Workers() int {
	return js.numWorkers
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.Run(); err != nil {
					core.LogDebug("job failed: %s", err)
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
				} else if job.OnComplete != nil {
					job.OnComplete()
				}
			}
		}()
	}
}

// Shutdown waits for the queued jobs and stops the workers.
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}

// Submit queues a job, blocking while the queue is full.
func (js *JobSystem) Submit(jt JobTask) {
	js.jobQueue <- jt
}

// RunAll runs every job on the pool and waits for all of them. The failures
// are combined into the returned error. Must not be called from a job.
func (js *JobSystem) RunAll(jobs ...func() error) error {
	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	wg.Add(len(jobs))
	for _, run := range jobs {
		js.Submit(JobTask{
			Run:        run,
			OnComplete: wg.Done,
			OnFailure: func(err error) {
				mu.Lock()
				errs = errors.CombineErrors(errs, err)
				mu.Unlock()
				wg.Done()
			},
		})
	}
	wg.Wait()
	return errs
}
