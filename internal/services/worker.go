package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruitflow/assessment-api/internal/repositories"
)

type StageKind string

const (
	StageCV    StageKind = "cv"
	StageVideo StageKind = "video"
)

// StageJob is one unit of background analysis.
type StageJob struct {
	ID             uuid.UUID `json:"id"`
	Kind           StageKind `json:"kind"`
	ApplicationID  uint      `json:"application_id"`
	QuestionIndex  int       `json:"question_index,omitempty"`
	JobDescription string    `json:"job_description,omitempty"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

func NewCVStageJob(applicationID uint, jobDescription string) StageJob {
	return StageJob{
		ID:             uuid.New(),
		Kind:           StageCV,
		ApplicationID:  applicationID,
		JobDescription: jobDescription,
		EnqueuedAt:     time.Now(),
	}
}

func NewVideoStageJob(applicationID uint, questionIndex int) StageJob {
	return StageJob{
		ID:            uuid.New(),
		Kind:          StageVideo,
		ApplicationID: applicationID,
		QuestionIndex: questionIndex,
		EnqueuedAt:    time.Now(),
	}
}

func (j StageJob) key() string {
	if j.Kind == StageVideo {
		return fmt.Sprintf("video:%d:%d", j.ApplicationID, j.QuestionIndex)
	}
	return fmt.Sprintf("cv:%d", j.ApplicationID)
}

// ErrQueueFull is returned by Dispatch when the worker cannot take another job right now.
var ErrQueueFull = errors.New("stage queue is full")

// Dispatcher hands a stage job to whatever runs it. Dispatch never waits for the stage itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, job StageJob) error
}

// StageRunner executes the background stages.
type StageRunner interface {
	RunCVStage(ctx context.Context, applicationID uint, jobDescription string) error
	RunVideoStage(ctx context.Context, applicationID uint, questionIndex int) error
}

type Worker interface {
	Dispatcher
	Start(ctx context.Context)
	Stop()
}

type WorkerOptions struct {
	Concurrency      int
	Buffer           int
	RecoveryInterval time.Duration
}

type worker struct {
	runner   StageRunner
	cvRepo   repositories.CvRepository
	opts     WorkerOptions
	logger   *zap.Logger
	metrics  *PipelineMetrics
	jobQueue chan StageJob
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	inFlight  map[string]struct{}
	recovered map[uint]int
}

// maxRecoveryAttempts bounds how often the poller re-runs a CV stage that keeps failing before
// it is finalized, e.g. a dead download link.
const maxRecoveryAttempts = 3

func NewWorker(
	runner StageRunner,
	cvRepo repositories.CvRepository,
	opts WorkerOptions,
	logger *zap.Logger,
	metrics *PipelineMetrics,
) Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Buffer < 1 {
		opts.Buffer = 100
	}
	return &worker{
		runner:    runner,
		cvRepo:    cvRepo,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		jobQueue:  make(chan StageJob, opts.Buffer),
		stopChan:  make(chan struct{}),
		inFlight:  make(map[string]struct{}),
		recovered: make(map[uint]int),
	}
}

func (w *worker) Start(ctx context.Context) {
	w.logger.Info("starting stage worker", zap.Int("concurrency", w.opts.Concurrency))

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	if w.opts.RecoveryInterval > 0 && w.cvRepo != nil {
		w.wg.Add(1)
		go w.pollUnprocessed(ctx)
	}
}

func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("stopping stage worker")
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("stage worker stopped")
}

// Dispatch queues job unless an identical stage is already queued or running. It never waits
// for queue space: a full queue returns ErrQueueFull.
func (w *worker) Dispatch(ctx context.Context, job StageJob) error {
	key := job.key()

	select {
	case <-w.stopChan:
		return fmt.Errorf("worker stopped, cannot enqueue %s", key)
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	w.mu.Lock()
	if _, busy := w.inFlight[key]; busy && job.Kind == StageCV {
		w.mu.Unlock()
		w.logger.Debug("stage already in flight", zap.String("key", key))
		return nil
	}
	w.inFlight[key] = struct{}{}
	w.mu.Unlock()

	select {
	case w.jobQueue <- job:
		w.logger.Debug("stage enqueued", zap.String("job_id", job.ID.String()), zap.String("key", key))
		return nil
	default:
		w.release(key)
		w.metrics.QueueRejected(string(job.Kind))
		return fmt.Errorf("%w: %s", ErrQueueFull, key)
	}
}

func (w *worker) release(key string) {
	w.mu.Lock()
	delete(w.inFlight, key)
	w.mu.Unlock()
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case job := <-w.jobQueue:
			w.run(ctx, workerID, job)
		}
	}
}

// run executes one stage. A panicking stage is logged and counted, never fatal to the worker.
func (w *worker) run(ctx context.Context, workerID int, job StageJob) {
	log := w.logger.With(
		zap.Int("worker", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("stage", string(job.Kind)),
		zap.Uint("application_id", job.ApplicationID),
	)
	started := time.Now()
	w.metrics.StageStarted(string(job.Kind))

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panicked: %v", r)
		}
		w.release(job.key())
		w.metrics.StageFinished(string(job.Kind), started, err != nil)
		if err != nil {
			log.Error("stage failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
			return
		}
		log.Info("stage completed", zap.Duration("elapsed", time.Since(started)))
	}()

	switch job.Kind {
	case StageCV:
		err = w.runner.RunCVStage(ctx, job.ApplicationID, job.JobDescription)
	case StageVideo:
		err = w.runner.RunVideoStage(ctx, job.ApplicationID, job.QuestionIndex)
	default:
		err = fmt.Errorf("unknown stage kind %q", job.Kind)
	}
}

// pollUnprocessed re-dispatches CV records that never got finalized, e.g. after a restart.
func (w *worker) pollUnprocessed(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.RecoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.recoverOnce(ctx)
		}
	}
}

func (w *worker) recoverOnce(ctx context.Context) {
	records, err := w.cvRepo.FindUnprocessed(ctx, 50)
	if err != nil {
		w.logger.Warn("failed to fetch unprocessed cv records", zap.Error(err))
		return
	}
	for _, record := range records {
		w.mu.Lock()
		attempts := w.recovered[record.ApplicationID]
		if attempts < maxRecoveryAttempts {
			w.recovered[record.ApplicationID] = attempts + 1
		}
		w.mu.Unlock()
		if attempts >= maxRecoveryAttempts {
			continue
		}

		if err := w.Dispatch(ctx, NewCVStageJob(record.ApplicationID, "")); err != nil {
			w.mu.Lock()
			w.recovered[record.ApplicationID] = attempts
			w.mu.Unlock()
			w.logger.Warn("failed to re-dispatch cv stage", zap.Uint("application_id", record.ApplicationID), zap.Error(err))
			return
		}
	}
}
