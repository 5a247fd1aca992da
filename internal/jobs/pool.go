package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/multimodal-agent/server/internal/domain"
	"github.com/multimodal-agent/server/internal/infra"
)

// ErrShutdownTimeout is returned when workers are still busy after the
// shutdown deadline.
var ErrShutdownTimeout = errors.New("jobs: shutdown timed out")

// Claimer hands out the next pending job id. domain.ErrNotFound means the
// queue is empty.
type Claimer interface {
	ClaimNext(ctx context.Context) (string, error)
}

// Processor runs a single job.
type Processor interface {
	Process(ctx context.Context, jobID string) (*Result, error)
}

// PoolConfig sizes a Pool.
type PoolConfig struct {
	Workers      int
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// Pool runs a fixed number of workers that claim and process jobs until
// stopped.
type Pool struct {
	claimer   Claimer
	processor Processor
	cfg       PoolConfig
	logger    *infra.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool fills zero config values with one worker, a 2s poll interval and
// no per-job timeout.
func NewPool(claimer Claimer, processor Processor, cfg PoolConfig, logger *infra.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Pool{claimer: claimer, processor: processor, cfg: cfg, logger: logger}
}

// Start launches the workers. They stop when ctx is cancelled or Shutdown
// is called.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	p.logger.Info().Int("workers", p.cfg.Workers).Msg("worker: started")
}

// Shutdown stops claiming new jobs and waits up to timeout for running jobs
// to finish.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info().Msg("worker: stopped")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (p *Pool) work(ctx context.Context, worker int) {
	defer p.wg.Done()
	log := p.logger.With().Int("worker", worker).Logger()

	for {
		if ctx.Err() != nil {
			return
		}

		jobID, err := p.claimer.ClaimNext(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) && ctx.Err() == nil {
				log.Error().Err(err).Msg("worker: failed to claim job")
			}
			if !sleep(ctx, p.cfg.PollInterval) {
				return
			}
			continue
		}

		p.handle(ctx, log, jobID)
	}
}

// handle runs one claimed job. The claim already moved it to PROCESSING, so
// cancellation of the pool does not abort it midway; only the job timeout
// does.
func (p *Pool) handle(ctx context.Context, log zerolog.Logger, jobID string) {
	jobCtx := context.WithoutCancel(ctx)
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, p.cfg.JobTimeout)
		defer cancel()
	}

	started := time.Now()
	log.Info().Str("job_id", jobID).Msg("worker: picked job")
	res, err := p.processor.Process(jobCtx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("worker: job failed")
		return
	}
	ev := log.Info().Str("job_id", jobID).Dur("elapsed", time.Since(started))
	if res != nil && res.Job != nil {
		ev = ev.Str("status", string(res.Job.Status))
	}
	ev.Msg("worker: job finished")
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
