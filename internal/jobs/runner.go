// Package jobs executes queued render jobs, giving each one an isolated,
// lock-guarded temp directory.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"clipforge/internal/asr"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/render"
)

// Renderer runs one complete render. Satisfied by *render.Orchestrator.
type Renderer interface {
	Render(ctx context.Context) (render.Result, error)
}

// OrchestratorFactory builds the renderer for one job's scoped config and
// temp directory.
type OrchestratorFactory func(ctx context.Context, cfg *config.Config, tempDir string) (Renderer, func(progress func(stage string)), error)

// Runner drains the job queue. Jobs run one at a time per Runner; multiple
// runners may share a store because claims are status-guarded, and the
// per-job temp directories keep their intermediate files apart.
type Runner struct {
	cfg     *config.Config
	store   *queue.Store
	logger  *slog.Logger
	factory OrchestratorFactory
	// KeepTempDirs leaves job temp directories behind for debugging.
	KeepTempDirs bool
}

// NewRunner wires a runner that resolves each job's transcriber from the
// model pool. A nil pool renders without captions.
func NewRunner(cfg *config.Config, store *queue.Store, pool *asr.Pool, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "jobs"),
		factory: func(ctx context.Context, jobCfg *config.Config, tempDir string) (Renderer, func(func(string)), error) {
			var transcriber render.Transcriber
			if pool != nil {
				service, err := pool.ForModel(ctx, jobCfg.Audio.WhisperModel)
				if err != nil {
					return nil, nil, err
				}
				transcriber = service
			}
			orchestrator, err := render.NewOrchestrator(jobCfg, tempDir, transcriber, logger)
			if err != nil {
				return nil, nil, err
			}
			return orchestrator, orchestrator.WithProgress, nil
		},
	}
}

// WithFactory overrides orchestrator construction (for testing).
func (r *Runner) WithFactory(factory OrchestratorFactory) {
	if factory != nil {
		r.factory = factory
	}
}

// RunNext claims and runs the oldest pending job. Returns (nil, nil) when
// the queue is empty. Job failures are recorded on the job, not returned.
func (r *Runner) RunNext(ctx context.Context) (*queue.Job, error) {
	job, err := r.store.NextPending(ctx, queue.StatusNormalizing)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	r.logger.Info("job started",
		logging.Args(logging.Int64(logging.FieldJobID, job.ID), logging.String("job_key", job.JobKey))...)

	if runErr := r.runJob(ctx, job); runErr != nil {
		job.SetFailed(runErr.Error())
		if updateErr := r.store.Update(ctx, job); updateErr != nil {
			r.logger.Error("persist job failure", logging.Args(logging.Error(updateErr))...)
		}
		r.logger.Error("job failed",
			logging.Args(logging.Int64(logging.FieldJobID, job.ID), logging.Error(runErr))...)
		return job, nil
	}

	job.Status = queue.StatusCompleted
	job.SetProgress("Completed", "render finished", 100)
	if err := r.store.Update(ctx, job); err != nil {
		return job, fmt.Errorf("persist job completion: %w", err)
	}
	r.logger.Info("job completed",
		logging.Args(
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String("output", job.OutputFile),
		)...)
	return job, nil
}

// RunAll drains the queue until empty or the context is canceled.
func (r *Runner) RunAll(ctx context.Context) (int, error) {
	completed := 0
	for {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		job, err := r.RunNext(ctx)
		if err != nil {
			return completed, err
		}
		if job == nil {
			return completed, nil
		}
		if job.Status == queue.StatusCompleted {
			completed++
		}
	}
}

func (r *Runner) runJob(ctx context.Context, job *queue.Job) error {
	tempDir := filepath.Join(r.cfg.Paths.TempDir, job.JobKey)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return fmt.Errorf("create job temp directory: %w", err)
	}

	// The intermediate filenames inside the temp directory are fixed, so a
	// second worker entering the same directory would corrupt the job.
	lock := flock.New(filepath.Join(tempDir, ".clipforge.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire job lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("job temp directory %s is already in use", tempDir)
	}
	defer func() {
		_ = lock.Unlock()
		if !r.KeepTempDirs {
			_ = os.RemoveAll(tempDir)
		}
	}()

	jobCfg := r.scopedConfig(job)
	renderer, setProgress, err := r.factory(ctx, jobCfg, tempDir)
	if err != nil {
		return err
	}
	if setProgress != nil {
		setProgress(func(stage string) {
			r.recordStage(ctx, job, stage)
		})
	}

	result, err := renderer.Render(ctx)
	if err != nil {
		return err
	}
	job.OutputFile = result.OutputPath
	job.SubtitleFile = result.SubtitlePath
	job.DurationSeconds = result.TotalDuration
	return nil
}

// scopedConfig clones the base config with the job's own audio files and
// output name applied.
func (r *Runner) scopedConfig(job *queue.Job) *config.Config {
	jobCfg := *r.cfg
	if len(job.AudioFiles) > 0 {
		jobCfg.Audio.Files = append([]string(nil), job.AudioFiles...)
	}
	if title := strings.TrimSpace(job.Title); title != "" {
		jobCfg.Render.OutputName = sanitizeName(title) + ".mp4"
	}
	return &jobCfg
}

func (r *Runner) recordStage(ctx context.Context, job *queue.Job, stage string) {
	status, ok := queue.ParseStatus(stage)
	if !ok {
		return
	}
	job.Status = status
	job.SetProgress(stage, "", 0)
	if err := r.store.Update(ctx, job); err != nil {
		r.logger.Warn("persist stage transition", logging.Args(logging.Error(err))...)
	}
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "render"
	}
	return b.String()
}
