package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/asr"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/render"
)

type stubRenderer struct {
	result   render.Result
	err      error
	tempDir  string
	progress func(string)
}

func (s *stubRenderer) Render(context.Context) (render.Result, error) {
	if s.progress != nil {
		s.progress(render.StageNormalizing)
		s.progress(render.StageRendering)
	}
	return s.result, s.err
}

func newTestRunner(t *testing.T, result render.Result, renderErr error) (*Runner, *queue.Store, *stubRenderer) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()

	store, err := queue.OpenPath(filepath.Join(cfg.Paths.LogDir, "queue.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	stub := &stubRenderer{result: result, err: renderErr}
	runner := NewRunner(cfg, store, nil, logging.NewNop())
	runner.WithFactory(func(_ context.Context, _ *config.Config, tempDir string) (Renderer, func(func(string)), error) {
		stub.tempDir = tempDir
		return stub, func(fn func(string)) { stub.progress = fn }, nil
	})
	return runner, store, stub
}

func TestRunNextEmptyQueue(t *testing.T) {
	runner, _, _ := newTestRunner(t, render.Result{}, nil)
	job, err := runner.RunNext(context.Background())
	if err != nil {
		t.Fatalf("RunNext: %v", err)
	}
	if job != nil {
		t.Fatalf("expected no job, got %+v", job)
	}
}

func TestRunNextCompletesJob(t *testing.T) {
	result := render.Result{OutputPath: "/out/clip.mp4", SubtitlePath: "/out/clip.srt", TotalDuration: 42}
	runner, store, stub := newTestRunner(t, result, nil)
	ctx := context.Background()

	queued, err := store.NewJob(ctx, "my episode", []string{"a.wav"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	job, err := runner.RunNext(ctx)
	if err != nil {
		t.Fatalf("RunNext: %v", err)
	}
	if job == nil || job.ID != queued.ID {
		t.Fatalf("job = %+v", job)
	}
	if job.Status != queue.StatusCompleted {
		t.Errorf("status = %s", job.Status)
	}
	if job.OutputFile != "/out/clip.mp4" || job.DurationSeconds != 42 {
		t.Errorf("artifacts = %+v", job)
	}

	// Each job renders inside a temp directory named by its key.
	if filepath.Base(stub.tempDir) != queued.JobKey {
		t.Errorf("temp dir = %s, want key %s", stub.tempDir, queued.JobKey)
	}
	if _, err := os.Stat(stub.tempDir); !os.IsNotExist(err) {
		t.Errorf("temp dir should be removed after the job: %v", err)
	}
}

func TestRunNextRecordsFailure(t *testing.T) {
	runner, store, _ := newTestRunner(t, render.Result{}, errors.New("compose exploded"))
	ctx := context.Background()
	if _, err := store.NewJob(ctx, "doomed", nil); err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	job, err := runner.RunNext(ctx)
	if err != nil {
		t.Fatalf("RunNext: %v", err)
	}
	if job.Status != queue.StatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Error("error message not recorded")
	}
}

func TestRunAllDrainsQueue(t *testing.T) {
	runner, store, _ := newTestRunner(t, render.Result{OutputPath: "/out/a.mp4"}, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := store.NewJob(ctx, "job", nil); err != nil {
			t.Fatalf("NewJob: %v", err)
		}
	}
	completed, err := runner.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if completed != 3 {
		t.Fatalf("completed = %d, want 3", completed)
	}
	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Completed != 3 || health.Pending != 0 {
		t.Fatalf("health = %+v", health)
	}
}

func TestNewRunnerResolvesTranscriberFromPool(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Audio.WhisperModel = "medium"

	store, err := queue.OpenPath(filepath.Join(cfg.Paths.LogDir, "queue.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	pool, err := asr.NewPool(1, "", cfg.Paths.TempDir, logging.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	runner := NewRunner(cfg, store, pool, logging.NewNop())
	if _, _, err := runner.factory(context.Background(), cfg, t.TempDir()); err != nil {
		t.Fatalf("factory: %v", err)
	}

	// The factory populated the pool for the configured model.
	if pool.Len() != 1 {
		t.Fatalf("pool holds %d services, want 1", pool.Len())
	}
}

func TestScopedConfigAppliesJobFields(t *testing.T) {
	runner, _, _ := newTestRunner(t, render.Result{}, nil)
	job := &queue.Job{Title: "My Great Episode!", AudioFiles: []string{"x.wav"}}
	cfg := runner.scopedConfig(job)
	if cfg.Render.OutputName != "My_Great_Episode.mp4" {
		t.Errorf("output name = %s", cfg.Render.OutputName)
	}
	if len(cfg.Audio.Files) != 1 || cfg.Audio.Files[0] != "x.wav" {
		t.Errorf("audio files = %v", cfg.Audio.Files)
	}
}
