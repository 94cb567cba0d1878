package queue

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewJobAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "episode one", []string{"voice.wav", "tail.wav"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Status != StatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.JobKey == "" {
		t.Error("job key not assigned")
	}
	if len(job.AudioFiles) != 2 || job.AudioFiles[0] != "voice.wav" {
		t.Errorf("audio files = %v", job.AudioFiles)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil || fetched.JobKey != job.JobKey {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := openTestStore(t)
	job, err := store.GetByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for missing job, got %+v", job)
	}
}

func TestNextPendingClaimsOldestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.NewJob(ctx, "first", []string{"a.wav"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, err := store.NewJob(ctx, "second", []string{"b.wav"}); err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	claimed, err := store.NextPending(ctx, StatusNormalizing)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("claimed = %+v, want job %d", claimed, first.ID)
	}
	if claimed.Status != StatusNormalizing {
		t.Errorf("claimed status = %s", claimed.Status)
	}

	// The claimed job must not be claimable again.
	second, err := store.NextPending(ctx, StatusNormalizing)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if second == nil || second.ID == first.ID {
		t.Fatalf("second claim = %+v", second)
	}
	third, err := store.NextPending(ctx, StatusNormalizing)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if third != nil {
		t.Fatalf("queue should be empty, got %+v", third)
	}
}

func TestNextPendingRejectsNonProcessingClaim(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.NextPending(context.Background(), StatusCompleted); err == nil {
		t.Fatal("claiming with a terminal status should fail")
	}
}

func TestUpdatePersistsProgressAndArtifacts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "job", []string{"a.wav"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	job.Status = StatusCompleted
	job.OutputFile = "/out/clip.mp4"
	job.SubtitleFile = "/out/clip.srt"
	job.DurationSeconds = 68.5
	job.SetProgress("Render", "done", 100)

	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != StatusCompleted || fetched.OutputFile != "/out/clip.mp4" {
		t.Errorf("fetched = %+v", fetched)
	}
	if fetched.DurationSeconds != 68.5 || fetched.ProgressPercent != 100 {
		t.Errorf("progress fields = %+v", fetched)
	}
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	job, err := store.NewJob(ctx, "job", nil)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	job.Status = Status("exploded")
	if err := store.Update(ctx, job); err == nil {
		t.Fatal("unknown status should be rejected")
	}
}

func TestResetStuck(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.NewJob(ctx, "job", nil); err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	claimed, err := store.NextPending(ctx, StatusRendering)
	if err != nil || claimed == nil {
		t.Fatalf("NextPending: %v %v", claimed, err)
	}

	reset, err := store.ResetStuck(ctx)
	if err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}
	fetched, err := store.GetByID(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != StatusPending {
		t.Errorf("status after reset = %s", fetched.Status)
	}
}

func TestClearRemovesTerminalJobs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	done, err := store.NewJob(ctx, "done", nil)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	done.Status = StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.NewJob(ctx, "waiting", nil); err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title != "waiting" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestHealthSummary(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.NewJob(ctx, "job", nil); err != nil {
			t.Fatalf("NewJob: %v", err)
		}
	}
	if _, err := store.NextPending(ctx, StatusRendering); err != nil {
		t.Fatalf("NextPending: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 3 || health.Pending != 2 || health.Processing != 1 {
		t.Fatalf("health = %+v", health)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.NewJob(ctx, "a", nil); err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	jobs, err := store.List(ctx, StatusFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no failed jobs, got %d", len(jobs))
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Rendering "); !ok || status != StatusRendering {
		t.Errorf("ParseStatus = %v %v", status, ok)
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Error("unknown status should not parse")
	}
}
