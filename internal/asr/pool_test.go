package asr

import (
	"context"
	"os"
	"testing"

	"clipforge/internal/logging"
)

func TestPoolReusesServicePerModel(t *testing.T) {
	pool, err := NewPool(2, "whisper-ctranslate2", t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()
	ctx := context.Background()

	first, err := pool.ForModel(ctx, "medium")
	if err != nil {
		t.Fatalf("ForModel: %v", err)
	}
	second, err := pool.ForModel(ctx, "medium")
	if err != nil {
		t.Fatalf("ForModel: %v", err)
	}
	if first != second {
		t.Error("same model must reuse the cached service")
	}

	other, err := pool.ForModel(ctx, "small")
	if err != nil {
		t.Fatalf("ForModel: %v", err)
	}
	if other == first {
		t.Error("different models must not share a service")
	}
	if other.tempDir == first.tempDir {
		t.Errorf("models share a working directory: %s", other.tempDir)
	}
	if _, err := os.Stat(first.tempDir); err != nil {
		t.Errorf("working directory missing: %v", err)
	}
}

func TestPoolEvictionRemovesWorkingDirectory(t *testing.T) {
	pool, err := NewPool(1, "", t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()
	ctx := context.Background()

	first, err := pool.ForModel(ctx, "medium")
	if err != nil {
		t.Fatalf("ForModel: %v", err)
	}
	if _, err := pool.ForModel(ctx, "large-v3"); err != nil {
		t.Fatalf("ForModel: %v", err)
	}

	if _, err := os.Stat(first.tempDir); !os.IsNotExist(err) {
		t.Errorf("evicted model directory should be removed: %v", err)
	}
}

func TestPoolCloseReleasesEverything(t *testing.T) {
	pool, err := NewPool(4, "", t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	ctx := context.Background()
	service, err := pool.ForModel(ctx, "base")
	if err != nil {
		t.Fatalf("ForModel: %v", err)
	}
	pool.Close()
	if _, err := os.Stat(service.tempDir); !os.IsNotExist(err) {
		t.Errorf("Close must remove model directories: %v", err)
	}
}

func TestPoolRejectsZeroCapacity(t *testing.T) {
	if _, err := NewPool(0, "", t.TempDir(), logging.NewNop()); err == nil {
		t.Fatal("expected capacity error")
	}
}

func TestSanitizeModelName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"medium", "medium"},
		{"large-v3", "large-v3"},
		{"  distil/whisper  ", "distil_whisper"},
		{"", "default"},
	}
	for _, tt := range tests {
		if got := sanitizeModelName(tt.in); got != tt.want {
			t.Errorf("sanitizeModelName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
