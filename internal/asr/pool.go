package asr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/asr/modelcache"
)

// Pool hands out transcription services, one per whisper model size, each
// with its own working directory under baseDir. The pool is bounded: when a
// model is evicted its working directory (transcript JSON, model scratch
// files) is removed.
type Pool struct {
	cache *modelcache.Cache[*Service]
}

// NewPool builds a pool keeping at most capacity model services alive.
func NewPool(capacity int, binary, baseDir string, logger *slog.Logger) (*Pool, error) {
	cache, err := modelcache.New(capacity,
		func(_ context.Context, model string) (*Service, error) {
			dir := filepath.Join(baseDir, "asr-"+sanitizeModelName(model))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create model working directory: %w", err)
			}
			return NewService(binary, dir, logger), nil
		},
		func(service *Service) {
			_ = os.RemoveAll(service.tempDir)
		})
	if err != nil {
		return nil, err
	}
	return &Pool{cache: cache}, nil
}

// ForModel returns the service bound to the given model size, creating it on
// first use. Concurrent callers asking for the same model get one service.
func (p *Pool) ForModel(ctx context.Context, model string) (*Service, error) {
	return p.cache.Get(ctx, strings.TrimSpace(model))
}

// Len reports the number of live model services.
func (p *Pool) Len() int {
	return p.cache.Len()
}

// Close releases every cached model service.
func (p *Pool) Close() {
	p.cache.Purge()
}

func sanitizeModelName(model string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(model) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
