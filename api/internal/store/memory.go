package store

import (
	"context"
	"sync"
	"time"

	"nodule-lens/api/internal/analysis/types"
)

type memKey struct{ hash, engine, model string }

type memEntry struct {
	res types.AnalysisResult
	at  time.Time
}

// MemoryRepo is the in-process cache used when no database is configured.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[memKey]memEntry
	now  func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[memKey]memEntry), now: time.Now}
}

func (r *MemoryRepo) Find(_ context.Context, imageHash, engine, model string, maxAge time.Duration) (types.AnalysisResult, error) {
	r.mu.RLock()
	e, ok := r.rows[memKey{imageHash, engine, model}]
	r.mu.RUnlock()
	if !ok {
		return types.AnalysisResult{}, ErrNotFound
	}
	if maxAge > 0 && r.now().Sub(e.at) > maxAge {
		return types.AnalysisResult{}, ErrNotFound
	}
	return e.res, nil
}

func (r *MemoryRepo) Upsert(_ context.Context, imageHash, engine, model string, res types.AnalysisResult) error {
	r.mu.Lock()
	r.rows[memKey{imageHash, engine, model}] = memEntry{res: res, at: r.now()}
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepo) PurgeOlderThan(_ context.Context, olderThan time.Duration) (int64, error) {
	cutoff := r.now().Add(-olderThan)
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, e := range r.rows {
		if e.at.Before(cutoff) {
			delete(r.rows, k)
			n++
		}
	}
	return n, nil
}
