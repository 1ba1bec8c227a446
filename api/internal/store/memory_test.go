package store

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"nodule-lens/api/internal/analysis/types"
)

func TestMemoryRepo_FindUpsert(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	_, err := r.Find(ctx, "h", "gemini", "m", 0)
	require.True(t, errors.Is(err, ErrNotFound))

	res := types.AnalysisResult{OverallRisk: types.RiskLow, Summary: "未见异常", Detections: []types.Detection{}}
	require.NoError(t, r.Upsert(ctx, "h", "gemini", "m", res))

	got, err := r.Find(ctx, "h", "gemini", "m", time.Hour)
	require.NoError(t, err)
	require.Equal(t, res, got)

	// other model, other key
	_, err = r.Find(ctx, "h", "gemini", "other", 0)
	require.ErrorIs(t, err, ErrNotFound)

	now = now.Add(2 * time.Hour)
	_, err = r.Find(ctx, "h", "gemini", "m", time.Hour)
	require.ErrorIs(t, err, ErrNotFound)

	// no age limit
	_, err = r.Find(ctx, "h", "gemini", "m", 0)
	require.NoError(t, err)
}

func TestMemoryRepo_Purge(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	require.NoError(t, r.Upsert(ctx, "old", "gemini", "m", types.AnalysisResult{}))
	now = now.Add(48 * time.Hour)
	require.NoError(t, r.Upsert(ctx, "new", "gemini", "m", types.AnalysisResult{}))

	n, err := r.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = r.Find(ctx, "new", "gemini", "m", 0)
	require.NoError(t, err)
}
