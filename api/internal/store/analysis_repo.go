package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"nodule-lens/api/internal/analysis/types"
)

var ErrNotFound = sql.ErrNoRows

const schemaSQL = `
create table if not exists analyses_cache (
  image_hash  text        not null,
  engine      text        not null,
  model       text        not null,
  result_json jsonb       not null,
  nodules     integer     not null default 0,
  total_risk  text        not null default '',
  created_at  timestamptz not null default now(),
  primary key (image_hash, engine, model)
)`

// AnalysisRepo caches model readings per (image_hash, engine, model) so the
// same upload is not sent to the model twice.
type AnalysisRepo struct{ DB *sql.DB }

func NewAnalysisRepo(db *sql.DB) *AnalysisRepo { return &AnalysisRepo{DB: db} }

func (r *AnalysisRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schemaSQL)
	return errors.Wrap(err, "ensure analyses_cache")
}

// Find returns the cached result. With maxAge > 0 older rows count as missing.
// A row whose JSON no longer decodes is treated as missing too.
func (r *AnalysisRepo) Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (types.AnalysisResult, error) {
	const q = `select result_json, created_at
	           from analyses_cache
	           where image_hash=$1 and engine=$2 and model=$3`
	var (
		js []byte
		ts time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, imageHash, engine, model).Scan(&js, &ts); err != nil {
		return types.AnalysisResult{}, err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return types.AnalysisResult{}, ErrNotFound
	}
	var res types.AnalysisResult
	if err := json.Unmarshal(js, &res); err != nil {
		return types.AnalysisResult{}, ErrNotFound
	}
	return res, nil
}

func (r *AnalysisRepo) Upsert(ctx context.Context, imageHash, engine, model string, res types.AnalysisResult) error {
	js, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "marshal result")
	}
	const q = `
insert into analyses_cache(image_hash, engine, model, result_json, nodules, total_risk)
values ($1,$2,$3,$4,$5,$6)
on conflict (image_hash, engine, model)
do update set result_json=excluded.result_json,
              nodules=excluded.nodules,
              total_risk=excluded.total_risk,
              created_at=now()`
	_, err = r.DB.ExecContext(ctx, q, imageHash, engine, model, js, len(res.Detections), string(res.OverallRisk))
	return err
}

// PurgeOlderThan keeps the cache from growing without bound.
func (r *AnalysisRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from analyses_cache where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
