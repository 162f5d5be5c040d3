// Package query implements QueryEngine (component C8): decomposes
// query criteria into one or more bucketed SELECTs, fans them out
// concurrently, merges the returned rows, and converts UDT columns
// back into nested records.
package query

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/platformdata/dynengine/bucket"
	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/logger"
	"github.com/platformdata/dynengine/metrics"
	"github.com/platformdata/dynengine/registry"
	"github.com/platformdata/dynengine/stmtcache"
	"github.com/platformdata/dynengine/store"
	"github.com/platformdata/dynengine/tenant"
	"github.com/platformdata/dynengine/udt"
	"github.com/platformdata/dynengine/value"
)

// DefaultConcurrency mirrors IngestEngine's fan-out width. Each
// scatter-gather call builds its own semaphore of the engine's width;
// it is not shared with IngestEngine or with other Retrieve calls.
func DefaultConcurrency() int64 {
	return int64(runtime.NumCPU() * 2)
}

// Engine is the QueryEngine.
type Engine struct {
	session     store.Session
	registry    *registry.Registry
	stmtCache   *stmtcache.Cache
	codec       *udt.Codec
	concurrency int64
	log         logger.Logger
}

// New constructs an Engine. concurrency <= 0 selects DefaultConcurrency.
func New(session store.Session, reg *registry.Registry, stmtCache *stmtcache.Cache, codec *udt.Codec, concurrency int64, log logger.Logger) *Engine {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency()
	}
	if log == nil {
		log = logger.NopLogger
	}
	return &Engine{
		session:     session,
		registry:    reg,
		stmtCache:   stmtCache,
		codec:       codec,
		concurrency: concurrency,
		log:         log,
	}
}

// Retrieve resolves criteria against the registered tenant config and
// returns the matching rows as a multiset — callers that need a
// particular order must sort the result themselves.
//
// criteria MUST contain start_date and end_date (value.Date or an
// ISO-8601 value.String) and SHOULD contain a value for every
// partition-key column except the bucket column; tenant_id is injected
// automatically so it is available as a partition-key value.
func (e *Engine) Retrieve(ctx context.Context, tenantID, periodicity, dataType string, criteria value.Record) ([]value.Record, error) {
	start := time.Now()
	rows, err := e.retrieve(ctx, tenantID, periodicity, dataType, criteria)
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.QuerySelects.WithLabelValues(outcome).Inc()
	return rows, err
}

func (e *Engine) retrieve(ctx context.Context, tenantID, periodicity, dataType string, criteria value.Record) ([]value.Record, error) {
	if tenantID == "" {
		return nil, errors.New(errors.ErrInvalidRequest, "tenant_id must be non-empty")
	}
	start, end, err := parseDateRange(criteria)
	if err != nil {
		return nil, err
	}

	cfg, err := e.registry.Lookup(tenantID, periodicity, dataType)
	if err != nil {
		return nil, err
	}

	base := criteria.Clone()
	base["tenant_id"] = value.String(tenantID)

	if !cfg.HasBucket() {
		return e.selectOne(ctx, cfg, base, start, end)
	}
	return e.scatterGather(ctx, cfg, base, start, end)
}

func parseDateRange(criteria value.Record) (value.Date, value.Date, error) {
	startV, ok := criteria.Get("start_date")
	if !ok {
		return value.Date{}, value.Date{}, errors.New(errors.ErrInvalidRequest, "start_date is required")
	}
	endV, ok := criteria.Get("end_date")
	if !ok {
		return value.Date{}, value.Date{}, errors.New(errors.ErrInvalidRequest, "end_date is required")
	}
	start, err := asDate(startV)
	if err != nil {
		return value.Date{}, value.Date{}, errors.WithMessage(err, "parsing start_date")
	}
	end, err := asDate(endV)
	if err != nil {
		return value.Date{}, value.Date{}, errors.WithMessage(err, "parsing end_date")
	}
	if start.After(end) {
		return value.Date{}, value.Date{}, errors.New(errors.ErrInvalidRequest, "start_date must not be after end_date")
	}
	return start, end, nil
}

func asDate(v value.Value) (value.Date, error) {
	switch t := v.(type) {
	case value.Date:
		return t, nil
	case value.String:
		d, err := value.ParseDate(string(t))
		if err != nil {
			return value.Date{}, errors.New(errors.ErrInvalidRequest, "unparseable date string "+string(t))
		}
		return d, nil
	default:
		return value.Date{}, errors.New(errors.ErrInvalidRequest, "date criteria must be a calendar date or ISO-8601 string")
	}
}

// selectOne issues the single SELECT path for an unbucketed config.
func (e *Engine) selectOne(ctx context.Context, cfg *tenant.Config, criteria value.Record, start, end value.Date) ([]value.Record, error) {
	rows, err := e.executeSelect(ctx, cfg, criteria, start, end, nil)
	if err != nil {
		return nil, errors.New(errors.ErrStore, err.Error())
	}
	return rows, nil
}

// scatterGather issues one SELECT per year in [start.Year, end.Year],
// concurrently, and concatenates their results. Any single bucket
// SELECT failure fails the whole call with ScatterGatherFailure; no
// partial results are returned.
func (e *Engine) scatterGather(ctx context.Context, cfg *tenant.Config, criteria value.Record, start, end value.Date) ([]value.Record, error) {
	years, err := bucket.YearRange(start, end)
	if err != nil {
		return nil, err
	}

	sem := semaphore.NewWeighted(e.concurrency)
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make([][]value.Record, len(years))
	failures := make(map[int]error)

	for i, year := range years {
		i, year := i, year
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rows, err := e.executeSelect(ctx, cfg, criteria, start, end, &year)
			if err != nil {
				e.log.Warnf("query: select failed for bucket %d: %v", year, err)
				mu.Lock()
				failures[year] = err
				mu.Unlock()
				return nil
			}
			mu.Lock()
			results[i] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return nil, &errors.ScatterGatherFailure{FailedBuckets: failures}
	}

	var out []value.Record
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

// executeSelect builds and issues the SELECT for cfg, binding equality
// on every partition-key column present in criteria, an equality pin
// to bucketYear when cfg is bucketed, and always the period_date
// range bound to start/end.
func (e *Engine) executeSelect(ctx context.Context, cfg *tenant.Config, criteria value.Record, start, end value.Date, bucketYear *int) ([]value.Record, error) {
	stmt := e.stmtCache.Select(cfg.Keyspace, cfg.Table, boundPartitionKeys(cfg, criteria), cfg.BucketColumn)

	args := make([]interface{}, 0, len(stmt.Columns)+3)
	for _, col := range stmt.Columns {
		v, ok := criteria.Get(col)
		if !ok {
			return nil, errors.New(errors.ErrInvalidRequest, "criteria is missing a value for partition key column "+col)
		}
		native, err := value.ToNative(v)
		if err != nil {
			return nil, errors.WithMessagef(err, "binding column %q", col)
		}
		args = append(args, native)
	}
	if stmt.HasBucket {
		if bucketYear == nil {
			return nil, errors.New(errors.ErrInvalidRequest, "bucketed config requires a resolved bucket year")
		}
		args = append(args, int32(*bucketYear))
	}
	startNative, err := value.ToNative(start)
	if err != nil {
		return nil, errors.WithMessage(err, "binding start_date")
	}
	endNative, err := value.ToNative(end)
	if err != nil {
		return nil, errors.WithMessage(err, "binding end_date")
	}
	args = append(args, startNative, endNative)

	rows, err := e.session.ExecuteSelect(ctx, store.BoundStatement{CQL: stmt.CQL, Args: args})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []value.Record
	for {
		native, more := rows.Next()
		if !more {
			break
		}
		rec, err := e.mapRow(ctx, cfg, native)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// boundPartitionKeys returns cfg's partition-key columns that criteria
// actually supplies a value for, preserving cfg's declared order —
// the specification requires equality on every key criteria has a
// value for, not every key the config declares.
func boundPartitionKeys(cfg *tenant.Config, criteria value.Record) []string {
	out := make([]string, 0, len(cfg.PartitionKeys))
	for _, col := range cfg.PartitionKeys {
		if col == cfg.BucketColumn {
			continue
		}
		if _, ok := criteria.Get(col); ok {
			out = append(out, col)
		}
	}
	return out
}

// mapRow converts a driver-returned native row into a value.Record
// (an unordered column-name-to-value map; callers needing a
// particular column or field order must impose it themselves), routing
// any column named in cfg.UdtColumns through UdtCodec.
func (e *Engine) mapRow(ctx context.Context, cfg *tenant.Config, native map[string]interface{}) (value.Record, error) {
	out := make(value.Record, len(native))
	for col, raw := range native {
		if raw == nil {
			out[col] = value.Null{}
			continue
		}
		if cfg.IsUdtColumn(col) {
			nested, ok := raw.(map[string]interface{})
			if !ok {
				return nil, errors.New(errors.ErrStore, "udt column "+col+" did not decode as a map")
			}
			rec, err := e.codec.UdtToRecord(ctx, cfg.Keyspace, col, nested)
			if err != nil {
				return nil, err
			}
			out[col] = rec
			continue
		}
		v, err := value.FromNativeColumn(col, raw)
		if err != nil {
			return nil, errors.WithMessagef(err, "mapping column %q", col)
		}
		out[col] = v
	}
	return out, nil
}
