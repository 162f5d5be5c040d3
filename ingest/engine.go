// Package ingest implements IngestEngine (component C7): validates an
// ingest batch, enriches each record with its bucket value and UDT
// encodings, groups the batch by physical partition, and issues one
// logged batch per partition concurrently.
package ingest

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/platformdata/dynengine/bucket"
	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/logger"
	"github.com/platformdata/dynengine/metrics"
	"github.com/platformdata/dynengine/partitionkey"
	"github.com/platformdata/dynengine/registry"
	"github.com/platformdata/dynengine/stmtcache"
	"github.com/platformdata/dynengine/store"
	"github.com/platformdata/dynengine/tenant"
	"github.com/platformdata/dynengine/udt"
	"github.com/platformdata/dynengine/value"
)

// DefaultConcurrency mirrors the specification's suggested fan-out
// width for concurrent per-partition batches.
func DefaultConcurrency() int64 {
	return int64(runtime.NumCPU() * 2)
}

// Request is the input to IngestBatch. DataType is optional: when
// empty the engine classifies it from the first record's data.value,
// per the specification's exemplar-inference rule; callers that know
// their data type up front should set it explicitly to avoid
// misrouting on an unrepresentative first record.
type Request struct {
	TenantID    string
	Periodicity string
	DataType    string
	Data        []value.Record
}

// Response is returned on successful ingest.
type Response struct {
	Status string
	Tenant string
	Rows   int
}

// Engine is the IngestEngine. It owns no state of its own beyond its
// configured collaborators; Registry and StatementCache are shared
// with QueryEngine.
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

// InferDataType classifies record by the type of record["data"]["value"]:
// a number infers NUMERIC, a string infers STRING, anything else
// (including absence) defaults to NUMERIC.
func InferDataType(record value.Record) string {
	dataField, ok := record.Get("data")
	if !ok {
		return "NUMERIC"
	}
	nested, ok := dataField.(value.Record)
	if !ok {
		return "NUMERIC"
	}
	v, ok := nested.Get("value")
	if !ok {
		return "NUMERIC"
	}
	switch v.(type) {
	case value.String:
		return "STRING"
	case value.Int32, value.Int64, value.Float64, value.DecimalValue:
		return "NUMERIC"
	default:
		return "NUMERIC"
	}
}

// IngestOne builds a one-record batch and ingests it, for the
// single-record convenience route.
func (e *Engine) IngestOne(ctx context.Context, tenantID, periodicity, dataType string, record value.Record) (*Response, error) {
	return e.IngestBatch(ctx, Request{
		TenantID:    tenantID,
		Periodicity: periodicity,
		DataType:    dataType,
		Data:        []value.Record{record},
	})
}

// IngestBatch validates, enriches, groups, and writes req.
func (e *Engine) IngestBatch(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := e.ingestBatch(ctx, req)
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.IngestBatches.WithLabelValues(outcome).Inc()
	return resp, err
}

func (e *Engine) ingestBatch(ctx context.Context, req Request) (*Response, error) {
	if req.TenantID == "" {
		return nil, errors.New(errors.ErrInvalidRequest, "tenant_id must be non-empty")
	}
	if req.Periodicity == "" {
		return nil, errors.New(errors.ErrInvalidRequest, "periodicity must be non-empty")
	}
	if len(req.Data) == 0 {
		return nil, errors.New(errors.ErrInvalidRequest, "data must be a non-empty sequence of records")
	}

	dataType := req.DataType
	if dataType == "" {
		dataType = InferDataType(req.Data[0])
	}

	cfg, err := e.registry.Lookup(req.TenantID, req.Periodicity, dataType)
	if err != nil {
		return nil, err
	}

	groups, err := e.groupByPartition(ctx, cfg, req.Data)
	if err != nil {
		return nil, err
	}

	if err := e.executeGroups(ctx, cfg, groups); err != nil {
		return nil, err
	}

	metrics.IngestRows.Add(float64(len(req.Data)))
	return &Response{Status: "ok", Tenant: req.TenantID, Rows: len(req.Data)}, nil
}

// groupByPartition enriches each record with its bucket value and UDT
// encodings, then groups the resulting bound INSERT statements by
// PartitionKey.
func (e *Engine) groupByPartition(ctx context.Context, cfg *tenant.Config, records []value.Record) (map[partitionkey.Key][]store.BoundStatement, error) {
	groups := make(map[partitionkey.Key][]store.BoundStatement)
	for _, record := range records {
		enr, err := e.enrich(ctx, cfg, record)
		if err != nil {
			return nil, err
		}
		pkValues := make([]value.Value, len(cfg.PartitionKeys))
		for i, col := range cfg.PartitionKeys {
			v, ok := enr.record.Get(col)
			if !ok || value.IsNull(v) {
				return nil, errors.New(errors.ErrInvalidRequest,
					"record is missing a value for partition key column "+col+" after enrichment")
			}
			pkValues[i] = v
		}
		pk, err := partitionkey.Of(pkValues)
		if err != nil {
			return nil, errors.WithMessage(err, "building partition key")
		}
		stmt, err := e.buildInsert(cfg, enr)
		if err != nil {
			return nil, err
		}
		groups[pk] = append(groups[pk], stmt)
	}
	return groups, nil
}

// enrichedRecord pairs a record (with its bucket column filled in)
// with the already-codec-encoded native map for each of its UDT
// columns. The encoded natives travel alongside the record rather than
// back into it: value.Value is a sealed interface and no type outside
// package value can implement it, so there is no Value variant that
// could hold an encoded native map.
type enrichedRecord struct {
	record     value.Record
	udtNatives map[string]map[string]interface{}
}

func (e *Engine) enrich(ctx context.Context, cfg *tenant.Config, record value.Record) (enrichedRecord, error) {
	out := record.Clone()
	if year, ok, err := bucket.Calculate(cfg, out); err != nil {
		return enrichedRecord{}, err
	} else if ok {
		out[cfg.BucketColumn] = value.Int32(year)
	}
	natives := make(map[string]map[string]interface{})
	for col := range cfg.UdtColumns {
		v, present := out.Get(col)
		if !present {
			continue
		}
		nested, isRecord := v.(value.Record)
		if !isRecord {
			continue
		}
		native, err := e.codec.RecordToUdt(ctx, cfg.Keyspace, col, nested)
		if err != nil {
			return enrichedRecord{}, err
		}
		natives[col] = native
	}
	return enrichedRecord{record: out, udtNatives: natives}, nil
}

func (e *Engine) buildInsert(cfg *tenant.Config, enr enrichedRecord) (store.BoundStatement, error) {
	columns := make([]string, 0, len(enr.record))
	for col := range enr.record {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	stmt := e.stmtCache.Insert(cfg.Keyspace, cfg.Table, columns)
	args := make([]interface{}, len(stmt.Columns))
	for i, col := range stmt.Columns {
		if native, ok := enr.udtNatives[col]; ok {
			args[i] = native
			continue
		}
		v, _ := enr.record.Get(col)
		native, err := value.ToNative(v)
		if err != nil {
			return store.BoundStatement{}, errors.WithMessagef(err, "binding column %q", col)
		}
		args[i] = native
	}
	return store.BoundStatement{CQL: stmt.CQL, Args: args}, nil
}

// executeGroups issues one logged batch per partition, concurrently,
// bounded by e.concurrency, and aggregates any failures into a
// PartialBatchFailure. Successfully committed groups are not rolled
// back on a sibling's failure.
func (e *Engine) executeGroups(ctx context.Context, cfg *tenant.Config, groups map[partitionkey.Key][]store.BoundStatement) error {
	sem := semaphore.NewWeighted(e.concurrency)
	g, ctx := errgroup.WithContext(ctx)

	failures := make(map[string]error)
	var failuresMu sync.Mutex

	for pk, stmts := range groups {
		pk, stmts := pk, stmts
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := e.session.ExecuteLoggedBatch(ctx, cfg.Keyspace, stmts); err != nil {
				e.log.Warnf("ingest: logged batch failed for partition %s: %v", pk, err)
				failuresMu.Lock()
				failures[pk.String()] = err
				failuresMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(failures) > 0 {
		return &errors.PartialBatchFailure{FailedPartitions: failures}
	}
	return nil
}
