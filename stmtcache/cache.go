// Package stmtcache implements StatementCache (component C6): it
// generates the CQL text and positional bind order for the two
// statement shapes the engine ever issues, and caches that generated
// text so repeated ingest/query calls against the same tenant shape
// don't re-render CQL on every request. The driver itself is left to
// prepare and cache the statement at the wire level; this cache is
// purely about avoiding repeated string building and giving concurrent
// callers for the same shape a single winner via singleflight.
package stmtcache

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/platformdata/dynengine/logger"
	"github.com/platformdata/dynengine/metrics"
)

// DefaultSize is the default number of generated statement shapes
// held in the cache. A tenant's shape set is small and stable, so this
// comfortably covers a multi-tenant deployment with room to spare.
const DefaultSize = 1024

// dateColumn is the clustering column every bucketed and unbucketed
// table alike is range-filtered on.
const dateColumn = "period_date"

// Statement is a generated CQL statement together with the column
// order its positional bind markers correspond to.
type Statement struct {
	CQL string

	// Columns holds, in positional order, the partition-key columns
	// bound by the leading "= ?" equality markers in CQL.
	Columns []string

	// HasBucket is true when CQL also equality-binds BucketColumn
	// (resolved to a scatter-gather bucket year) ahead of the trailing
	// period_date range.
	HasBucket    bool
	BucketColumn string

	// DateColumn is always dateColumn; callers bind start/end to its
	// trailing ">= ?" / "<= ?" pair.
	DateColumn string
}

// Cache generates and caches Statements. It is safe for concurrent use.
type Cache struct {
	lru *lru.Cache
	sf  singleflight.Group
	log logger.Logger
}

// New returns a Cache holding up to size generated statement shapes
// (DefaultSize if size <= 0). A nil log defaults to logger.NopLogger.
func New(size int, log logger.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if log == nil {
		log = logger.NopLogger
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c, log: log}, nil
}

// Insert returns the generated "INSERT INTO keyspace.table (c1, c2,
// ...) VALUES (?, ?, ...)" statement for the given column set, in the
// order supplied. Column order is part of the cache key, so callers
// that want cache reuse across records of the same tenant shape should
// pass columns in a stable order (IngestEngine sorts them).
func (c *Cache) Insert(keyspace, table string, columns []string) *Statement {
	key := "insert|" + keyspace + "." + table + "|" + strings.Join(columns, ",")
	if st, ok := c.lru.Get(key); ok {
		metrics.StatementCacheHits.WithLabelValues("hit").Inc()
		return st.(*Statement)
	}
	metrics.StatementCacheHits.WithLabelValues("miss").Inc()
	v, _, _ := c.sf.Do(key, func() (interface{}, error) {
		if st, ok := c.lru.Get(key); ok {
			return st.(*Statement), nil
		}
		placeholders := make([]string, len(columns))
		for i := range columns {
			placeholders[i] = "?"
		}
		cql := "INSERT INTO " + keyspace + "." + table +
			" (" + strings.Join(columns, ", ") + ")" +
			" VALUES (" + strings.Join(placeholders, ", ") + ")"
		st := &Statement{CQL: cql, Columns: append([]string(nil), columns...)}
		c.lru.Add(key, st)
		c.log.Debugf("stmtcache: generated insert for %s.%s (%d columns)", keyspace, table, len(columns))
		return st, nil
	})
	return v.(*Statement)
}

// Select returns the generated SELECT statement equality-matching
// partitionKeys (in order), then, when bucketColumn is non-empty,
// equality-matching bucketColumn (bound to a resolved bucket year by
// the caller), and finally always range-bounding period_date with
// ">= ?" / "<= ?". Every SELECT this cache produces filters on the
// date range regardless of whether the table is bucketed — bucketing
// only narrows which partition the range is evaluated against.
func (c *Cache) Select(keyspace, table string, partitionKeys []string, bucketColumn string) *Statement {
	key := "select|" + keyspace + "." + table + "|" + strings.Join(partitionKeys, ",") + "|bucket=" + bucketColumn
	if st, ok := c.lru.Get(key); ok {
		metrics.StatementCacheHits.WithLabelValues("hit").Inc()
		return st.(*Statement)
	}
	metrics.StatementCacheHits.WithLabelValues("miss").Inc()
	v, _, _ := c.sf.Do(key, func() (interface{}, error) {
		if st, ok := c.lru.Get(key); ok {
			return st.(*Statement), nil
		}
		conds := make([]string, 0, len(partitionKeys)+3)
		for _, col := range partitionKeys {
			conds = append(conds, col+" = ?")
		}
		hasBucket := bucketColumn != ""
		if hasBucket {
			conds = append(conds, bucketColumn+" = ?")
		}
		conds = append(conds, dateColumn+" >= ?", dateColumn+" <= ?")
		cql := "SELECT * FROM " + keyspace + "." + table + " WHERE " + strings.Join(conds, " AND ")
		st := &Statement{
			CQL:          cql,
			Columns:      append([]string(nil), partitionKeys...),
			HasBucket:    hasBucket,
			BucketColumn: bucketColumn,
			DateColumn:   dateColumn,
		}
		c.lru.Add(key, st)
		c.log.Debugf("stmtcache: generated select for %s.%s (bucketed=%v)", keyspace, table, hasBucket)
		return st, nil
	})
	return v.(*Statement)
}

// Len reports the number of distinct statement shapes currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
