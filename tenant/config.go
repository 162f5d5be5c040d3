// Package tenant describes the immutable, runtime-registered shape of
// a tenant's physical table (component C1 of the specification).
package tenant

import (
	"github.com/platformdata/dynengine/errors"
)

// Config is the immutable description of a tenant's physical table
// shape: keyspace, table, ordered partition-key columns, an optional
// bucket column, and the set of columns that hold user-defined-type
// values. Once constructed via New or NewWithBucket it is never
// mutated; the Registry hands out the same *Config to every caller.
type Config struct {
	Keyspace      string
	Table         string
	PartitionKeys []string
	BucketColumn  string // empty means "no bucketing"
	UdtColumns    map[string]struct{}
}

// New builds a Config with no bucket column.
func New(keyspace, table string, partitionKeys []string, udtColumns []string) (*Config, error) {
	return build(keyspace, table, partitionKeys, "", udtColumns)
}

// NewWithBucket builds a Config whose bucketColumn must, per the
// specification's data model invariant, be a member of partitionKeys.
// This validation is performed here rather than merely documented, per
// the "Bucket column must be a partition key" redesign flag.
func NewWithBucket(keyspace, table string, partitionKeys []string, bucketColumn string, udtColumns []string) (*Config, error) {
	if bucketColumn == "" {
		return nil, errors.New(errors.ErrInvalidConfig, "bucket column must be non-empty when configuring a bucketed tenant")
	}
	return build(keyspace, table, partitionKeys, bucketColumn, udtColumns)
}

func build(keyspace, table string, partitionKeys []string, bucketColumn string, udtColumns []string) (*Config, error) {
	if keyspace == "" {
		return nil, errors.New(errors.ErrInvalidConfig, "keyspace must be non-empty")
	}
	if table == "" {
		return nil, errors.New(errors.ErrInvalidConfig, "table must be non-empty")
	}
	if len(partitionKeys) == 0 {
		return nil, errors.New(errors.ErrInvalidConfig, "partition_keys must have at least one column")
	}
	seen := make(map[string]struct{}, len(partitionKeys))
	for _, k := range partitionKeys {
		if _, dup := seen[k]; dup {
			return nil, errors.Errorf("partition_keys must be unique, duplicate column %q", k)
		}
		seen[k] = struct{}{}
	}
	if bucketColumn != "" {
		if _, ok := seen[bucketColumn]; !ok {
			return nil, errors.New(errors.ErrInvalidConfig, "bucket_column must be a member of partition_keys")
		}
	}
	udtSet := make(map[string]struct{}, len(udtColumns))
	for _, c := range udtColumns {
		udtSet[c] = struct{}{}
	}
	keys := make([]string, len(partitionKeys))
	copy(keys, partitionKeys)
	return &Config{
		Keyspace:      keyspace,
		Table:         table,
		PartitionKeys: keys,
		BucketColumn:  bucketColumn,
		UdtColumns:    udtSet,
	}, nil
}

// HasBucket reports whether this configuration derives a bucket value.
func (c *Config) HasBucket() bool {
	return c.BucketColumn != ""
}

// IsUdtColumn reports whether columnName holds a user-defined-type
// value under this tenant's table shape.
func (c *Config) IsUdtColumn(columnName string) bool {
	_, ok := c.UdtColumns[columnName]
	return ok
}
