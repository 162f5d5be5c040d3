// Package store is the boundary between the engine and the underlying
// Cassandra-family wide-column store. It defines the narrow interface
// the engine depends on (Session) so that IngestEngine, QueryEngine,
// StatementCache, and UdtCodec can be exercised against an in-memory
// fake (see storetest) without a live cluster, and a gocql-backed
// implementation for production use.
package store

import "context"

// Session is everything the engine needs from a store connection:
// logged-batch writes, scatter-gather reads, and UDT metadata
// introspection. One Session is constructed per process and shared
// freely across goroutines — the underlying driver is safe for
// concurrent use, so Session implementations must be too.
type Session interface {
	// ExecuteLoggedBatch issues one atomic logged batch containing all
	// of the given statements, applied to the named keyspace. All
	// statements land or none do; the store provides no cross-batch
	// rollback.
	ExecuteLoggedBatch(ctx context.Context, keyspace string, stmts []BoundStatement) error

	// ExecuteSelect runs a single SELECT and returns a cursor over the
	// result rows.
	ExecuteSelect(ctx context.Context, stmt BoundStatement) (Rows, error)

	// UserType resolves a UDT's metadata by keyspace and name. It
	// returns an error coded ErrUdtMetadataMissing when the UDT is not
	// declared in the store's schema.
	UserType(ctx context.Context, keyspace, name string) (UserType, error)

	// Close releases the underlying connection pool.
	Close()
}

// BoundStatement is a CQL statement together with its positional bind
// parameters, ready to execute. gocql (and most CQL drivers) bind by
// position rather than by name; StatementCache is responsible for
// keeping the parameter order in sync with the generated CQL text.
type BoundStatement struct {
	CQL  string
	Args []interface{}
}

// Rows is a forward-only cursor over a SELECT's result set.
type Rows interface {
	// Next decodes the next row into a column-name -> native-Go value
	// map and reports whether a row was available. UDT columns decode
	// as map[string]interface{} (or a nested map for nested UDTs),
	// matching the driver's own dynamic-UDT unmarshaling convention.
	Next() (map[string]interface{}, bool)
	// Err returns any error encountered during iteration.
	Err() error
	// Close releases resources associated with the cursor.
	Close() error
}

// UserType exposes the declared field names of a UDT, in declared
// order. Resolving it fails fast when a UDT is referenced but not
// declared in the schema (UdtMetadataMissing), and the udt->record
// conversion emits one key per declared field. That conversion
// returns a value.Record, which is a Go map, so the declared field
// order is not kept in its result.
type UserType interface {
	FieldNames() []string
}
