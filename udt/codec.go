// Package udt implements UdtCodec (component C5): the bidirectional,
// recursive mapping between a value.Record and the native Go value a
// store driver accepts/returns for a user-defined-type column.
package udt

import (
	"context"
	"strings"
	"time"

	"github.com/platformdata/dynengine/logger"
	"github.com/platformdata/dynengine/store"
	"github.com/platformdata/dynengine/value"
)

// Codec converts between value.Record and the map[string]interface{}
// shape a CQL driver marshals UDT columns to/from. A single Codec is
// shared across IngestEngine and QueryEngine; it holds no per-request
// state, only a handle to the store session for metadata lookups.
type Codec struct {
	session store.Session
	log     logger.Logger
}

// New returns a Codec backed by session. A nil log defaults to
// logger.NopLogger.
func New(session store.Session, log logger.Logger) *Codec {
	if log == nil {
		log = logger.NopLogger
	}
	return &Codec{session: session, log: log}
}

// RecordToUdt converts record into the native map a driver will bind
// for the UDT column named udtName in keyspace. By convention (see
// the specification's "Metadata lookup in nested UDTs" design note)
// the UDT's type name is assumed to equal the field/column name that
// holds it; this is documented here rather than silently relied upon,
// per that note's open question.
func (c *Codec) RecordToUdt(ctx context.Context, keyspace, udtName string, record value.Record) (map[string]interface{}, error) {
	if _, err := c.session.UserType(ctx, keyspace, udtName); err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(record))
	for field, v := range record {
		if value.IsNull(v) {
			continue // null fields are left unset; the driver writes null.
		}
		native, skip, err := c.fieldToNative(ctx, keyspace, field, v)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		out[field] = native
	}
	return out, nil
}

func (c *Codec) fieldToNative(ctx context.Context, keyspace, field string, v value.Value) (native interface{}, skip bool, err error) {
	switch t := v.(type) {
	case value.DecimalValue:
		return t.Decimal, false, nil
	case value.Float64:
		d, err := value.NewDecimalFromFloat64(float64(t))
		if err != nil {
			return nil, false, err
		}
		return d, false, nil
	case value.Int32:
		return value.NewDecimalFromInt64(int64(t)), false, nil
	case value.Int64:
		return value.NewDecimalFromInt64(int64(t)), false, nil
	case value.Instant:
		return t.Time(), false, nil
	case value.Date:
		return t.AsTime(), false, nil
	case value.String:
		if strings.Contains(strings.ToLower(field), "time") {
			if ts, perr := time.Parse(time.RFC3339, string(t)); perr == nil {
				return ts, false, nil
			}
			c.log.Warnf("udt field %q looks like a timestamp but failed to parse %q as RFC3339; storing as string", field, string(t))
		}
		return string(t), false, nil
	case value.Record:
		nested, err := c.RecordToUdt(ctx, keyspace, field, t)
		if err != nil {
			return nil, false, err
		}
		return nested, false, nil
	default:
		c.log.Warnf("unsupported udt field type %T for field %q; leaving unset", v, field)
		return nil, true, nil
	}
}

// UdtToRecord converts native (the map a driver handed back for a UDT
// column) into a value.Record, one key per field the UDT declares.
// native == nil returns an empty Record, matching the teacher
// convention of returning an empty map rather than failing on a null
// UDT.
func (c *Codec) UdtToRecord(ctx context.Context, keyspace, udtName string, native map[string]interface{}) (value.Record, error) {
	if native == nil {
		return value.Record{}, nil
	}
	ut, err := c.session.UserType(ctx, keyspace, udtName)
	if err != nil {
		return nil, err
	}
	out := make(value.Record, len(ut.FieldNames()))
	for _, field := range ut.FieldNames() {
		raw, present := native[field]
		if !present || raw == nil {
			out[field] = value.Null{}
			continue
		}
		v, err := c.nativeToField(ctx, keyspace, field, raw)
		if err != nil {
			return nil, err
		}
		out[field] = v
	}
	return out, nil
}

func (c *Codec) nativeToField(ctx context.Context, keyspace, field string, raw interface{}) (value.Value, error) {
	switch t := raw.(type) {
	case map[string]interface{}:
		return c.UdtToRecord(ctx, keyspace, field, t)
	case value.Decimal:
		return value.DecimalValue{Decimal: t}, nil
	case time.Time:
		return value.Instant(t), nil
	case string:
		return value.String(t), nil
	case int32:
		return value.Int32(t), nil
	case int64:
		return value.Int64(t), nil
	case float64:
		return value.Float64(t), nil
	default:
		c.log.Warnf("unsupported native udt value type %T for field %q; mapping to null", raw, field)
		return value.Null{}, nil
	}
}
