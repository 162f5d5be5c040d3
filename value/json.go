package value

import (
	"encoding/json"
	"fmt"
	"time"
)

// MarshalJSON renders a Record's values in the HTTP boundary's wire
// format: strings and numbers pass through natively, Decimal renders
// as a JSON string (to avoid float precision loss in transit), Date
// renders as "YYYY-MM-DD", Instant as RFC3339, and nested Records as
// JSON objects.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r))
	for k, v := range r {
		enc, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = enc
	}
	return json.Marshal(out)
}

func encodeValue(v Value) (interface{}, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case Null:
		return nil, nil
	case String:
		return string(t), nil
	case Int32:
		return int32(t), nil
	case Int64:
		return int64(t), nil
	case DecimalValue:
		return t.Decimal.String(), nil
	case Float64:
		return float64(t), nil
	case Date:
		return t.String(), nil
	case Instant:
		return t.Time().UTC().Format(time.RFC3339Nano), nil
	case Record:
		out := make(map[string]interface{}, len(t))
		for k, fv := range t {
			enc, err := encodeValue(fv)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unhandled value variant %T", v)
	}
}

// UnmarshalJSON parses a JSON object into a Record. Every JSON scalar
// is decoded into the variant that best preserves caller intent:
// JSON numbers with no fractional part become Int64, numbers with a
// fractional part become Float64 (per §3, coerced to decimal on
// write), strings stay String (UdtCodec applies the "time" substring
// heuristic later), and nested objects become nested Records.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Record, len(raw))
	for k, rv := range raw {
		v, err := decodeValue(rv)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = v
	}
	*r = out
	return nil
}

func decodeValue(raw json.RawMessage) (Value, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return fromGeneric(generic)
}

func fromGeneric(generic interface{}) (Value, error) {
	switch t := generic.(type) {
	case nil:
		return Null{}, nil
	case bool:
		// Booleans are not an admissible record value variant per §3;
		// callers sending one get a clear rejection rather than silent
		// coercion.
		return nil, fmt.Errorf("boolean is not a supported record value")
	case string:
		return String(t), nil
	case float64:
		if t == float64(int64(t)) {
			return Int64(int64(t)), nil
		}
		return Float64(t), nil
	case map[string]interface{}:
		rec := make(Record, len(t))
		for k, fv := range t {
			v, err := fromGeneric(fv)
			if err != nil {
				return nil, err
			}
			rec[k] = v
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value of type %T", generic)
	}
}
