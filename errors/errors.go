// Package errors wraps pkg/errors and includes some custom features such as
// error codes.
package errors

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Code is an error code which can be used to check against a given error. For
// example, see the Is() method.
type Code string

func New(code Code, message string) error {
	return errors.WithStack(codedError{
		Code:    code,
		Message: message,
	})
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Cause(err error) error {
	return errors.Cause(err)
}

func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Is is a fork of the Is() method from `pkg/errors` which takes as its target
// an error Code instead of an error.
func Is(err error, target Code) bool {
	match := codedError{
		Code: target,
	}
	return errors.Is(err, match)
}

func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

func WithMessagef(err error, format string, args ...interface{}) error {
	return errors.WithMessagef(err, format, args...)
}

func WithStack(err error) error {
	return errors.WithStack(err)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, fmt string, args ...interface{}) error {
	return errors.Wrapf(err, fmt, args...)
}

// codedError is the fundamental type used by this package to provide coded
// errors.
type codedError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Wrapped string `json:"wrapped,omitempty"`
}

func (ce codedError) Error() string {
	if ce.Wrapped != "" {
		return ce.Wrapped
	}
	return ce.Message
}

// func (ce codedError) As(target interface{}) bool {
// 	return false
// }

func (ce codedError) Is(err error) bool {
	if e, ok := err.(codedError); ok && ce.Code == e.Code {
		return true
	}
	return false
}

const (
	ErrUncoded Code = "Uncoded"

	// ErrInvalidRequest covers malformed client input: empty tenant_id,
	// empty data, missing start_date/end_date, start after end, and so on.
	ErrInvalidRequest Code = "InvalidRequest"

	// ErrConfigNotFound means the Registry has no TenantConfig for the
	// (tenant, periodicity, dataType) triple looked up.
	ErrConfigNotFound Code = "ConfigNotFound"

	// ErrInvalidConfig means a TenantConfig failed validation at
	// register time (e.g. bucket_column not a member of partition_keys).
	ErrInvalidConfig Code = "InvalidConfig"

	// ErrBucketType means a recognised date field was present but its
	// value's type is not one BucketCalculator knows how to interpret.
	ErrBucketType Code = "BucketTypeError"

	// ErrInvalidRange means year_range was called with start > end.
	ErrInvalidRange Code = "InvalidRange"

	// ErrUdtMetadataMissing means the store has no UDT definition under
	// the keyspace/name the codec was asked to resolve.
	ErrUdtMetadataMissing Code = "UdtMetadataMissing"

	// ErrStore covers any driver-reported failure on prepare or execute.
	ErrStore Code = "StoreError"

	// ErrPartialBatchFailure means one or more per-partition logged
	// batches failed during ingest; see PartialBatchFailure for detail.
	ErrPartialBatchFailure Code = "PartialBatchFailure"

	// ErrScatterGatherFailure means one or more per-bucket SELECTs
	// failed during a scatter-gather query; see ScatterGatherFailure.
	ErrScatterGatherFailure Code = "ScatterGatherFailure"
)

// HTTPStatus maps a Code to the status the HTTP boundary shim should
// return, per the taxonomy in the specification's error handling
// design. Codes not listed here map to 500.
func HTTPStatus(code Code) int {
	switch code {
	case ErrInvalidRequest, ErrConfigNotFound, ErrInvalidConfig, ErrBucketType, ErrInvalidRange:
		return 400
	case ErrUdtMetadataMissing, ErrStore, ErrPartialBatchFailure, ErrScatterGatherFailure:
		return 500
	default:
		return 500
	}
}

// PartialBatchFailure is returned by IngestEngine when one or more of
// the per-partition logged batches failed. Rows belonging to
// partitions not listed here were committed and are not rolled back.
type PartialBatchFailure struct {
	// FailedPartitions maps a human-readable partition key
	// (PartitionKey.String()) to the underlying driver error.
	FailedPartitions map[string]error
}

func (f *PartialBatchFailure) Error() string {
	return Errorf("partial batch failure across %d partition(s)", len(f.FailedPartitions)).Error()
}

// Is lets errors.Is(err, ErrPartialBatchFailure) work via the Code Is()
// contract used elsewhere in this package.
func (f *PartialBatchFailure) Is(err error) bool {
	return Is(err, ErrPartialBatchFailure)
}

// ScatterGatherFailure is returned by QueryEngine when one or more of
// the per-bucket SELECTs failed. No partial results are returned to
// the caller in this case.
type ScatterGatherFailure struct {
	// FailedBuckets maps bucket year to the underlying driver error.
	FailedBuckets map[int]error
}

func (f *ScatterGatherFailure) Error() string {
	return Errorf("scatter-gather failure across %d bucket(s)", len(f.FailedBuckets)).Error()
}

func (f *ScatterGatherFailure) Is(err error) bool {
	return Is(err, ErrScatterGatherFailure)
}

// MarshalJSON returns the provided error as a json object (as a string)
// representing a codedError. If err is not already a codedError, the json
// object will still represent a codedError but its `code` value will be empty.
// Note: an empty code here is intentional and is different from code
// `errors.Uncoded` which is a valid code; it just means the developer returned
// a codedError but didn't bother to choose (or create) a useful error code.
func MarshalJSON(err error) string {
	cause := Cause(err)

	var out *codedError

	switch v := cause.(type) {
	case codedError:
		v.Wrapped = err.Error()
		out = &v
	default:
		out = &codedError{
			Message: cause.Error(),
			Wrapped: err.Error(),
		}
	}

	// Marshal the codedError to json as output.
	j, jerr := json.Marshal(out)
	if jerr != nil {
		return out.Error()
	}

	return string(j)

}

// UnmarshalJSON converts the byte slice into a codedError. If the bytes can't
// unmarshal to a codedError, a normal error will be returned containing the
// string value of the byte slice.
func UnmarshalJSON(r io.Reader) error {
	b, _ := io.ReadAll(r)

	out := &codedError{}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.New(string(b))
	}
	return out
}
