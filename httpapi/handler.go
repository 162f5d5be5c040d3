// Package httpapi implements the HTTP boundary shim (component C9/C16)
// that exposes IngestEngine and QueryEngine over the routes from the
// specification's external-interfaces section. It is a thin adapter:
// request decoding, a call into an engine, response encoding, and
// error-to-status mapping — no business logic lives here.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/ingest"
	"github.com/platformdata/dynengine/logger"
	"github.com/platformdata/dynengine/query"
	"github.com/platformdata/dynengine/value"
)

// defaultPeriodicity and defaultDataType are used by the short query
// route and by the single-record ingest route, per the Java
// QueryController's path-segment defaulting (carried forward as a
// supplemented feature).
const (
	defaultPeriodicity = "DAILY"
	defaultDataType    = "NUMERIC"
)

// Handler adapts an *ingest.Engine and *query.Engine to HTTP.
type Handler struct {
	ingest *ingest.Engine
	query  *query.Engine
	log    logger.Logger
}

// New builds a Handler and registers its routes on router.
func New(router *mux.Router, ingestEngine *ingest.Engine, queryEngine *query.Engine, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger
	}
	h := &Handler{ingest: ingestEngine, query: queryEngine, log: log}
	router.HandleFunc("/api/ingest/{tenant}", h.handleIngestOne).Methods("POST").Name("IngestOne")
	router.HandleFunc("/api/ingest/batch", h.handleIngestBatch).Methods("POST").Name("IngestBatch")
	router.HandleFunc("/api/query/{tenant}", h.handleQuery).Methods("POST").Name("Query")
	router.HandleFunc("/api/query/{tenant}/{periodicity}", h.handleQuery).Methods("POST").Name("QueryPeriodicity")
	return h
}

func (h *Handler) handleIngestOne(w http.ResponseWriter, r *http.Request) {
	tenant := mux.Vars(r)["tenant"]
	var record value.Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, errors.New(errors.ErrInvalidRequest, "malformed request body: "+err.Error()))
		return
	}
	resp, err := h.ingest.IngestOne(r.Context(), tenant, defaultPeriodicity, defaultDataType, record)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": resp.Status, "tenant": resp.Tenant})
}

type batchRequest struct {
	TenantID    string         `json:"tenant_id"`
	Periodicity string         `json:"periodicity"`
	DataType    string         `json:"data_type"`
	Data        []value.Record `json:"data"`
}

func (h *Handler) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.ErrInvalidRequest, "malformed request body: "+err.Error()))
		return
	}
	resp, err := h.ingest.IngestBatch(r.Context(), ingest.Request{
		TenantID:    req.TenantID,
		Periodicity: req.Periodicity,
		DataType:    req.DataType,
		Data:        req.Data,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": resp.Status, "tenant": resp.Tenant, "rows": resp.Rows})
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenant := vars["tenant"]
	periodicity := vars["periodicity"]
	if periodicity == "" {
		periodicity = defaultPeriodicity
	}
	var criteria value.Record
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeError(w, errors.New(errors.ErrInvalidRequest, "malformed request body: "+err.Error()))
		return
	}
	rows, err := h.query.Retrieve(r.Context(), tenant, periodicity, defaultDataType, criteria)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	var code errors.Code
	var pbf *errors.PartialBatchFailure
	var sgf *errors.ScatterGatherFailure
	switch {
	case errors.As(err, &pbf):
		code = errors.ErrPartialBatchFailure
	case errors.As(err, &sgf):
		code = errors.ErrScatterGatherFailure
	default:
		code = codeOf(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.HTTPStatus(code))
	_, _ = w.Write([]byte(errors.MarshalJSON(err)))
}

// codeOf best-efforts the Code out of a coded error by walking the
// taxonomy's known codes; unrecognised errors map to ErrUncoded, which
// HTTPStatus treats as a 500.
func codeOf(err error) errors.Code {
	for _, c := range []errors.Code{
		errors.ErrInvalidRequest,
		errors.ErrConfigNotFound,
		errors.ErrInvalidConfig,
		errors.ErrBucketType,
		errors.ErrInvalidRange,
		errors.ErrUdtMetadataMissing,
		errors.ErrStore,
	} {
		if errors.Is(err, c) {
			return c
		}
	}
	return errors.ErrUncoded
}
