// Package storetest provides an in-memory store.Session used by the
// engine's own test suite, modeled on the teacher's convention of a
// hand-written fake per external dependency (see the teacher's mock
// package) rather than a generated mock or a live cluster.
//
// It is not a CQL parser for arbitrary CQL: it understands exactly the
// two statement shapes this module's own StatementCache generates
// (plain INSERT and the partition-key-equality + period_date-range
// SELECT from §4.6.1), which is all the engine ever sends it.
package storetest

import (
	"context"
	"strings"
	"sync"

	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/store"
)

type row struct {
	cols map[string]interface{}
}

type table struct {
	rows []row
}

// Session is a fake store.Session backed by process memory.
type Session struct {
	mu     sync.Mutex
	tables map[string]*table
	udts   map[string]store.UserType

	// batchFailFn, when non-nil, is consulted on every
	// ExecuteLoggedBatch call; if it returns true the batch fails and
	// none of its statements are applied. Used to simulate scenario 5
	// of the specification ("Partial-batch failure").
	batchFailFn func(keyspace string, stmts []store.BoundStatement) bool

	// selectFailFn, when non-nil, is consulted on every ExecuteSelect
	// call; if it returns true the SELECT fails outright. Used to
	// simulate a scatter-gather bucket failure.
	selectFailFn func(stmt store.BoundStatement) bool
}

// New returns an empty fake Session.
func New() *Session {
	return &Session{
		tables: make(map[string]*table),
		udts:   make(map[string]store.UserType),
	}
}

// RegisterUserType installs a UDT definition so UdtCodec lookups
// against this fake succeed.
func (s *Session) RegisterUserType(keyspace, name string, fieldNames []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.udts[keyspace+"."+name] = userType{fields: fieldNames}
}

// FailBatchWhen installs a predicate consulted on every subsequent
// ExecuteLoggedBatch call.
func (s *Session) FailBatchWhen(fn func(keyspace string, stmts []store.BoundStatement) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchFailFn = fn
}

// FailSelectWhen installs a predicate consulted on every subsequent
// ExecuteSelect call.
func (s *Session) FailSelectWhen(fn func(stmt store.BoundStatement) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectFailFn = fn
}

type userType struct{ fields []string }

func (u userType) FieldNames() []string {
	out := make([]string, len(u.fields))
	copy(out, u.fields)
	return out
}

var _ store.Session = (*Session)(nil)

func (s *Session) Close() {}

func (s *Session) UserType(ctx context.Context, keyspace, name string) (store.UserType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ut, ok := s.udts[keyspace+"."+name]
	if !ok {
		return nil, errors.New(errors.ErrUdtMetadataMissing, "UDT "+keyspace+"."+name+" not registered in fake store")
	}
	return ut, nil
}

func (s *Session) ExecuteLoggedBatch(ctx context.Context, keyspace string, stmts []store.BoundStatement) error {
	s.mu.Lock()
	fn := s.batchFailFn
	s.mu.Unlock()
	if fn != nil && fn(keyspace, stmts) {
		return errors.New(errors.ErrStore, "simulated store failure for keyspace "+keyspace)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range stmts {
		tableName, cols, err := parseInsert(st)
		if err != nil {
			return err
		}
		key := keyspace + "." + tableName
		t, ok := s.tables[key]
		if !ok {
			t = &table{}
			s.tables[key] = t
		}
		t.rows = append(t.rows, row{cols: cols})
	}
	return nil
}

func (s *Session) ExecuteSelect(ctx context.Context, stmt store.BoundStatement) (store.Rows, error) {
	s.mu.Lock()
	fn := s.selectFailFn
	s.mu.Unlock()
	if fn != nil && fn(stmt) {
		return nil, errors.New(errors.ErrStore, "simulated store failure for select")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keyspace, tableName, predicate, err := parseSelect(stmt)
	if err != nil {
		return nil, err
	}
	t, ok := s.tables[keyspace+"."+tableName]
	var matched []map[string]interface{}
	if ok {
		for _, r := range t.rows {
			if predicate(r.cols) {
				matched = append(matched, cloneCols(r.cols))
			}
		}
	}
	return &rows{rows: matched}, nil
}

func cloneCols(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type rows struct {
	rows []map[string]interface{}
	pos  int
}

func (r *rows) Next() (map[string]interface{}, bool) {
	if r.pos >= len(r.rows) {
		return nil, false
	}
	row := r.rows[r.pos]
	r.pos++
	return row, true
}

func (r *rows) Err() error   { return nil }
func (r *rows) Close() error { return nil }

// Dump returns every row currently stored in keyspace.tableName, for
// test assertions.
func (s *Session) Dump(keyspace, tableName string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[keyspace+"."+tableName]
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, len(t.rows))
	for i, r := range t.rows {
		out[i] = cloneCols(r.cols)
	}
	return out
}

// parseInsert understands "INSERT INTO table (c1, c2, ...) VALUES
// (?, ?, ...)" — the only INSERT shape StatementCache ever generates —
// and pairs the bound args with their column names.
func parseInsert(st store.BoundStatement) (tableName string, cols map[string]interface{}, err error) {
	cql := st.CQL
	const prefix = "INSERT INTO "
	if !strings.HasPrefix(cql, prefix) {
		return "", nil, errors.Errorf("fake store: unrecognised statement %q", cql)
	}
	rest := cql[len(prefix):]
	open := strings.IndexByte(rest, '(')
	table := strings.TrimSpace(rest[:open])
	if dot := strings.IndexByte(table, '.'); dot >= 0 {
		table = table[dot+1:]
	}
	close := strings.IndexByte(rest, ')')
	colList := rest[open+1 : close]
	names := splitCSV(colList)
	if len(names) != len(st.Args) {
		return "", nil, errors.Errorf("fake store: column count %d does not match arg count %d", len(names), len(st.Args))
	}
	cols = make(map[string]interface{}, len(names))
	for i, n := range names {
		cols[n] = st.Args[i]
	}
	return table, cols, nil
}

// parseSelect understands "SELECT * FROM table WHERE c1 = ? AND c2 = ?
// AND period_date >= ? AND period_date <= ?" — the only SELECT shape
// StatementCache ever generates — and builds an in-memory predicate
// over the bound args.
func parseSelect(st store.BoundStatement) (keyspace, tableName string, predicate func(map[string]interface{}) bool, err error) {
	cql := st.CQL
	const prefix = "SELECT * FROM "
	if !strings.HasPrefix(cql, prefix) {
		return "", "", nil, errors.Errorf("fake store: unrecognised statement %q", cql)
	}
	rest := cql[len(prefix):]
	whereIdx := strings.Index(rest, " WHERE ")
	var fq string
	var conds []string
	if whereIdx < 0 {
		fq = strings.TrimSpace(rest)
	} else {
		fq = strings.TrimSpace(rest[:whereIdx])
		conds = strings.Split(rest[whereIdx+len(" WHERE "):], " AND ")
	}
	ks, table := "", fq
	if dot := strings.IndexByte(fq, '.'); dot >= 0 {
		ks, table = fq[:dot], fq[dot+1:]
	}

	type cond struct {
		col string
		op  string
		arg interface{}
	}
	parsed := make([]cond, 0, len(conds))
	argIdx := 0
	for _, c := range conds {
		c = strings.TrimSpace(c)
		for _, op := range []string{">=", "<=", "="} {
			if i := strings.Index(c, op); i >= 0 {
				col := strings.TrimSpace(c[:i])
				if argIdx >= len(st.Args) {
					return "", "", nil, errors.Errorf("fake store: not enough bound args for predicate %q", cql)
				}
				parsed = append(parsed, cond{col: col, op: op, arg: st.Args[argIdx]})
				argIdx++
				break
			}
		}
	}
	predicate = func(row map[string]interface{}) bool {
		for _, p := range parsed {
			v, ok := row[p.col]
			if !ok {
				return false
			}
			switch p.op {
			case "=":
				if !equalScalar(v, p.arg) {
					return false
				}
			case ">=":
				if compareScalar(v, p.arg) < 0 {
					return false
				}
			case "<=":
				if compareScalar(v, p.arg) > 0 {
					return false
				}
			}
		}
		return true
	}
	return ks, table, predicate, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
