package store

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"github.com/platformdata/dynengine/errors"
)

// ClusterOptions configures the connection to the store cluster.
// Grounded on the teacher's legacy storage/cassandra.Storage.Open and
// index/storage_cass.go, generalised to the specification's
// configuration surface (§6: "connection endpoint, local datacenter,
// default keyspace, concurrency degree, statement-cache size").
type ClusterOptions struct {
	Hosts         []string
	LocalDC       string
	Keyspace      string
	Consistency   gocql.Consistency
	Timeout       time.Duration
	ConnectRetry  int
}

// DefaultClusterOptions mirrors the teacher's DefaultHosts/DefaultKeyspace
// constants, adapted to this module's domain.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		Hosts:        []string{"localhost"},
		Consistency:  gocql.Quorum,
		Timeout:      5 * time.Second,
		ConnectRetry: 10,
	}
}

// gocqlSession adapts *gocql.Session to the Session interface.
type gocqlSession struct {
	session *gocql.Session
}

// Open creates the cluster session. This file holds the module's only
// gocql-backed Session implementation (C10, "store session wrapper");
// cmd/dataengine also imports gocql, to parse the configured
// consistency level into ClusterOptions.Consistency.
func Open(opts ClusterOptions) (Session, error) {
	cluster := gocql.NewCluster(opts.Hosts...)
	cluster.Keyspace = opts.Keyspace
	cluster.Consistency = opts.Consistency
	cluster.Timeout = opts.Timeout
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: opts.ConnectRetry}
	if opts.LocalDC != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(
			gocql.DCAwareRoundRobinPolicy(opts.LocalDC),
		)
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, errors.Wrap(err, "opening store session")
	}
	return &gocqlSession{session: session}, nil
}

func (s *gocqlSession) Close() {
	s.session.Close()
}

func (s *gocqlSession) ExecuteLoggedBatch(ctx context.Context, keyspace string, stmts []BoundStatement) error {
	if len(stmts) == 0 {
		return nil
	}
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, st := range stmts {
		batch.Query(st.CQL, st.Args...)
	}
	if err := s.session.ExecuteBatch(batch); err != nil {
		return errors.New(errors.ErrStore, err.Error())
	}
	return nil
}

func (s *gocqlSession) ExecuteSelect(ctx context.Context, stmt BoundStatement) (Rows, error) {
	iter := s.session.Query(stmt.CQL, stmt.Args...).WithContext(ctx).Iter()
	return &gocqlRows{iter: iter}, nil
}

func (s *gocqlSession) UserType(ctx context.Context, keyspace, name string) (UserType, error) {
	md, err := s.session.KeyspaceMetadata(keyspace)
	if err != nil {
		return nil, errors.Wrapf(err, "loading keyspace metadata for %q", keyspace)
	}
	ut, ok := md.UserTypes[name]
	if !ok {
		return nil, errors.New(errors.ErrUdtMetadataMissing,
			"UDT "+keyspace+"."+name+" is not declared in the store's schema")
	}
	return gocqlUserType{ut}, nil
}

type gocqlUserType struct {
	ut *gocql.UserTypeMetadata
}

func (u gocqlUserType) FieldNames() []string {
	out := make([]string, len(u.ut.FieldNames))
	copy(out, u.ut.FieldNames)
	return out
}

type gocqlRows struct {
	iter *gocql.Iter
	err  error
}

func (r *gocqlRows) Next() (map[string]interface{}, bool) {
	row := make(map[string]interface{})
	if !r.iter.MapScan(row) {
		return nil, false
	}
	return row, true
}

func (r *gocqlRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.iter.Close()
}

func (r *gocqlRows) Close() error {
	return r.iter.Close()
}
