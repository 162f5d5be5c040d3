// Package config loads the process configuration (component C13) and
// the optional static tenant bootstrap list (the supplemented
// "tenant bootstrap helper" feature), both TOML, in the teacher's
// server.Config convention.
package config

import (
	"os"

	"github.com/pelletier/go-toml"

	"github.com/platformdata/dynengine/errors"
)

// Config is the top-level process configuration.
type Config struct {
	Store struct {
		Hosts          []string `toml:"hosts"`
		LocalDC        string   `toml:"local-dc"`
		Keyspace       string   `toml:"keyspace"`
		Consistency    string   `toml:"consistency"`
		TimeoutSeconds int      `toml:"timeout-seconds"`
		ConnectRetry   int      `toml:"connect-retry"`
	} `toml:"store"`

	Concurrency        int `toml:"concurrency"`
	StatementCacheSize int `toml:"statement-cache-size"`

	HTTP struct {
		Bind string `toml:"bind"`
	} `toml:"http"`

	Kafka struct {
		Brokers []string `toml:"brokers"`
		Topic   string   `toml:"topic"`
		GroupID string   `toml:"group-id"`
	} `toml:"kafka"`

	Log struct {
		Level string `toml:"level"`
		Path  string `toml:"path"`
	} `toml:"log"`

	TenantsPath string `toml:"tenants-path"`
}

// Default returns a Config with the same baseline values
// store.DefaultClusterOptions uses, so a process can start with no
// config file present.
func Default() *Config {
	c := &Config{}
	c.Store.Hosts = []string{"localhost"}
	c.Store.Consistency = "QUORUM"
	c.Store.TimeoutSeconds = 5
	c.Store.ConnectRetry = 10
	c.Concurrency = 0 // 0 selects ingest.DefaultConcurrency/query.DefaultConcurrency
	c.StatementCacheSize = 1024
	c.HTTP.Bind = ":8080"
	c.Kafka.Topic = "platform-ingest"
	c.Kafka.GroupID = "dynengine"
	c.Log.Level = "info"
	return c
}

// Load reads and parses a TOML config file at path, starting from Default.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %q", path)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %q", path)
	}
	return c, nil
}

// TenantRegistration is one entry of a static tenant bootstrap file,
// modeled on the Java source's SchemaInit/TenantInitializer: a fixed
// set of tenants registered at process start rather than over an
// administrative API.
type TenantRegistration struct {
	TenantID      string   `toml:"tenant_id"`
	Periodicity   string   `toml:"periodicity"`
	DataType      string   `toml:"data_type"`
	Keyspace      string   `toml:"keyspace"`
	Table         string   `toml:"table"`
	PartitionKeys []string `toml:"partition_keys"`
	BucketColumn  string   `toml:"bucket_column"`
	UdtColumns    []string `toml:"udt_columns"`
}

// LoadTenants reads a TOML file of the shape:
//
//	[[tenants]]
//	tenant_id = "IBM"
//	periodicity = "DAILY"
//	data_type = "NUMERIC"
//	keyspace = "marketdata"
//	table = "daily_numeric"
//	partition_keys = ["tenant_id", "instrument_id", "period_year"]
//	bucket_column = "period_year"
//	udt_columns = ["data"]
func LoadTenants(path string) ([]TenantRegistration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading tenants file %q", path)
	}
	var wrapper struct {
		Tenants []TenantRegistration `toml:"tenants"`
	}
	if err := toml.Unmarshal(data, &wrapper); err != nil {
		return nil, errors.Wrapf(err, "parsing tenants file %q", path)
	}
	return wrapper.Tenants, nil
}
