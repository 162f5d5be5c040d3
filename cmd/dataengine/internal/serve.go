package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocql/gocql"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/platformdata/dynengine/busconsumer"
	"github.com/platformdata/dynengine/config"
	"github.com/platformdata/dynengine/httpapi"
	"github.com/platformdata/dynengine/ingest"
	"github.com/platformdata/dynengine/logger"
	"github.com/platformdata/dynengine/query"
	"github.com/platformdata/dynengine/registry"
	"github.com/platformdata/dynengine/stmtcache"
	"github.com/platformdata/dynengine/store"
	"github.com/platformdata/dynengine/tenant"
	"github.com/platformdata/dynengine/udt"
)

func newServeCmd() *cobra.Command {
	var bind string
	var withBus bool

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP ingest/query API and, optionally, the bus consumer.",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := bindFlags(v, cmd); err != nil {
				return err
			}

			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if bind != "" {
				cfg.HTTP.Bind = bind
			}

			return runServe(cmd.Context(), cfg, withBus)
		},
	}
	serveCmd.Flags().StringVar(&bind, "bind", "", "HTTP bind address, overrides the config file.")
	serveCmd.Flags().BoolVar(&withBus, "with-bus", false, "Also run the Kafka bus consumer using the config's [kafka] section.")
	return serveCmd
}

func runServe(ctx context.Context, cfg *config.Config, withBus bool) error {
	log, fileCloser, err := openLogger(cfg)
	if err != nil {
		return err
	}
	if fileCloser != nil {
		defer fileCloser.Close()
	}

	consistency := gocql.ParseConsistency(cfg.Store.Consistency)
	session, err := store.Open(store.ClusterOptions{
		Hosts:        cfg.Store.Hosts,
		LocalDC:      cfg.Store.LocalDC,
		Keyspace:     cfg.Store.Keyspace,
		Consistency:  consistency,
		Timeout:      time.Duration(cfg.Store.TimeoutSeconds) * time.Second,
		ConnectRetry: cfg.Store.ConnectRetry,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	stmtCacheSize := cfg.StatementCacheSize
	if stmtCacheSize <= 0 {
		stmtCacheSize = stmtcache.DefaultSize
	}
	stmtCache, err := stmtcache.New(stmtCacheSize, log.WithPrefix("stmtcache: "))
	if err != nil {
		return err
	}

	reg := registry.New()
	if cfg.TenantsPath != "" {
		if err := bootstrapTenants(reg, cfg.TenantsPath); err != nil {
			return err
		}
	}

	codec := udt.New(session, log.WithPrefix("udt: "))
	ingestEngine := ingest.New(session, reg, stmtCache, codec, int64(cfg.Concurrency), log.WithPrefix("ingest: "))
	queryEngine := query.New(session, reg, stmtCache, codec, int64(cfg.Concurrency), log.WithPrefix("query: "))

	router := mux.NewRouter()
	httpapi.New(router, ingestEngine, queryEngine, log.WithPrefix("httpapi: "))
	httpServer := &http.Server{Addr: cfg.HTTP.Bind, Handler: router}

	errc := make(chan error, 2)
	go func() {
		log.Infof("listening on %s", cfg.HTTP.Bind)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()

	var consumer *busconsumer.Consumer
	if withBus {
		consumer = busconsumer.New(busconsumer.Options{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, ingestEngine, log.WithPrefix("busconsumer: "))
		busCtx, cancelBus := context.WithCancel(ctx)
		defer cancelBus()
		go func() {
			log.Infof("consuming topic %s", cfg.Kafka.Topic)
			if err := consumer.Run(busCtx); err != nil {
				errc <- fmt.Errorf("bus consumer: %w", err)
			}
		}()
	}

	sigc := make(chan os.Signal, 2)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	if fileCloser != nil {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		go func() {
			for range hup {
				if err := fileCloser.Reopen(); err != nil {
					log.Errorf("reopening log file: %v", err)
				}
			}
		}()
	}

	select {
	case sig := <-sigc:
		log.Infof("received %s; gracefully shutting down", sig.String())
		go func() { <-sigc; os.Exit(1) }()
	case err := <-errc:
		log.Errorf("%v", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http server shutdown: %v", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Warnf("bus consumer close: %v", err)
		}
	}
	return nil
}

// openLogger builds the process logger per cfg.Log: a file logger with
// SIGHUP-triggered rotation when Path is set, otherwise stderr. The
// returned *logger.FileWriter is non-nil only in the file case, so the
// caller knows whether there is anything to Reopen or Close.
func openLogger(cfg *config.Config) (logger.Logger, *logger.FileWriter, error) {
	verbosity := logger.LevelInfo
	if cfg.Log.Level == "debug" {
		verbosity = logger.LevelDebug
	}
	if cfg.Log.Path == "" {
		if verbosity == logger.LevelDebug {
			return logger.NewVerboseLogger(os.Stderr), nil, nil
		}
		return logger.NewStandardLogger(os.Stderr), nil, nil
	}
	log, fw, err := logger.NewFileLogger(cfg.Log.Path, verbosity)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %q: %w", cfg.Log.Path, err)
	}
	return log, fw, nil
}

// bootstrapTenants loads a static tenant registration file and
// installs every entry into reg, per the Java source's
// SchemaInit/TenantInitializer fixed-bootstrap pattern (a supplemented
// feature: the specification otherwise leaves registration
// administrative and out of scope).
func bootstrapTenants(reg *registry.Registry, path string) error {
	regs, err := config.LoadTenants(path)
	if err != nil {
		return err
	}
	for _, r := range regs {
		var cfg *tenant.Config
		var err error
		if r.BucketColumn != "" {
			cfg, err = tenant.NewWithBucket(r.Keyspace, r.Table, r.PartitionKeys, r.BucketColumn, r.UdtColumns)
		} else {
			cfg, err = tenant.New(r.Keyspace, r.Table, r.PartitionKeys, r.UdtColumns)
		}
		if err != nil {
			return fmt.Errorf("bootstrapping tenant %s/%s/%s: %w", r.TenantID, r.Periodicity, r.DataType, err)
		}
		reg.Register(r.TenantID, r.Periodicity, r.DataType, cfg)
	}
	return nil
}
