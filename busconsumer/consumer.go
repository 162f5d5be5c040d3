// Package busconsumer implements the message-bus collaborator
// (component C15): it consumes IngestBatchRequest-shaped JSON messages
// off a Kafka topic and feeds them to IngestEngine, committing the
// offset only after a successful ingest.
package busconsumer

import (
	"context"
	"encoding/json"
	"io"

	segmentio "github.com/segmentio/kafka-go"

	"github.com/platformdata/dynengine/errors"
	"github.com/platformdata/dynengine/ingest"
	"github.com/platformdata/dynengine/logger"
	"github.com/platformdata/dynengine/value"
)

// Options configures the underlying kafka-go reader.
type Options struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer reads ingest batch requests off a topic and applies them
// via an IngestEngine.
type Consumer struct {
	reader *segmentio.Reader
	engine *ingest.Engine
	log    logger.Logger
}

// New constructs a Consumer. A nil log defaults to logger.NopLogger.
func New(opts Options, engine *ingest.Engine, log logger.Logger) *Consumer {
	if log == nil {
		log = logger.NopLogger
	}
	reader := segmentio.NewReader(segmentio.ReaderConfig{
		Brokers: opts.Brokers,
		Topic:   opts.Topic,
		GroupID: opts.GroupID,
	})
	return &Consumer{reader: reader, engine: engine, log: log}
}

type batchMessage struct {
	TenantID    string         `json:"tenant_id"`
	Periodicity string         `json:"periodicity"`
	DataType    string         `json:"data_type"`
	Data        []value.Record `json:"data"`
}

// Run consumes messages until ctx is cancelled or the reader returns a
// non-retryable error. It does not acknowledge (commit) a message
// whose ingest fails — per the specification, redelivery is expected
// in that case rather than an in-process retry loop here.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case err == nil:
		case err == io.EOF, err == context.Canceled:
			return nil
		default:
			return errors.Wrap(err, "fetching message from bus")
		}

		if err := c.handle(ctx, msg); err != nil {
			c.log.Warnf("busconsumer: ingest failed for offset %d, not committing: %v", msg.Offset, err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Errorf("busconsumer: commit failed for offset %d: %v", msg.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg segmentio.Message) error {
	var req batchMessage
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return errors.New(errors.ErrInvalidRequest, "malformed bus message: "+err.Error())
	}
	_, err := c.engine.IngestBatch(ctx, ingest.Request{
		TenantID:    req.TenantID,
		Periodicity: req.Periodicity,
		DataType:    req.DataType,
		Data:        req.Data,
	})
	return err
}

// Close releases the underlying kafka-go reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
