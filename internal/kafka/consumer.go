package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/py-sit/skyalert/internal/config"
	"github.com/py-sit/skyalert/internal/logging"
)

// Controls is the subset of scheduler operations a trigger message may
// invoke.
type Controls interface {
	Start(ctx context.Context) error
	Stop() error
	TriggerCycle(ctx context.Context)
}

// triggerMessage is the wire format on the trigger topic.
type triggerMessage struct {
	Action string `json:"action"`
}

// Consumer listens on the trigger topic and relays control actions to the
// scheduler. Built only when a broker is configured.
type Consumer struct {
	reader   *kafkago.Reader
	controls Controls
	logger   *logging.Logger
}

func NewConsumer(cfg config.Config, controls Controls, logger *logging.Logger) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{cfg.Kafka.Broker},
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: r, controls: controls, logger: logger}
}

// Run consumes trigger messages until the context ends. Malformed or
// unknown messages are skipped.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Infof("Kafka trigger consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var trigger triggerMessage
		if err := json.Unmarshal(msg.Value, &trigger); err != nil {
			c.logger.Warnf("Skipping malformed trigger message at offset %d: %v", msg.Offset, err)
			continue
		}

		switch trigger.Action {
		case "run_cycle":
			c.logger.Infof("Trigger: run cycle now")
			c.controls.TriggerCycle(ctx)
		case "start":
			if err := c.controls.Start(ctx); err != nil {
				c.logger.Warnf("Trigger start ignored: %v", err)
			}
		case "stop":
			if err := c.controls.Stop(); err != nil {
				c.logger.Warnf("Trigger stop ignored: %v", err)
			}
		default:
			c.logger.Warnf("Skipping unknown trigger action %q", trigger.Action)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
