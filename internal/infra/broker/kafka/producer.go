package kafka

import (
	"context"

	"github.com/IBM/sarama"
)

const (
	defaultClientID   = "kodesha-outbox"
	defaultMaxRetries = 5
)

// Options names the tunables the composition root cares about; everything
// else stays at the sarama defaults required for idempotent production.
type Options struct {
	ClientID   string
	MaxRetries int
}

type Producer struct {
	sync sarama.SyncProducer
}

func NewProducer(brokers []string, opts Options) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = opts.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = defaultClientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = opts.MaxRetries
	if cfg.Producer.Retry.Max <= 0 {
		cfg.Producer.Retry.Max = defaultMaxRetries
	}
	// Idempotent production requires a single in-flight request.
	cfg.Net.MaxOpenRequests = 1
	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{sync: sync}, nil
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hs := make([]sarama.RecordHeader, 0, len(headers))
	for k, v := range headers {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(payload),
		Headers: hs,
	}
	_, _, err := p.sync.SendMessage(msg)
	return err
}

func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}
