// Package kafka publishes audit events to a Kafka topic. The topic is the
// durable trail; querying materialized events is a downstream consumer's
// job, so ListByUnit is unsupported here.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"atomfleet/internal/audit"
)

// ErrQueryUnsupported is returned from read paths: the Kafka sink is
// produce-only.
var ErrQueryUnsupported = errors.New("audit queries are not supported by the kafka sink")

// Store produces audit events to Kafka, keyed by unit id so per-unit
// ordering is preserved within a partition.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Store, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(pingCtx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", resp.Err)
	}

	return &Store{client: client, topic: topic}, nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.UnitID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByUnit(context.Context, string) ([]audit.Event, error) {
	return nil, ErrQueryUnsupported
}

// Health checks broker reachability.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() {
	s.client.Close()
}
