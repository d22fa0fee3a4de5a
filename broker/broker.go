// Package broker hosts partition logs: it appends produced messages, tracks each consumer's
// read offset per partition and answers consume and size requests.
package broker

import (
	"context"

	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/metrics"
	"github.com/mohitkumar/mqueue/store"
	"go.uber.org/zap"
)

// Store persists which partitions this broker hosts and who is registered on them.
type Store interface {
	SavePartition(ctx context.Context, topic string, index int) error
	SavePartitionProducer(ctx context.Context, topic string, index int, id string) error
	SavePartitionConsumer(ctx context.Context, topic string, index int, id string) error
	LoadPartitions(ctx context.Context) ([]store.PartitionRecord, error)
}

type Broker struct {
	Host    string
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	partitions *PartitionManager
	store      Store
}

// NewBroker returns a broker with no partitions. st may be nil, in which case nothing is persisted.
func NewBroker(host string, st Store, m *metrics.Metrics, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		Host:       host,
		Logger:     logger,
		Metrics:    m,
		partitions: NewPartitionManager(),
		store:      st,
	}
}

// Restore recreates hosted partitions and their registrations from the store. Messages and
// offsets are not persisted, so restored consumers start at offset 0.
func (b *Broker) Restore(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	recs, err := b.store.LoadPartitions(ctx)
	if err != nil {
		return errs.ErrLoadSnapshot(err)
	}
	for _, rec := range recs {
		p, _ := b.partitions.CreatePartition(rec.Topic, rec.Index)
		for _, id := range rec.Producers {
			p.RegisterProducer(id)
		}
		for _, id := range rec.Consumers {
			p.RegisterConsumer(id, 0)
		}
	}
	b.Logger.Info("restored partitions", zap.Int("partitions", len(recs)))
	return nil
}

// CreatePartition starts hosting (topic, index). Creating a hosted partition again is a no-op.
// The partition is persisted before it is hosted, so a failed call can be retried.
func (b *Broker) CreatePartition(ctx context.Context, topic string, index int) error {
	if index < 0 {
		return errs.ErrInvalidPartitionf(topic, index, 0)
	}
	if _, err := b.partitions.GetPartition(topic, index); err == nil {
		return nil
	}
	if b.store != nil {
		if err := b.store.SavePartition(ctx, topic, index); err != nil {
			return err
		}
	}
	if _, created := b.partitions.CreatePartition(topic, index); created {
		b.Logger.Info("created partition", zap.String("topic", topic), zap.Int("partition", index))
	}
	return nil
}

func (b *Broker) RegisterProducer(ctx context.Context, topic string, index int, producerID string) error {
	p, err := b.partitions.GetPartition(topic, index)
	if err != nil {
		return err
	}
	if p.CheckProducer(producerID) {
		return nil
	}
	if b.store != nil {
		if err := b.store.SavePartitionProducer(ctx, topic, index, producerID); err != nil {
			return err
		}
	}
	if p.RegisterProducer(producerID) {
		b.Logger.Debug("registered producer", zap.String("topic", topic), zap.Int("partition", index),
			zap.String("producer_id", producerID))
	}
	return nil
}

// RegisterConsumer starts tracking consumerID on the partition. Re-registering keeps the
// consumer's current offset.
func (b *Broker) RegisterConsumer(ctx context.Context, topic string, index int, consumerID string, offset int) error {
	p, err := b.partitions.GetPartition(topic, index)
	if err != nil {
		return err
	}
	if p.CheckConsumer(consumerID) {
		return nil
	}
	if b.store != nil {
		if err := b.store.SavePartitionConsumer(ctx, topic, index, consumerID); err != nil {
			return err
		}
	}
	if p.RegisterConsumer(consumerID, offset) {
		b.Logger.Debug("registered consumer", zap.String("topic", topic), zap.Int("partition", index),
			zap.String("consumer_id", consumerID))
	}
	return nil
}

// Produce appends message to the partition and returns its offset.
func (b *Broker) Produce(topic string, index int, producerID, message string) (int, error) {
	p, err := b.partitions.GetPartition(topic, index)
	if err != nil {
		return 0, err
	}
	if !p.CheckProducer(producerID) {
		return 0, errs.ErrProducerNotRegisteredf(producerID, topic)
	}
	off := p.AddLog(LogEntry{ProducerID: producerID, Message: message})
	b.Metrics.IncProduced(topic)
	return off, nil
}

// Consume returns the next unread message for consumerID, or errs.ErrNoData.
func (b *Broker) Consume(topic string, index int, consumerID string) (string, error) {
	p, err := b.partitions.GetPartition(topic, index)
	if err != nil {
		return "", err
	}
	if !p.CheckConsumer(consumerID) {
		return "", errs.ErrConsumerNotRegisteredf(consumerID, topic)
	}
	entry, ok := p.GetLog(consumerID)
	if !ok {
		b.Metrics.IncConsumeEmpty(topic)
		return "", errs.ErrNoDataf(topic, index)
	}
	b.Metrics.IncConsumed(topic)
	return entry.Message, nil
}

func (b *Broker) Size(topic string, index int, consumerID string) (int, error) {
	p, err := b.partitions.GetPartition(topic, index)
	if err != nil {
		return 0, err
	}
	if !p.CheckConsumer(consumerID) {
		return 0, errs.ErrConsumerNotRegisteredf(consumerID, topic)
	}
	return p.GetSize(consumerID), nil
}

func (b *Broker) Partitions() []PartitionRef {
	return b.partitions.Partitions()
}
