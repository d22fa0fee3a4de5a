package readonly

import (
	"context"
	"errors"

	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/metrics"
	"go.uber.org/zap"
)

// BrokerClient reads from partition brokers.
type BrokerClient interface {
	Consume(ctx context.Context, host, topic string, partition int, consumerID string) (string, error)
	Size(ctx context.Context, host, topic string, partition int, consumerID string) (int, error)
}

// ReadonlyManager serves consume and size requests by forwarding them to partition brokers.
type ReadonlyManager struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	dir     *Directory
	brokers BrokerClient
}

func NewReadonlyManager(dir *Directory, brokers BrokerClient, m *metrics.Metrics, logger *zap.Logger) *ReadonlyManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadonlyManager{Logger: logger, Metrics: m, dir: dir, brokers: brokers}
}

func (m *ReadonlyManager) Directory() *Directory {
	return m.dir
}

// Consume returns the next message for the consumer and the partition it came from. Without
// an explicit partition, partitions are tried in round-robin order until one has data.
// errs.ErrNoData means every tried partition was empty.
func (m *ReadonlyManager) Consume(ctx context.Context, topic, consumerID string, partition *int) (string, int, error) {
	targets, err := m.dir.RouteConsume(topic, consumerID, partition)
	if err != nil {
		return "", 0, err
	}
	for _, t := range targets {
		msg, err := m.brokers.Consume(ctx, t.Broker, topic, t.Partition, consumerID)
		if err == nil {
			m.Metrics.IncConsumed(topic)
			return msg, t.Partition, nil
		}
		if !errors.Is(err, errs.ErrNoData) {
			m.Logger.Warn("consume failed", zap.String("topic", topic), zap.Int("partition", t.Partition),
				zap.String("broker", t.Broker), zap.Error(err))
			return "", t.Partition, err
		}
	}
	m.Metrics.IncConsumeEmpty(topic)
	return "", 0, errs.ErrNoData
}

// Size returns the number of unread messages for the consumer on one partition, or summed
// over all partitions when partition is nil.
func (m *ReadonlyManager) Size(ctx context.Context, topic, consumerID string, partition *int) (int, error) {
	targets, err := m.dir.RouteSize(topic, consumerID, partition)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, t := range targets {
		n, err := m.brokers.Size(ctx, t.Broker, topic, t.Partition, consumerID)
		if err != nil {
			m.Logger.Warn("size failed", zap.String("topic", topic), zap.Int("partition", t.Partition),
				zap.String("broker", t.Broker), zap.Error(err))
			return 0, err
		}
		total += n
	}
	return total, nil
}
