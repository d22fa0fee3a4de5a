// Package readonly implements the read-only manager: a replica of the primary's topic and
// consumer metadata that validates consume and size requests and picks the partitions to
// read from.
package readonly

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mohitkumar/mqueue/container"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/store"
	"go.uber.org/zap"
)

// Topic is the replica's view of a topic. Consumers only ever get added.
type Topic struct {
	Name           string
	PartitionCount int

	consumers *container.IDSet
	cursors   *container.CursorTable
}

// Target is one (partition, broker) a read can be sent to.
type Target struct {
	Partition int
	Broker    string
}

// Directory holds topics and the partition -> broker map. mu guards both maps; cursors
// advance under their own lock.
type Directory struct {
	Logger *zap.Logger

	mu                sync.RWMutex
	topics            map[string]*Topic
	brokerByPartition map[string][]string
}

func NewDirectory(logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		Logger:            logger,
		topics:            make(map[string]*Topic),
		brokerByPartition: make(map[string][]string),
	}
}

// Restore loads topics, partition brokers and consumers from a store snapshot. Entries
// already present are kept.
func (d *Directory) Restore(snap *store.Snapshot) {
	for _, rec := range snap.Topics {
		if _, err := d.SyncAddTopic(rec.Name, rec.Partitions, rec.Brokers); err != nil {
			d.Logger.Warn("skipping stored topic", zap.String("topic", rec.Name), zap.Error(err))
			continue
		}
		for _, id := range snap.Consumers[rec.Name] {
			_ = d.SyncAddConsumer(rec.Name, id)
		}
	}
	d.Logger.Info("restored directory", zap.Int("topics", len(snap.Topics)))
}

// SyncAddTopic records a topic pushed by the primary and reports whether it was new. A topic
// that is already known is left untouched, so repeated syncs are harmless. brokers must name
// exactly one host per partition.
func (d *Directory) SyncAddTopic(name string, partitionCount int, brokers []string) (bool, error) {
	if partitionCount < 1 {
		return false, errs.ErrInvalidRequestf(fmt.Sprintf("topic %q: partition count %d", name, partitionCount))
	}
	if len(brokers) != partitionCount {
		return false, errs.ErrInvalidRequestf(fmt.Sprintf("topic %q: %d brokers for %d partitions",
			name, len(brokers), partitionCount))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.topics[name]; ok {
		return false, nil
	}
	list := append([]string(nil), brokers...)
	d.topics[name] = &Topic{
		Name:           name,
		PartitionCount: partitionCount,
		consumers:      container.NewIDSet(),
		cursors:        container.NewCursorTable(),
	}
	d.brokerByPartition[name] = list
	d.Logger.Info("synced topic", zap.String("topic", name), zap.Int("partitions", partitionCount))
	return true, nil
}

// SyncAddConsumer records a consumer pushed by the primary.
func (d *Directory) SyncAddConsumer(topic, consumerID string) error {
	d.mu.RLock()
	t, ok := d.topics[topic]
	d.mu.RUnlock()
	if !ok {
		return errs.ErrTopicNotFoundf(topic)
	}
	if t.consumers.Add(consumerID) {
		d.Logger.Debug("synced consumer", zap.String("topic", topic), zap.String("consumer_id", consumerID))
	}
	return nil
}

// IsRequestValid checks a read request: the topic must exist, an explicit partition must be
// in range and the consumer must be registered on the topic.
func (d *Directory) IsRequestValid(topic, consumerID string, partition *int) error {
	d.mu.RLock()
	t, ok := d.topics[topic]
	d.mu.RUnlock()
	if !ok {
		return errs.ErrTopicNotFoundf(topic)
	}
	if partition != nil && (*partition < 0 || *partition >= t.PartitionCount) {
		return errs.ErrInvalidPartitionf(topic, *partition, t.PartitionCount)
	}
	if !t.consumers.Contains(consumerID) {
		return errs.ErrConsumerNotRegisteredf(consumerID, topic)
	}
	return nil
}

// ResolvePartition returns the consumer's next partition in round-robin order.
func (d *Directory) ResolvePartition(topic, consumerID string) (int, error) {
	d.mu.RLock()
	t, ok := d.topics[topic]
	d.mu.RUnlock()
	if !ok {
		return 0, errs.ErrTopicNotFoundf(topic)
	}
	return t.cursors.Next(consumerID, t.PartitionCount), nil
}

func (d *Directory) BrokerHost(topic string, partition int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list, ok := d.brokerByPartition[topic]
	if !ok {
		return "", errs.ErrTopicNotFoundf(topic)
	}
	if partition < 0 || partition >= len(list) {
		return "", errs.ErrInvalidPartitionf(topic, partition, len(list))
	}
	return list[partition], nil
}

// RouteConsume validates the request and returns the partitions to try in order. An explicit
// partition yields exactly that target. Otherwise every partition is returned once, in cyclic
// order starting at the consumer's round-robin cursor.
func (d *Directory) RouteConsume(topic, consumerID string, partition *int) ([]Target, error) {
	if err := d.IsRequestValid(topic, consumerID, partition); err != nil {
		return nil, err
	}
	if partition != nil {
		host, err := d.BrokerHost(topic, *partition)
		if err != nil {
			return nil, err
		}
		return []Target{{Partition: *partition, Broker: host}}, nil
	}
	start, err := d.ResolvePartition(topic, consumerID)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	list := d.brokerByPartition[topic]
	targets := make([]Target, len(list))
	for i := range list {
		p := (start + i) % len(list)
		targets[i] = Target{Partition: p, Broker: list[p]}
	}
	d.mu.RUnlock()
	return targets, nil
}

// RouteSize validates the request and returns the partitions whose sizes make up the answer:
// the explicit partition, or all of them in partition order.
func (d *Directory) RouteSize(topic, consumerID string, partition *int) ([]Target, error) {
	if err := d.IsRequestValid(topic, consumerID, partition); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := d.brokerByPartition[topic]
	if partition != nil {
		return []Target{{Partition: *partition, Broker: list[*partition]}}, nil
	}
	targets := make([]Target, len(list))
	for p, host := range list {
		targets[p] = Target{Partition: p, Broker: host}
	}
	return targets, nil
}

// Topics returns known topic names in order.
func (d *Directory) Topics() []string {
	d.mu.RLock()
	out := make([]string, 0, len(d.topics))
	for name := range d.topics {
		out = append(out, name)
	}
	d.mu.RUnlock()
	sort.Strings(out)
	return out
}
