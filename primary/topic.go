package primary

import (
	"github.com/mohitkumar/mqueue/container"
	"github.com/mohitkumar/mqueue/errs"
)

// Topic is the primary's view of a topic: the broker host of every partition plus the
// registered producers and consumers. len(brokers) always equals PartitionCount.
type Topic struct {
	Name           string
	PartitionCount int

	brokers   []string
	producers *container.IDSet
	consumers *container.IDSet
	cursors   *container.CursorTable
}

func newTopic(name string, brokers []string) *Topic {
	list := make([]string, len(brokers))
	copy(list, brokers)
	return &Topic{
		Name:           name,
		PartitionCount: len(list),
		brokers:        list,
		producers:      container.NewIDSet(),
		consumers:      container.NewIDSet(),
		cursors:        container.NewCursorTable(),
	}
}

// Brokers returns a copy of the partition -> broker host list.
func (t *Topic) Brokers() []string {
	out := make([]string, len(t.brokers))
	copy(out, t.brokers)
	return out
}

func (t *Topic) BrokerFor(partition int) (string, error) {
	if partition < 0 || partition >= t.PartitionCount {
		return "", errs.ErrInvalidPartitionf(t.Name, partition, t.PartitionCount)
	}
	return t.brokers[partition], nil
}

func (t *Topic) HasProducer(id string) bool { return t.producers.Contains(id) }
func (t *Topic) HasConsumer(id string) bool { return t.consumers.Contains(id) }
func (t *Topic) Producers() []string        { return t.producers.IDs() }
func (t *Topic) Consumers() []string        { return t.consumers.IDs() }

// route picks the partition for a produce call. An explicit partition is validated and
// leaves the producer's round-robin cursor alone.
func (t *Topic) route(producerID string, partition *int) (string, int, error) {
	if !t.producers.Contains(producerID) {
		return "", 0, errs.ErrProducerNotRegisteredf(producerID, t.Name)
	}
	if partition != nil {
		host, err := t.BrokerFor(*partition)
		if err != nil {
			return "", 0, err
		}
		return host, *partition, nil
	}
	p := t.cursors.Next(producerID, t.PartitionCount)
	return t.brokers[p], p, nil
}
