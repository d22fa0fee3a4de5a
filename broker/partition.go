package broker

import (
	"sync"

	"github.com/mohitkumar/mqueue/container"
)

// LogEntry is one produced message.
type LogEntry struct {
	ProducerID string `json:"producer_id"`
	Message    string `json:"message"`
}

// PartitionLog is the append-only message log of one (topic, partition) together with the
// producers allowed to write to it and the read offset of every consumer.
// Every consumer offset stays within [0, Len()].
type PartitionLog struct {
	Topic string
	Index int

	mu        sync.Mutex
	logs      *container.LogQueue[LogEntry]
	producers *container.IDSet
	consumers *container.OffsetTable
}

func NewPartitionLog(topic string, index int) *PartitionLog {
	return &PartitionLog{
		Topic:     topic,
		Index:     index,
		logs:      container.NewLogQueue[LogEntry](),
		producers: container.NewIDSet(),
		consumers: container.NewOffsetTable(),
	}
}

// AddLog appends entry and returns its offset.
func (p *PartitionLog) AddLog(entry LogEntry) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logs.Append(entry)
}

// GetLog returns the entry at the consumer's offset and advances the offset. It returns false
// when the consumer has read everything. Concurrent readers with the same id never see the
// same entry twice.
func (p *PartitionLog) GetLog(consumerID string) (LogEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	off, ok := p.consumers.GetAndIncrement(consumerID, p.logs.Len())
	if !ok {
		return LogEntry{}, false
	}
	entry, err := p.logs.Get(off)
	if err != nil {
		return LogEntry{}, false
	}
	return entry, true
}

// GetSize returns how many entries the consumer has not read yet.
func (p *PartitionLog) GetSize(consumerID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logs.Len() - p.consumers.Get(consumerID)
}

// RegisterConsumer starts tracking consumerID at initialOffset. Registering an existing
// consumer keeps its progress.
func (p *PartitionLog) RegisterConsumer(consumerID string, initialOffset int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if initialOffset < 0 {
		initialOffset = 0
	}
	if n := p.logs.Len(); initialOffset > n {
		initialOffset = n
	}
	return p.consumers.Add(consumerID, initialOffset)
}

func (p *PartitionLog) RegisterProducer(producerID string) bool {
	return p.producers.Add(producerID)
}

func (p *PartitionLog) CheckProducer(producerID string) bool {
	return p.producers.Contains(producerID)
}

func (p *PartitionLog) CheckConsumer(consumerID string) bool {
	return p.consumers.Contains(consumerID)
}

func (p *PartitionLog) Len() int {
	return p.logs.Len()
}

func (p *PartitionLog) Producers() []string {
	return p.producers.IDs()
}
