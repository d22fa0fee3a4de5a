package broker

import (
	"sort"
	"strconv"

	"github.com/mohitkumar/mqueue/errs"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// PartitionManager indexes the partitions hosted by this broker. Lookups on different
// partitions never share a lock.
type PartitionManager struct {
	partitions cmap.ConcurrentMap[string, *PartitionLog]
}

func NewPartitionManager() *PartitionManager {
	return &PartitionManager{partitions: cmap.New[*PartitionLog]()}
}

func partitionKey(topic string, index int) string {
	return topic + "/" + strconv.Itoa(index)
}

// CreatePartition adds an empty partition and reports whether it was created.
// An existing partition is kept as is.
func (m *PartitionManager) CreatePartition(topic string, index int) (*PartitionLog, bool) {
	key := partitionKey(topic, index)
	created := m.partitions.SetIfAbsent(key, NewPartitionLog(topic, index))
	p, _ := m.partitions.Get(key)
	return p, created
}

func (m *PartitionManager) GetPartition(topic string, index int) (*PartitionLog, error) {
	p, ok := m.partitions.Get(partitionKey(topic, index))
	if !ok {
		return nil, errs.ErrPartitionNotFoundf(topic, index)
	}
	return p, nil
}

// PartitionRef names a hosted partition.
type PartitionRef struct {
	Topic string `json:"name"`
	Index int    `json:"partition_index"`
}

// Partitions lists hosted partitions ordered by topic, then index.
func (m *PartitionManager) Partitions() []PartitionRef {
	out := make([]PartitionRef, 0, m.partitions.Count())
	for _, p := range m.partitions.Items() {
		out = append(out, PartitionRef{Topic: p.Topic, Index: p.Index})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Index < out[j].Index
	})
	return out
}
