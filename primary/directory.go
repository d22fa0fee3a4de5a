// Package primary is the authoritative metadata manager: it owns topics, their partition to
// broker assignment, producer and consumer registration and the broker registry.
package primary

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/store"
	"go.uber.org/zap"
)

// Store persists directory changes. Every write happens before the in-memory state changes.
type Store interface {
	SaveTopic(ctx context.Context, name string, brokers []string) error
	SaveProducer(ctx context.Context, topic, id string) error
	SaveConsumer(ctx context.Context, topic, id string) error
	SaveBroker(ctx context.Context, name string, active bool) error
	DeleteBroker(ctx context.Context, name string) error
}

// TopicInfo is a read-only snapshot of a topic.
type TopicInfo struct {
	Name           string   `json:"name"`
	PartitionCount int      `json:"partition_count"`
	Brokers        []string `json:"broker_list"`
}

// Directory maps topics to partition brokers and tracks broker load.
// mu serialises broker bookkeeping and topic creation so two creations never pick brokers
// from the same load view. topicsMu guards the topic map only.
type Directory struct {
	Logger *zap.Logger

	mu      sync.Mutex
	brokers *BrokerRegistry

	topicsMu sync.RWMutex
	topics   map[string]*Topic

	store Store
	newID func() string
}

// NewDirectory returns an empty directory. st may be nil.
func NewDirectory(st Store, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		Logger:  logger,
		brokers: NewBrokerRegistry(),
		topics:  make(map[string]*Topic),
		store:   st,
		newID:   NewID,
	}
}

// NewID returns a random 32 character hex id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Restore rebuilds the directory from a store snapshot. Broker load is recomputed from the
// partition assignments.
func (d *Directory) Restore(snap *store.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.topicsMu.Lock()
	defer d.topicsMu.Unlock()

	d.brokers = NewBrokerRegistry()
	for _, b := range snap.Brokers {
		d.brokers.restore(b.Name, b.Active)
	}
	d.topics = make(map[string]*Topic, len(snap.Topics))
	for _, rec := range snap.Topics {
		t := newTopic(rec.Name, rec.Brokers)
		for _, id := range snap.Producers[rec.Name] {
			t.producers.Add(id)
		}
		for _, id := range snap.Consumers[rec.Name] {
			t.consumers.Add(id)
		}
		d.topics[rec.Name] = t
		d.brokers.Assign(rec.Brokers)
	}
	d.Logger.Info("restored directory", zap.Int("topics", len(snap.Topics)), zap.Int("brokers", len(snap.Brokers)))
}

// CreateTopic assigns a broker to each partition and records the topic. It returns the
// partition -> broker list.
func (d *Directory) CreateTopic(ctx context.Context, name string, partitions int) ([]string, error) {
	if partitions < 1 {
		return nil, errs.ErrInvalidPartitionCountf(partitions)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.GetTopic(name); err == nil {
		return nil, errs.ErrTopicExistsf(name)
	}
	hosts, err := d.brokers.Choose(partitions)
	if err != nil {
		return nil, err
	}
	if d.store != nil {
		if err := d.store.SaveTopic(ctx, name, hosts); err != nil {
			return nil, err
		}
	}
	d.brokers.Assign(hosts)

	d.topicsMu.Lock()
	d.topics[name] = newTopic(name, hosts)
	d.topicsMu.Unlock()

	d.Logger.Info("created topic", zap.String("topic", name), zap.Int("partitions", partitions),
		zap.Strings("brokers", hosts))
	return hosts, nil
}

func (d *Directory) GetTopic(name string) (*Topic, error) {
	d.topicsMu.RLock()
	defer d.topicsMu.RUnlock()
	t, ok := d.topics[name]
	if !ok {
		return nil, errs.ErrTopicNotFoundf(name)
	}
	return t, nil
}

// Topics lists all topics ordered by name.
func (d *Directory) Topics() []TopicInfo {
	d.topicsMu.RLock()
	out := make([]TopicInfo, 0, len(d.topics))
	for _, t := range d.topics {
		out = append(out, TopicInfo{Name: t.Name, PartitionCount: t.PartitionCount, Brokers: t.Brokers()})
	}
	d.topicsMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterProducer issues a new producer id for topic and returns it with the partition count.
func (d *Directory) RegisterProducer(ctx context.Context, topic string) (string, int, error) {
	t, err := d.GetTopic(topic)
	if err != nil {
		return "", 0, err
	}
	id := d.newID()
	if d.store != nil {
		if err := d.store.SaveProducer(ctx, topic, id); err != nil {
			return "", 0, err
		}
	}
	t.producers.Add(id)
	d.Logger.Info("registered producer", zap.String("topic", topic), zap.String("producer_id", id))
	return id, t.PartitionCount, nil
}

// RegisterConsumer issues a new consumer id for topic and returns it with the partition count.
func (d *Directory) RegisterConsumer(ctx context.Context, topic string) (string, int, error) {
	t, err := d.GetTopic(topic)
	if err != nil {
		return "", 0, err
	}
	id := d.newID()
	if d.store != nil {
		if err := d.store.SaveConsumer(ctx, topic, id); err != nil {
			return "", 0, err
		}
	}
	t.consumers.Add(id)
	d.Logger.Info("registered consumer", zap.String("topic", topic), zap.String("consumer_id", id))
	return id, t.PartitionCount, nil
}

// RouteProduce returns the broker host and partition a produce call should go to. With a nil
// partition the producer's partitions are used in round-robin order.
func (d *Directory) RouteProduce(topic, producerID string, partition *int) (string, int, error) {
	t, err := d.GetTopic(topic)
	if err != nil {
		return "", 0, err
	}
	return t.route(producerID, partition)
}

func (d *Directory) AddBroker(ctx context.Context, host string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.brokers.known(host) {
		return errs.ErrBrokerExistsf(host)
	}
	if d.store != nil {
		if err := d.store.SaveBroker(ctx, host, true); err != nil {
			return err
		}
	}
	if err := d.brokers.Add(host); err != nil {
		return err
	}
	d.Logger.Info("added broker", zap.String("broker", host))
	return nil
}

// RemoveBroker forgets host. Partitions already assigned to it keep pointing at it.
func (d *Directory) RemoveBroker(ctx context.Context, host string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.brokers.known(host) {
		return errs.ErrBrokerNotFoundf(host)
	}
	if d.store != nil {
		if err := d.store.DeleteBroker(ctx, host); err != nil {
			return err
		}
	}
	if err := d.brokers.Remove(host); err != nil {
		return err
	}
	d.Logger.Info("removed broker", zap.String("broker", host))
	return nil
}

func (d *Directory) ActivateBroker(ctx context.Context, host string) error {
	return d.setBrokerActive(ctx, host, true)
}

func (d *Directory) DeactivateBroker(ctx context.Context, host string) error {
	return d.setBrokerActive(ctx, host, false)
}

func (d *Directory) setBrokerActive(ctx context.Context, host string, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.brokers.known(host) {
		return errs.ErrBrokerNotFoundf(host)
	}
	if d.brokers.IsActive(host) == active {
		if active {
			return errs.ErrBrokerAlreadyActivef(host)
		}
		return errs.ErrBrokerAlreadyInactivef(host)
	}
	if d.store != nil {
		if err := d.store.SaveBroker(ctx, host, active); err != nil {
			return err
		}
	}
	var err error
	if active {
		err = d.brokers.Activate(host)
	} else {
		err = d.brokers.Deactivate(host)
	}
	if err != nil {
		return err
	}
	d.Logger.Info("changed broker state", zap.String("broker", host), zap.Bool("active", active))
	return nil
}

// BrokerLoads returns copies of the active and inactive host -> partition count maps.
func (d *Directory) BrokerLoads() (active, inactive map[string]int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.brokers.Loads()
}
