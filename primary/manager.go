package primary

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/metrics"
	"go.uber.org/zap"
)

// BrokerClient is the primary's view of the broker HTTP API.
type BrokerClient interface {
	CreatePartition(ctx context.Context, host, topic string, index int) error
	RegisterProducer(ctx context.Context, host, topic string, index int, producerID string) error
	RegisterConsumer(ctx context.Context, host, topic string, index int, consumerID string) error
	Produce(ctx context.Context, host, topic string, index int, producerID, message string) (int, error)
}

// ReplicaClient pushes metadata changes to a read-only manager.
type ReplicaClient interface {
	SyncTopic(ctx context.Context, addr, topic string, partitionCount int, brokers []string) error
	SyncConsumer(ctx context.Context, addr, topic, consumerID string) error
}

type DataManagerConfig struct {
	// Replicas are the base URLs of the read-only managers.
	Replicas []string
	// AutoCreate creates unknown topics on producer registration.
	AutoCreate        bool
	DefaultPartitions int
	// FanOutTimeout bounds a whole fan-out. Zero leaves only the per-call client timeout.
	FanOutTimeout time.Duration
}

// DataManager applies directory changes and propagates them to brokers and read-only managers.
// Propagation runs after the directory change is committed and is never rolled back; a
// failed call surfaces as errs.ErrUpstream and is repaired by Resync.
type DataManager struct {
	DataManagerConfig
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	dir      *Directory
	brokers  BrokerClient
	replicas ReplicaClient
}

func NewDataManager(cfg DataManagerConfig, dir *Directory, brokers BrokerClient, replicas ReplicaClient, m *metrics.Metrics, logger *zap.Logger) *DataManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPartitions < 1 {
		cfg.DefaultPartitions = 2
	}
	return &DataManager{
		DataManagerConfig: cfg,
		Logger:            logger,
		Metrics:           m,
		dir:               dir,
		brokers:           brokers,
		replicas:          replicas,
	}
}

func (m *DataManager) Directory() *Directory {
	return m.dir
}

// fanOut runs calls concurrently and waits for all of them. Calls ignore cancellation of the
// caller's context; only FanOutTimeout stops them.
type fanOut struct {
	m      *DataManager
	ctx    context.Context
	cancel context.CancelFunc
	group  multierror.Group
}

func (m *DataManager) newFanOut(ctx context.Context) *fanOut {
	f := &fanOut{m: m}
	base := context.WithoutCancel(ctx)
	if m.FanOutTimeout > 0 {
		f.ctx, f.cancel = context.WithTimeout(base, m.FanOutTimeout)
	} else {
		f.ctx, f.cancel = context.WithCancel(base)
	}
	return f
}

func (f *fanOut) Go(target string, fn func(ctx context.Context) error) {
	f.group.Go(func() error {
		if err := fn(f.ctx); err != nil {
			f.m.Metrics.IncFanOutFailure(target)
			f.m.Logger.Warn("fan-out call failed", zap.String("target", target), zap.Error(err))
			return err
		}
		return nil
	})
}

func (f *fanOut) Wait() error {
	defer f.cancel()
	if err := f.group.Wait().ErrorOrNil(); err != nil {
		return errs.ErrFanOut(err)
	}
	return nil
}

func (m *DataManager) CreateTopic(ctx context.Context, name string, partitions int) ([]string, error) {
	hosts, err := m.dir.CreateTopic(ctx, name, partitions)
	if err != nil {
		return nil, err
	}
	m.publishLoads()

	f := m.newFanOut(ctx)
	for i, host := range hosts {
		i, host := i, host
		f.Go(host, func(ctx context.Context) error { return m.brokers.CreatePartition(ctx, host, name, i) })
	}
	for _, addr := range m.Replicas {
		addr := addr
		f.Go(addr, func(ctx context.Context) error { return m.replicas.SyncTopic(ctx, addr, name, len(hosts), hosts) })
	}
	return hosts, f.Wait()
}

// RegisterProducer registers a producer on topic and on every partition broker. With
// AutoCreate set an unknown topic is first created with DefaultPartitions partitions.
func (m *DataManager) RegisterProducer(ctx context.Context, topic string) (string, int, error) {
	if m.AutoCreate {
		if _, err := m.dir.GetTopic(topic); errors.Is(err, errs.ErrTopicNotFound) {
			_, err := m.CreateTopic(ctx, topic, m.DefaultPartitions)
			if err != nil && !errors.Is(err, errs.ErrTopicExists) {
				return "", 0, err
			}
		}
	}
	id, count, err := m.dir.RegisterProducer(ctx, topic)
	if err != nil {
		return "", 0, err
	}
	t, err := m.dir.GetTopic(topic)
	if err != nil {
		return "", 0, err
	}
	f := m.newFanOut(ctx)
	for i, host := range t.Brokers() {
		i, host := i, host
		f.Go(host, func(ctx context.Context) error { return m.brokers.RegisterProducer(ctx, host, topic, i, id) })
	}
	return id, count, f.Wait()
}

// RegisterConsumer registers a consumer on topic, on every partition broker and on every
// read-only manager.
func (m *DataManager) RegisterConsumer(ctx context.Context, topic string) (string, int, error) {
	id, count, err := m.dir.RegisterConsumer(ctx, topic)
	if err != nil {
		return "", 0, err
	}
	t, err := m.dir.GetTopic(topic)
	if err != nil {
		return "", 0, err
	}
	f := m.newFanOut(ctx)
	for i, host := range t.Brokers() {
		i, host := i, host
		f.Go(host, func(ctx context.Context) error { return m.brokers.RegisterConsumer(ctx, host, topic, i, id) })
	}
	for _, addr := range m.Replicas {
		addr := addr
		f.Go(addr, func(ctx context.Context) error { return m.replicas.SyncConsumer(ctx, addr, topic, id) })
	}
	return id, count, f.Wait()
}

// Produce routes message to a partition broker and returns the partition it was written to.
func (m *DataManager) Produce(ctx context.Context, topic, producerID, message string, partition *int) (int, error) {
	host, p, err := m.dir.RouteProduce(topic, producerID, partition)
	if err != nil {
		return 0, err
	}
	if _, err := m.brokers.Produce(ctx, host, topic, p, producerID, message); err != nil {
		return 0, err
	}
	m.Metrics.IncProduced(topic)
	return p, nil
}

// Resync pushes the committed state of every topic again: each partition, with its producers
// and consumers, to the partition's broker, and every topic and consumer to every read-only
// manager. Brokers and read-only managers treat these calls as no-ops for state they already
// hold, so this is safe to run at any time.
func (m *DataManager) Resync(ctx context.Context) error {
	f := m.newFanOut(ctx)
	for _, info := range m.dir.Topics() {
		t, err := m.dir.GetTopic(info.Name)
		if err != nil {
			continue
		}
		name := info.Name
		producers, consumers := t.Producers(), t.Consumers()
		for i, host := range info.Brokers {
			i, host := i, host
			f.Go(host, func(ctx context.Context) error {
				if err := m.brokers.CreatePartition(ctx, host, name, i); err != nil {
					return err
				}
				for _, p := range producers {
					if err := m.brokers.RegisterProducer(ctx, host, name, i, p); err != nil {
						return err
					}
				}
				for _, c := range consumers {
					if err := m.brokers.RegisterConsumer(ctx, host, name, i, c); err != nil {
						return err
					}
				}
				return nil
			})
		}
		for _, addr := range m.Replicas {
			addr, info := addr, info
			f.Go(addr, func(ctx context.Context) error {
				if err := m.replicas.SyncTopic(ctx, addr, name, info.PartitionCount, info.Brokers); err != nil {
					return err
				}
				for _, c := range consumers {
					if err := m.replicas.SyncConsumer(ctx, addr, name, c); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
	return f.Wait()
}

func (m *DataManager) AddBroker(ctx context.Context, host string) error {
	if err := m.dir.AddBroker(ctx, host); err != nil {
		return err
	}
	m.publishLoads()
	return nil
}

func (m *DataManager) RemoveBroker(ctx context.Context, host string) error {
	if err := m.dir.RemoveBroker(ctx, host); err != nil {
		return err
	}
	m.Metrics.DeleteBroker(host)
	return nil
}

func (m *DataManager) ActivateBroker(ctx context.Context, host string) error {
	return m.dir.ActivateBroker(ctx, host)
}

func (m *DataManager) DeactivateBroker(ctx context.Context, host string) error {
	return m.dir.DeactivateBroker(ctx, host)
}

func (m *DataManager) publishLoads() {
	if m.Metrics == nil {
		return
	}
	active, inactive := m.dir.BrokerLoads()
	for h, n := range active {
		m.Metrics.SetBrokerPartitions(h, n)
	}
	for h, n := range inactive {
		m.Metrics.SetBrokerPartitions(h, n)
	}
}
