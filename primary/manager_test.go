package primary

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mohitkumar/mqueue/broker"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/metrics"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBrokers routes calls to in-process brokers keyed by host.
type fakeBrokers struct {
	mu      sync.Mutex
	brokers map[string]*broker.Broker
	down    map[string]bool
}

func newFakeBrokers(hosts ...string) *fakeBrokers {
	f := &fakeBrokers{brokers: make(map[string]*broker.Broker), down: make(map[string]bool)}
	for _, h := range hosts {
		f.brokers[h] = broker.NewBroker(h, nil, nil, zap.NewNop())
	}
	return f
}

func (f *fakeBrokers) get(ctx context.Context, host string) (*broker.Broker, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.ErrUpstreamf(host, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down[host] {
		return nil, errs.ErrUpstreamf(host, errors.New("connection refused"))
	}
	return f.brokers[host], nil
}

func (f *fakeBrokers) CreatePartition(ctx context.Context, host, topic string, index int) error {
	b, err := f.get(ctx, host)
	if err != nil {
		return err
	}
	return b.CreatePartition(ctx, topic, index)
}

func (f *fakeBrokers) RegisterProducer(ctx context.Context, host, topic string, index int, id string) error {
	b, err := f.get(ctx, host)
	if err != nil {
		return err
	}
	return b.RegisterProducer(ctx, topic, index, id)
}

func (f *fakeBrokers) RegisterConsumer(ctx context.Context, host, topic string, index int, id string) error {
	b, err := f.get(ctx, host)
	if err != nil {
		return err
	}
	return b.RegisterConsumer(ctx, topic, index, id, 0)
}

func (f *fakeBrokers) Produce(ctx context.Context, host, topic string, index int, producerID, message string) (int, error) {
	b, err := f.get(ctx, host)
	if err != nil {
		return 0, err
	}
	return b.Produce(topic, index, producerID, message)
}

type syncCall struct {
	addr, topic, consumer string
	partitions            int
}

type fakeReplicas struct {
	mu    sync.Mutex
	calls []syncCall
	fail  bool
}

func (f *fakeReplicas) SyncTopic(ctx context.Context, addr, topic string, n int, brokers []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errs.ErrUpstreamf(addr, errors.New("timeout"))
	}
	f.calls = append(f.calls, syncCall{addr: addr, topic: topic, partitions: n})
	return nil
}

func (f *fakeReplicas) SyncConsumer(ctx context.Context, addr, topic, consumerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errs.ErrUpstreamf(addr, errors.New("timeout"))
	}
	f.calls = append(f.calls, syncCall{addr: addr, topic: topic, consumer: consumerID})
	return nil
}

func newTestDataManager(t *testing.T, cfg DataManagerConfig, hosts ...string) (*DataManager, *fakeBrokers, *fakeReplicas) {
	t.Helper()
	dir := newTestDirectory(t, nil, hosts...)
	bc := newFakeBrokers(hosts...)
	rc := &fakeReplicas{}
	return NewDataManager(cfg, dir, bc, rc, metrics.New("primary"), dir.Logger), bc, rc
}

// TestDataManager_Flow runs create, register and produce and checks the messages land on
// the brokers chosen by the directory.
func TestDataManager_Flow(t *testing.T) {
	ctx := context.Background()
	m, bc, rc := newTestDataManager(t, DataManagerConfig{Replicas: []string{"r1", "r2"}}, "b1", "b2")

	hosts, err := m.CreateTopic(ctx, "orders", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"b1", "b2", "b1"}, hosts)
	require.Equal(t, []broker.PartitionRef{{Topic: "orders", Index: 0}, {Topic: "orders", Index: 2}}, bc.brokers["b1"].Partitions())

	pid, n, err := m.RegisterProducer(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	cid, _, err := m.RegisterConsumer(ctx, "orders")
	require.NoError(t, err)

	for i, want := range []int{0, 1, 2, 0} {
		p, err := m.Produce(ctx, "orders", pid, "m", nil)
		require.NoError(t, err, "produce %d", i)
		require.Equal(t, want, p)
	}
	p, err := m.Produce(ctx, "orders", pid, "pinned", intp(1))
	require.NoError(t, err)
	require.Equal(t, 1, p)

	size, err := bc.brokers["b1"].Size("orders", 0, cid)
	require.NoError(t, err)
	require.Equal(t, 2, size)
	size, err = bc.brokers["b2"].Size("orders", 1, cid)
	require.NoError(t, err)
	require.Equal(t, 2, size)

	require.Len(t, rc.calls, 4)
}

func TestDataManager_AutoCreate(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestDataManager(t, DataManagerConfig{AutoCreate: true}, "b1")

	_, n, err := m.RegisterProducer(ctx, "events")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, _, err = m.RegisterConsumer(ctx, "unknown")
	require.ErrorIs(t, err, errs.ErrTopicNotFound)

	m.AutoCreate = false
	_, _, err = m.RegisterProducer(ctx, "other")
	require.ErrorIs(t, err, errs.ErrTopicNotFound)
}

// TestDataManager_FanOutFailure verifies that a failed replica keeps the committed state and
// reports an upstream error.
func TestDataManager_FanOutFailure(t *testing.T) {
	ctx := context.Background()
	m, _, rc := newTestDataManager(t, DataManagerConfig{Replicas: []string{"r1"}}, "b1")
	_, err := m.CreateTopic(ctx, "orders", 1)
	require.NoError(t, err)

	rc.fail = true
	cid, _, err := m.RegisterConsumer(ctx, "orders")
	require.ErrorIs(t, err, errs.ErrUpstream)
	topic, terr := m.Directory().GetTopic("orders")
	require.NoError(t, terr)
	require.True(t, topic.HasConsumer(cid))

	rc.fail = false
	require.NoError(t, m.Resync(ctx))
	last := rc.calls[len(rc.calls)-1]
	require.Equal(t, cid, last.consumer)
}

func TestDataManager_BrokerDown(t *testing.T) {
	ctx := context.Background()
	m, bc, _ := newTestDataManager(t, DataManagerConfig{}, "b1")
	_, err := m.CreateTopic(ctx, "orders", 1)
	require.NoError(t, err)
	pid, _, err := m.RegisterProducer(ctx, "orders")
	require.NoError(t, err)

	bc.down["b1"] = true
	_, err = m.Produce(ctx, "orders", pid, "x", nil)
	require.ErrorIs(t, err, errs.ErrUpstream)
}

// TestDataManager_ResyncRepairsBroker covers a broker that was unreachable while a topic was
// created: after it comes back, Resync creates its partition and the topic is usable.
func TestDataManager_ResyncRepairsBroker(t *testing.T) {
	ctx := context.Background()
	m, bc, _ := newTestDataManager(t, DataManagerConfig{}, "b1")

	bc.down["b1"] = true
	_, err := m.CreateTopic(ctx, "orders", 1)
	require.ErrorIs(t, err, errs.ErrUpstream)
	_, _, err = m.RegisterConsumer(ctx, "orders")
	require.ErrorIs(t, err, errs.ErrUpstream)
	bc.down["b1"] = false
	require.Empty(t, bc.brokers["b1"].Partitions())

	require.NoError(t, m.Resync(ctx))
	require.Equal(t, []broker.PartitionRef{{Topic: "orders", Index: 0}}, bc.brokers["b1"].Partitions())

	pid, _, err := m.RegisterProducer(ctx, "orders")
	require.NoError(t, err)
	p, err := m.Produce(ctx, "orders", pid, "hello", nil)
	require.NoError(t, err)
	require.Equal(t, 0, p)

	topic, err := m.Directory().GetTopic("orders")
	require.NoError(t, err)
	cid := topic.Consumers()[0]
	size, err := bc.brokers["b1"].Size("orders", 0, cid)
	require.NoError(t, err)
	require.Equal(t, 1, size)

	// a second pass changes nothing
	require.NoError(t, m.Resync(ctx))
	size, err = bc.brokers["b1"].Size("orders", 0, cid)
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

// TestDataManager_CallerCancel checks that fan-out calls still reach brokers and replicas
// when the caller's context is cancelled after the directory committed.
func TestDataManager_CallerCancel(t *testing.T) {
	m, bc, rc := newTestDataManager(t, DataManagerConfig{Replicas: []string{"r1"}}, "b1", "b2")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hosts, err := m.CreateTopic(ctx, "orders", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b1", "b2"}, hosts)
	cid, _, err := m.RegisterConsumer(ctx, "orders")
	require.NoError(t, err)
	pid, _, err := m.RegisterProducer(ctx, "orders")
	require.NoError(t, err)

	for i, host := range hosts {
		_, err := bc.brokers[host].Size("orders", i, cid)
		require.NoError(t, err)
		_, err = bc.brokers[host].Produce("orders", i, pid, "x")
		require.NoError(t, err)
	}
	require.Len(t, rc.calls, 2)
}

func TestDataManager_BrokerAdmin(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestDataManager(t, DataManagerConfig{})
	require.NoError(t, m.AddBroker(ctx, "b1"))
	require.NoError(t, m.DeactivateBroker(ctx, "b1"))
	_, err := m.CreateTopic(ctx, "orders", 1)
	require.ErrorIs(t, err, errs.ErrNoActiveBrokers)
	require.NoError(t, m.ActivateBroker(ctx, "b1"))
	require.NoError(t, m.RemoveBroker(ctx, "b1"))
	require.ErrorIs(t, m.RemoveBroker(ctx, "b1"), errs.ErrBrokerNotFound)
}
