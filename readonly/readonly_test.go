package readonly

import (
	"context"
	"fmt"
	"testing"

	"github.com/mohitkumar/mqueue/broker"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/metrics"
	"github.com/mohitkumar/mqueue/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func intp(i int) *int { return &i }

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	d := NewDirectory(logger.With(zap.String("role", "readonly")))
	added, err := d.SyncAddTopic("orders", 3, []string{"A", "B", "A"})
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, d.SyncAddConsumer("orders", "c1"))
	return d
}

func TestIsRequestValid(t *testing.T) {
	d := newTestDirectory(t)

	require.NoError(t, d.IsRequestValid("orders", "c1", nil))
	require.NoError(t, d.IsRequestValid("orders", "c1", intp(2)))
	require.ErrorIs(t, d.IsRequestValid("missing", "c1", nil), errs.ErrTopicNotFound)
	require.ErrorIs(t, d.IsRequestValid("orders", "c1", intp(3)), errs.ErrInvalidPartition)
	require.ErrorIs(t, d.IsRequestValid("orders", "c1", intp(-1)), errs.ErrInvalidPartition)
	require.ErrorIs(t, d.IsRequestValid("orders", "c2", nil), errs.ErrConsumerNotRegistered)
}

func TestSyncIsIdempotent(t *testing.T) {
	d := newTestDirectory(t)
	added, err := d.SyncAddTopic("orders", 3, []string{"X", "X", "X"})
	require.NoError(t, err)
	require.False(t, added)
	require.NoError(t, d.SyncAddConsumer("orders", "c1"))
	host, err := d.BrokerHost("orders", 1)
	require.NoError(t, err)
	require.Equal(t, "B", host)
	require.ErrorIs(t, d.SyncAddConsumer("missing", "c1"), errs.ErrTopicNotFound)
	require.Equal(t, []string{"orders"}, d.Topics())
}

func TestSyncAddTopic_BrokerListMismatch(t *testing.T) {
	d := NewDirectory(nil)
	for _, tc := range []struct {
		name    string
		count   int
		brokers []string
	}{
		{"short", 3, []string{"A"}},
		{"long", 1, []string{"A", "B"}},
		{"empty", 2, nil},
		{"no partitions", 0, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			added, err := d.SyncAddTopic("orders", tc.count, tc.brokers)
			require.ErrorIs(t, err, errs.ErrInvalidRequest)
			require.False(t, added)
		})
	}
	require.Empty(t, d.Topics())

	d.Restore(&store.Snapshot{
		Topics: []store.TopicRecord{
			{Name: "bad", Partitions: 2, Brokers: []string{"A"}},
			{Name: "good", Partitions: 1, Brokers: []string{"A"}},
		},
	})
	require.Equal(t, []string{"good"}, d.Topics())
}

func TestResolvePartition_RoundRobin(t *testing.T) {
	d := newTestDirectory(t)
	require.NoError(t, d.SyncAddConsumer("orders", "c2"))

	var seq []int
	for i := 0; i < 4; i++ {
		p, err := d.ResolvePartition("orders", "c1")
		require.NoError(t, err)
		seq = append(seq, p)
	}
	require.Equal(t, []int{0, 1, 2, 0}, seq)

	p, err := d.ResolvePartition("orders", "c2")
	require.NoError(t, err)
	require.Equal(t, 0, p)
}

func TestRouteConsume(t *testing.T) {
	d := newTestDirectory(t)

	targets, err := d.RouteConsume("orders", "c1", intp(1))
	require.NoError(t, err)
	require.Equal(t, []Target{{Partition: 1, Broker: "B"}}, targets)

	targets, err = d.RouteConsume("orders", "c1", nil)
	require.NoError(t, err)
	require.Equal(t, []Target{{0, "A"}, {1, "B"}, {2, "A"}}, targets)

	targets, err = d.RouteConsume("orders", "c1", nil)
	require.NoError(t, err)
	require.Equal(t, []Target{{1, "B"}, {2, "A"}, {0, "A"}}, targets)

	_, err = d.RouteConsume("orders", "nobody", nil)
	require.ErrorIs(t, err, errs.ErrConsumerNotRegistered)
}

func TestRestore(t *testing.T) {
	d := NewDirectory(nil)
	d.Restore(&store.Snapshot{
		Topics:    []store.TopicRecord{{Name: "orders", Partitions: 2, Brokers: []string{"A", "B"}}},
		Consumers: map[string][]string{"orders": {"c1"}},
	})
	require.NoError(t, d.IsRequestValid("orders", "c1", intp(1)))
}

// localBrokers serves reads from in-process brokers keyed by host.
type localBrokers map[string]*broker.Broker

func (l localBrokers) Consume(ctx context.Context, host, topic string, p int, consumerID string) (string, error) {
	return l[host].Consume(topic, p, consumerID)
}

func (l localBrokers) Size(ctx context.Context, host, topic string, p int, consumerID string) (int, error) {
	return l[host].Size(topic, p, consumerID)
}

func setupCluster(t *testing.T) (*ReadonlyManager, localBrokers) {
	t.Helper()
	ctx := context.Background()
	brokers := localBrokers{
		"A": broker.NewBroker("A", nil, nil, nil),
		"B": broker.NewBroker("B", nil, nil, nil),
	}
	for p, host := range []string{"A", "B", "A"} {
		b := brokers[host]
		require.NoError(t, b.CreatePartition(ctx, "orders", p))
		require.NoError(t, b.RegisterProducer(ctx, "orders", p, "p1"))
		require.NoError(t, b.RegisterConsumer(ctx, "orders", p, "c1", 0))
	}
	return NewReadonlyManager(newTestDirectory(t), brokers, metrics.New("readonly"), nil), brokers
}

// TestConsume_FailsOverToPartitionWithData verifies that a consumer with no explicit
// partition finds the only non-empty partition within one pass over all partitions,
// whichever partition its cursor starts on.
func TestConsume_FailsOverToPartitionWithData(t *testing.T) {
	for start := 0; start < 3; start++ {
		t.Run(fmt.Sprintf("cursor at %d", start), func(t *testing.T) {
			ctx := context.Background()
			m, brokers := setupCluster(t)
			for i := 0; i < start; i++ {
				_, err := m.Directory().ResolvePartition("orders", "c1")
				require.NoError(t, err)
			}
			_, err := brokers["A"].Produce("orders", 2, "p1", "only")
			require.NoError(t, err)

			msg, p, err := m.Consume(ctx, "orders", "c1", nil)
			require.NoError(t, err)
			require.Equal(t, "only", msg)
			require.Equal(t, 2, p)

			_, _, err = m.Consume(ctx, "orders", "c1", nil)
			require.ErrorIs(t, err, errs.ErrNoData)
		})
	}
}

// TestConsume_RoundRobinAcrossPartitions verifies that successive reads rotate the starting
// partition when every partition has data.
func TestConsume_RoundRobinAcrossPartitions(t *testing.T) {
	ctx := context.Background()
	m, brokers := setupCluster(t)
	for p, host := range []string{"A", "B", "A"} {
		_, err := brokers[host].Produce("orders", p, "p1", "m")
		require.NoError(t, err)
	}

	var parts []int
	for i := 0; i < 3; i++ {
		_, p, err := m.Consume(ctx, "orders", "c1", nil)
		require.NoError(t, err)
		parts = append(parts, p)
	}
	require.Equal(t, []int{0, 1, 2}, parts)
}

func TestConsume_ExplicitPartition(t *testing.T) {
	ctx := context.Background()
	m, brokers := setupCluster(t)
	_, err := brokers["B"].Produce("orders", 1, "p1", "x")
	require.NoError(t, err)

	_, _, err = m.Consume(ctx, "orders", "c1", intp(0))
	require.ErrorIs(t, err, errs.ErrNoData)

	msg, p, err := m.Consume(ctx, "orders", "c1", intp(1))
	require.NoError(t, err)
	require.Equal(t, "x", msg)
	require.Equal(t, 1, p)
}

func TestSize(t *testing.T) {
	ctx := context.Background()
	m, brokers := setupCluster(t)
	_, err := brokers["A"].Produce("orders", 0, "p1", "a")
	require.NoError(t, err)
	_, err = brokers["A"].Produce("orders", 2, "p1", "b")
	require.NoError(t, err)
	_, err = brokers["A"].Produce("orders", 2, "p1", "c")
	require.NoError(t, err)

	n, err := m.Size(ctx, "orders", "c1", nil)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = m.Size(ctx, "orders", "c1", intp(2))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = m.Size(ctx, "orders", "c9", nil)
	require.ErrorIs(t, err, errs.ErrConsumerNotRegistered)
}
