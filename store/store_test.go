package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.SaveBroker(ctx, "b1", true))
	require.NoError(t, db.SaveBroker(ctx, "b2", true))
	require.NoError(t, db.SaveBroker(ctx, "b2", false))
	require.NoError(t, db.SaveTopic(ctx, "orders", []string{"b1", "b2", "b1"}))
	require.NoError(t, db.SaveProducer(ctx, "orders", "p1"))
	require.NoError(t, db.SaveProducer(ctx, "orders", "p1"))
	require.NoError(t, db.SaveConsumer(ctx, "orders", "c1"))
	require.NoError(t, db.SaveConsumer(ctx, "orders", "c2"))

	snap, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, []TopicRecord{{Name: "orders", Partitions: 3, Brokers: []string{"b1", "b2", "b1"}}}, snap.Topics)
	require.Equal(t, []string{"p1"}, snap.Producers["orders"])
	require.Equal(t, []string{"c1", "c2"}, snap.Consumers["orders"])
	require.Equal(t, []BrokerRecord{{Name: "b1", Active: true}, {Name: "b2", Active: false}}, snap.Brokers)

	require.NoError(t, db.DeleteBroker(ctx, "b2"))
	snap, err = db.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Brokers, 1)
}

func TestSaveTopic_DuplicateFails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.SaveTopic(ctx, "orders", []string{"b1"}))
	require.Error(t, db.SaveTopic(ctx, "orders", []string{"b2"}))

	snap, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b1"}, snap.Topics[0].Brokers)
}

func TestPartitionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.SavePartition(ctx, "orders", 1))
	require.NoError(t, db.SavePartition(ctx, "orders", 0))
	require.NoError(t, db.SavePartition(ctx, "orders", 0))
	require.NoError(t, db.SavePartitionProducer(ctx, "orders", 0, "p1"))
	require.NoError(t, db.SavePartitionConsumer(ctx, "orders", 1, "c1"))
	require.NoError(t, db.SavePartitionConsumer(ctx, "orders", 1, "c1"))

	parts, err := db.LoadPartitions(ctx)
	require.NoError(t, err)
	require.Equal(t, []PartitionRecord{
		{Topic: "orders", Index: 0, Producers: []string{"p1"}},
		{Topic: "orders", Index: 1, Consumers: []string{"c1"}},
	}, parts)
}

// TestOpenFile verifies that state written to a file database survives reopening.
func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "meta", "mqueue.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveTopic(ctx, "orders", []string{"b1", "b2"}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	snap, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Topics, 1)
	require.Equal(t, 2, snap.Topics[0].Partitions)
}
