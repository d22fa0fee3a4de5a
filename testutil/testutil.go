// Package testutil starts in-process clusters for tests: brokers, read-only managers and a
// primary manager, each behind an httptest server.
package testutil

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohitkumar/mqueue/broker"
	"github.com/mohitkumar/mqueue/client"
	"github.com/mohitkumar/mqueue/metrics"
	"github.com/mohitkumar/mqueue/primary"
	"github.com/mohitkumar/mqueue/readonly"
	"github.com/mohitkumar/mqueue/rpc"
	"github.com/mohitkumar/mqueue/store"
	"go.uber.org/zap"
)

// TestCluster holds the servers and in-process components of a running test cluster.
type TestCluster struct {
	Brokers     []*broker.Broker
	BrokerURLs  []string
	Replicas    []*readonly.ReadonlyManager
	ReplicaURLs []string
	Primary     *primary.DataManager
	PrimaryURL  string
	Store       *store.DB

	servers []*httptest.Server
}

// ClusterOptions size the cluster.
type ClusterOptions struct {
	Brokers    int
	Replicas   int
	AutoCreate bool
}

// Client returns a queue client pointed at the primary and the first replica.
func (tc *TestCluster) Client() *client.QueueClient {
	ro := ""
	if len(tc.ReplicaURLs) > 0 {
		ro = tc.ReplicaURLs[0]
	}
	return client.NewQueueClient(tc.PrimaryURL, ro, client.Options{Timeout: 5 * time.Second})
}

// Cleanup closes all servers and the store.
func (tc *TestCluster) Cleanup() {
	for _, s := range tc.servers {
		s.Close()
	}
	if tc.Store != nil {
		_ = tc.Store.Close()
	}
}

func newLogger(t testing.TB, role string) *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("NewDevelopment: %v", err)
	}
	return logger.With(zap.String("role", role))
}

// StartCluster starts brokers, read-only managers and a primary, and registers every broker
// with the primary.
func StartCluster(t testing.TB, opts ClusterOptions) *TestCluster {
	t.Helper()

	db, err := store.Open(store.InMemory)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	tc := &TestCluster{Store: db}
	copts := client.Options{Timeout: 5 * time.Second, Retries: 2, RetryBackoff: 10 * time.Millisecond}

	for i := 0; i < opts.Brokers; i++ {
		logger := newLogger(t, "broker")
		b := broker.NewBroker("", nil, metrics.New("broker"), logger)
		srv := httptest.NewServer(rpc.NewBrokerHandler(b, logger))
		b.Host = srv.URL
		tc.Brokers = append(tc.Brokers, b)
		tc.BrokerURLs = append(tc.BrokerURLs, srv.URL)
		tc.servers = append(tc.servers, srv)
	}

	for i := 0; i < opts.Replicas; i++ {
		logger := newLogger(t, "readonly")
		m := readonly.NewReadonlyManager(readonly.NewDirectory(logger), client.NewBrokerClient(copts), metrics.New("readonly"), logger)
		srv := httptest.NewServer(rpc.NewReadonlyHandler(m, logger))
		tc.Replicas = append(tc.Replicas, m)
		tc.ReplicaURLs = append(tc.ReplicaURLs, srv.URL)
		tc.servers = append(tc.servers, srv)
	}

	logger := newLogger(t, "primary")
	dir := primary.NewDirectory(db, logger)
	tc.Primary = primary.NewDataManager(primary.DataManagerConfig{
		Replicas:          tc.ReplicaURLs,
		AutoCreate:        opts.AutoCreate,
		DefaultPartitions: 2,
	}, dir, client.NewBrokerClient(copts), client.NewReplicaClient(copts), metrics.New("primary"), logger)
	srv := httptest.NewServer(rpc.NewPrimaryHandler(tc.Primary, logger))
	tc.PrimaryURL = srv.URL
	tc.servers = append(tc.servers, srv)

	for _, u := range tc.BrokerURLs {
		if err := tc.Primary.AddBroker(context.Background(), u); err != nil {
			t.Fatalf("AddBroker: %v", err)
		}
	}
	return tc
}
