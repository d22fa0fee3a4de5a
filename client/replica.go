package client

import (
	"context"
	"net/http"

	"github.com/mohitkumar/mqueue/protocol"
)

// ReplicaClient pushes topic and consumer changes to read-only managers. Every call is
// idempotent on the receiving side and retried.
type ReplicaClient struct {
	d *doer
}

func NewReplicaClient(opts Options) *ReplicaClient {
	return &ReplicaClient{d: newDoer(opts)}
}

func (c *ReplicaClient) SyncTopic(ctx context.Context, addr, topic string, partitionCount int, brokers []string) error {
	return c.d.doIdempotent(ctx, http.MethodPost, addr, "/sync/topics",
		protocol.SyncTopicRequest{Name: topic, PartitionCount: partitionCount, BrokerList: brokers}, nil)
}

func (c *ReplicaClient) SyncConsumer(ctx context.Context, addr, topic, consumerID string) error {
	return c.d.doIdempotent(ctx, http.MethodPost, addr, "/sync/consumers",
		protocol.SyncConsumerRequest{Topic: topic, ConsumerID: consumerID}, nil)
}
