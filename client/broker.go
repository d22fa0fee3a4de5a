package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mohitkumar/mqueue/protocol"
)

// BrokerClient calls the broker API. Hosts are passed per call.
type BrokerClient struct {
	d *doer
}

func NewBrokerClient(opts Options) *BrokerClient {
	return &BrokerClient{d: newDoer(opts)}
}

func (c *BrokerClient) CreatePartition(ctx context.Context, host, topic string, index int) error {
	return c.d.doIdempotent(ctx, http.MethodPost, host, "/topics",
		protocol.PartitionRequest{Name: topic, PartitionIndex: index}, nil)
}

func (c *BrokerClient) RegisterProducer(ctx context.Context, host, topic string, index int, producerID string) error {
	return c.d.doIdempotent(ctx, http.MethodPost, host, "/producer/register",
		protocol.BrokerRegisterProducerRequest{Topic: topic, ProducerID: producerID, PartitionIndex: index}, nil)
}

func (c *BrokerClient) RegisterConsumer(ctx context.Context, host, topic string, index int, consumerID string) error {
	return c.d.doIdempotent(ctx, http.MethodPost, host, "/consumer/register",
		protocol.BrokerRegisterConsumerRequest{Topic: topic, ConsumerID: consumerID, PartitionIndex: index}, nil)
}

// Produce is not retried; a retry after a lost response would append the message twice.
func (c *BrokerClient) Produce(ctx context.Context, host, topic string, index int, producerID, message string) (int, error) {
	var resp protocol.BrokerProduceResponse
	err := c.d.do(ctx, http.MethodPost, host, "/producer/produce", nil,
		protocol.BrokerProduceRequest{Topic: topic, ProducerID: producerID, Message: message, PartitionIndex: index}, &resp)
	return resp.Offset, err
}

func readQuery(topic string, partition int, consumerID string) url.Values {
	q := url.Values{}
	q.Set("topic", topic)
	q.Set("consumer_id", consumerID)
	q.Set("partition_number", strconv.Itoa(partition))
	return q
}

// Consume returns the next message or errs.ErrNoData.
func (c *BrokerClient) Consume(ctx context.Context, host, topic string, partition int, consumerID string) (string, error) {
	var resp protocol.ConsumeResponse
	if err := c.d.do(ctx, http.MethodGet, host, "/consumer/consume", readQuery(topic, partition, consumerID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *BrokerClient) Size(ctx context.Context, host, topic string, partition int, consumerID string) (int, error) {
	var resp protocol.SizeResponse
	err := c.d.do(ctx, http.MethodGet, host, "/size", readQuery(topic, partition, consumerID), nil, &resp)
	return resp.Size, err
}
