package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mohitkumar/mqueue/primary"
	"github.com/mohitkumar/mqueue/protocol"
)

// QueueClient is what producers and consumers use: writes and registration go to the
// primary manager, reads go to a read-only manager.
type QueueClient struct {
	d        *doer
	primary  string
	readonly string
}

func NewQueueClient(primaryAddr, readonlyAddr string, opts Options) *QueueClient {
	return &QueueClient{d: newDoer(opts), primary: primaryAddr, readonly: readonlyAddr}
}

// CreateTopic creates name with the given number of partitions; 0 uses the server default.
func (c *QueueClient) CreateTopic(ctx context.Context, name string, partitions int) ([]string, error) {
	req := protocol.CreateTopicRequest{Name: name}
	if partitions > 0 {
		req.NumberOfPartitions = &partitions
	}
	var resp protocol.CreateTopicResponse
	err := c.d.do(ctx, http.MethodPost, c.primary, "/topics", nil, req, &resp)
	return resp.BrokerList, err
}

func (c *QueueClient) ListTopics(ctx context.Context) ([]primary.TopicInfo, error) {
	var resp protocol.TopicsResponse[primary.TopicInfo]
	err := c.d.do(ctx, http.MethodGet, c.primary, "/topics", nil, nil, &resp)
	return resp.Topics, err
}

func (c *QueueClient) RegisterProducer(ctx context.Context, topic string) (string, int, error) {
	var resp protocol.RegisterProducerResponse
	err := c.d.do(ctx, http.MethodPost, c.primary, "/producer/register", nil, protocol.RegisterRequest{Topic: topic}, &resp)
	return resp.ProducerID, resp.PartitionCount, err
}

func (c *QueueClient) RegisterConsumer(ctx context.Context, topic string) (string, int, error) {
	var resp protocol.RegisterConsumerResponse
	err := c.d.do(ctx, http.MethodPost, c.primary, "/consumer/register", nil, protocol.RegisterRequest{Topic: topic}, &resp)
	return resp.ConsumerID, resp.PartitionCount, err
}

// Produce writes message and returns the partition it landed on. A nil partition lets the
// primary pick one round-robin.
func (c *QueueClient) Produce(ctx context.Context, topic, producerID, message string, partition *int) (int, error) {
	var resp protocol.ProduceResponse
	err := c.d.do(ctx, http.MethodPost, c.primary, "/producer/produce", nil, protocol.ProduceRequest{
		Topic: topic, ProducerID: producerID, Message: message, PartitionNumber: partition,
	}, &resp)
	return resp.PartitionNumber, err
}

func consumeQuery(topic, consumerID string, partition *int) url.Values {
	q := url.Values{}
	q.Set("topic", topic)
	q.Set("consumer_id", consumerID)
	if partition != nil {
		q.Set("partition_number", strconv.Itoa(*partition))
	}
	return q
}

// Consume returns the next message or errs.ErrNoData.
func (c *QueueClient) Consume(ctx context.Context, topic, consumerID string, partition *int) (string, error) {
	var resp protocol.ConsumeResponse
	if err := c.d.do(ctx, http.MethodGet, c.readonly, "/consumer/consume", consumeQuery(topic, consumerID, partition), nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *QueueClient) Size(ctx context.Context, topic, consumerID string, partition *int) (int, error) {
	var resp protocol.SizeResponse
	err := c.d.do(ctx, http.MethodGet, c.readonly, "/size", consumeQuery(topic, consumerID, partition), nil, &resp)
	return resp.Size, err
}

// AddBroker registers a broker host with the primary.
func (c *QueueClient) AddBroker(ctx context.Context, host string) error {
	return c.d.doIdempotent(ctx, http.MethodPost, c.primary, "/admin/brokers", protocol.BrokerHostRequest{BrokerHost: host}, nil)
}

func (c *QueueClient) RemoveBroker(ctx context.Context, host string) error {
	return c.d.do(ctx, http.MethodDelete, c.primary, "/admin/brokers/"+url.PathEscape(host), nil, nil, nil)
}

func (c *QueueClient) SetBrokerActive(ctx context.Context, host string, active bool) error {
	action := "/deactivate"
	if active {
		action = "/activate"
	}
	return c.d.do(ctx, http.MethodPost, c.primary, "/admin/brokers/"+url.PathEscape(host)+action, nil, nil, nil)
}

func (c *QueueClient) Brokers(ctx context.Context) (active, inactive map[string]int, err error) {
	var resp protocol.BrokersResponse
	err = c.d.do(ctx, http.MethodGet, c.primary, "/admin/brokers", nil, nil, &resp)
	return resp.Active, resp.Inactive, err
}
