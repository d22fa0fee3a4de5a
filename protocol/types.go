package protocol

// Status values carried by every response.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// NoDataMessage is the failure message returned when a consumer has nothing left to read.
const NoDataMessage = "No logs available to pull."

// DefaultPartitions is used when a create-topic request omits number_of_partitions.
const DefaultPartitions = 2

// Result is the envelope shared by every response. On failure Message holds the reason; a
// successful consume carries the message payload in the same field.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r Result) OK() bool { return r.Status == StatusSuccess }

func Success() Result { return Result{Status: StatusSuccess} }

func Failure(message string) Result { return Result{Status: StatusFailure, Message: message} }

// TopicsResponse lists topics; the element type depends on the role answering.
type TopicsResponse[T any] struct {
	Result
	Topics []T `json:"topics"`
}

// Primary manager.

type CreateTopicRequest struct {
	Name               string `json:"name"`
	NumberOfPartitions *int   `json:"number_of_partitions,omitempty"`
}

type CreateTopicResponse struct {
	Result
	BrokerList []string `json:"broker_list,omitempty"`
}

type RegisterRequest struct {
	Topic string `json:"topic"`
}

type RegisterProducerResponse struct {
	Result
	ProducerID     string `json:"producer_id,omitempty"`
	PartitionCount int    `json:"partition_count,omitempty"`
}

type RegisterConsumerResponse struct {
	Result
	ConsumerID     string `json:"consumer_id,omitempty"`
	PartitionCount int    `json:"partition_count,omitempty"`
}

type ProduceRequest struct {
	Topic           string `json:"topic"`
	ProducerID      string `json:"producer_id"`
	Message         string `json:"message"`
	PartitionNumber *int   `json:"partition_number,omitempty"`
}

type ProduceResponse struct {
	Result
	PartitionNumber int `json:"partition_number"`
}

type BrokerHostRequest struct {
	BrokerHost string `json:"broker_host"`
}

type BrokersResponse struct {
	Result
	Active   map[string]int `json:"active"`
	Inactive map[string]int `json:"inactive"`
}

// Read-only manager.

type ConsumeRequest struct {
	Topic           string `json:"topic"`
	ConsumerID      string `json:"consumer_id"`
	PartitionNumber *int   `json:"partition_number,omitempty"`
}

type ConsumeResponse struct {
	Result
	PartitionNumber *int `json:"partition_number,omitempty"`
}

type SizeResponse struct {
	Result
	Size int `json:"size"`
}

type SyncTopicRequest struct {
	Name           string   `json:"name"`
	PartitionCount int      `json:"partition_count"`
	BrokerList     []string `json:"broker_list"`
}

type SyncConsumerRequest struct {
	Topic      string `json:"topic"`
	ConsumerID string `json:"consumer_id"`
}

// Broker.

type PartitionRequest struct {
	Name           string `json:"name"`
	PartitionIndex int    `json:"partition_index"`
}

type BrokerRegisterProducerRequest struct {
	Topic          string `json:"topic"`
	ProducerID     string `json:"producer_id"`
	PartitionIndex int    `json:"partition_index"`
}

type BrokerRegisterConsumerRequest struct {
	Topic          string `json:"topic"`
	ConsumerID     string `json:"consumer_id"`
	PartitionIndex int    `json:"partition_index"`
	Offset         *int   `json:"offset,omitempty"`
}

type BrokerProduceRequest struct {
	Topic          string `json:"topic"`
	ProducerID     string `json:"producer_id"`
	Message        string `json:"message"`
	PartitionIndex int    `json:"partition_index"`
}

type BrokerProduceResponse struct {
	Result
	Offset int `json:"offset"`
}
