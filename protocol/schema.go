package protocol

import (
	"fmt"
	"strings"

	"github.com/mohitkumar/mqueue/errs"
	"github.com/xeipuuv/gojsonschema"
)

// Schema validates a request document before it is decoded.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

func mustSchema(name, src string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("protocol: schema %s: %v", name, err))
	}
	return &Schema{name: name, schema: s}
}

// Validate checks doc, a raw JSON document, and returns errs.ErrInvalidRequest describing
// the first violations.
func (s *Schema) Validate(doc []byte) error {
	res, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errs.ErrInvalidRequestf(err.Error())
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errs.ErrInvalidRequestf(strings.Join(msgs, "; "))
}

const (
	topicName = `{"type": "string", "minLength": 1}`
	id        = `{"type": "string", "minLength": 1}`
	partition = `{"type": "integer", "minimum": 0}`
)

var (
	CreateTopicSchema = mustSchema("create_topic", `{
		"type": "object",
		"properties": {"name": `+topicName+`, "number_of_partitions": {"type": "integer", "minimum": 1}},
		"required": ["name"]
	}`)

	RegisterSchema = mustSchema("register", `{
		"type": "object",
		"properties": {"topic": `+topicName+`},
		"required": ["topic"]
	}`)

	ProduceSchema = mustSchema("produce", `{
		"type": "object",
		"properties": {
			"topic": `+topicName+`,
			"producer_id": `+id+`,
			"message": {"type": "string"},
			"partition_number": `+partition+`
		},
		"required": ["topic", "producer_id", "message"]
	}`)

	BrokerHostSchema = mustSchema("broker_host", `{
		"type": "object",
		"properties": {"broker_host": {"type": "string", "minLength": 1}},
		"required": ["broker_host"]
	}`)

	ConsumeSchema = mustSchema("consume", `{
		"type": "object",
		"properties": {
			"topic": `+topicName+`,
			"consumer_id": `+id+`,
			"partition_number": `+partition+`
		},
		"required": ["topic", "consumer_id"]
	}`)

	SyncTopicSchema = mustSchema("sync_topic", `{
		"type": "object",
		"properties": {
			"name": `+topicName+`,
			"partition_count": {"type": "integer", "minimum": 1},
			"broker_list": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["name", "partition_count", "broker_list"]
	}`)

	SyncConsumerSchema = mustSchema("sync_consumer", `{
		"type": "object",
		"properties": {"topic": `+topicName+`, "consumer_id": `+id+`},
		"required": ["topic", "consumer_id"]
	}`)

	PartitionSchema = mustSchema("partition", `{
		"type": "object",
		"properties": {"name": `+topicName+`, "partition_index": `+partition+`},
		"required": ["name", "partition_index"]
	}`)

	BrokerRegisterProducerSchema = mustSchema("broker_register_producer", `{
		"type": "object",
		"properties": {"topic": `+topicName+`, "producer_id": `+id+`, "partition_index": `+partition+`},
		"required": ["topic", "producer_id", "partition_index"]
	}`)

	BrokerRegisterConsumerSchema = mustSchema("broker_register_consumer", `{
		"type": "object",
		"properties": {
			"topic": `+topicName+`,
			"consumer_id": `+id+`,
			"partition_index": `+partition+`,
			"offset": {"type": "integer", "minimum": 0}
		},
		"required": ["topic", "consumer_id", "partition_index"]
	}`)

	BrokerProduceSchema = mustSchema("broker_produce", `{
		"type": "object",
		"properties": {
			"topic": `+topicName+`,
			"producer_id": `+id+`,
			"message": {"type": "string"},
			"partition_index": `+partition+`
		},
		"required": ["topic", "producer_id", "message", "partition_index"]
	}`)

	BrokerReadSchema = mustSchema("broker_read", `{
		"type": "object",
		"properties": {
			"topic": `+topicName+`,
			"consumer_id": `+id+`,
			"partition_number": `+partition+`
		},
		"required": ["topic", "consumer_id", "partition_number"]
	}`)
)
