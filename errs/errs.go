// Package errs provides shared errors for the queue, grouped by the layer that raises them
// (containers, partitions, topic directories, brokers, upstream calls).
// Check errors with errors.Is(err, errs.ErrX). HTTP status mapping lives in rpc.StatusFor.
package errs

import (
	"errors"
	"fmt"
)

// Container errors.

var ErrOutOfRange = errors.New("index out of range")

func ErrOutOfRangef(index, length int) error {
	return fmt.Errorf("index %d out of range [0, %d): %w", index, length, ErrOutOfRange)
}

// Topic and partition errors.

var (
	ErrTopicExists           = errors.New("topic already exists")
	ErrTopicNotFound         = errors.New("topic not found")
	ErrPartitionNotFound     = errors.New("partition not found")
	ErrInvalidPartition      = errors.New("invalid partition")
	ErrInvalidPartitionCount = errors.New("invalid partition count")
)

func ErrTopicExistsf(topic string) error {
	return fmt.Errorf("topic %s already exists: %w", topic, ErrTopicExists)
}

func ErrTopicNotFoundf(topic string) error {
	return fmt.Errorf("topic %s not found: %w", topic, ErrTopicNotFound)
}

func ErrPartitionNotFoundf(topic string, partition int) error {
	return fmt.Errorf("partition %d of topic %s not found: %w", partition, topic, ErrPartitionNotFound)
}

func ErrInvalidPartitionf(topic string, partition, count int) error {
	return fmt.Errorf("partition %d not in [0, %d) for topic %s: %w", partition, count, topic, ErrInvalidPartition)
}

func ErrInvalidPartitionCountf(count int) error {
	return fmt.Errorf("partition count must be >= 1, got %d: %w", count, ErrInvalidPartitionCount)
}

// Producer / consumer registration errors.

var (
	ErrProducerNotRegistered = errors.New("producer not registered")
	ErrConsumerNotRegistered = errors.New("consumer not registered")
)

func ErrProducerNotRegisteredf(producerID, topic string) error {
	return fmt.Errorf("producer %s not registered for topic %s: %w", producerID, topic, ErrProducerNotRegistered)
}

func ErrConsumerNotRegisteredf(consumerID, topic string) error {
	return fmt.Errorf("consumer %s not registered for topic %s: %w", consumerID, topic, ErrConsumerNotRegistered)
}

// Broker registry errors.

var (
	ErrBrokerExists        = errors.New("broker already exists")
	ErrBrokerNotFound      = errors.New("broker not found")
	ErrBrokerStateConflict = errors.New("broker state conflict")
	ErrNoActiveBrokers     = errors.New("no active brokers")
)

func ErrBrokerExistsf(host string) error {
	return fmt.Errorf("broker %s already exists: %w", host, ErrBrokerExists)
}

func ErrBrokerNotFoundf(host string) error {
	return fmt.Errorf("broker %s not found: %w", host, ErrBrokerNotFound)
}

func ErrBrokerAlreadyActivef(host string) error {
	return fmt.Errorf("broker %s is already active: %w", host, ErrBrokerStateConflict)
}

func ErrBrokerAlreadyInactivef(host string) error {
	return fmt.Errorf("broker %s is already inactive: %w", host, ErrBrokerStateConflict)
}

// Read path.

var ErrNoData = errors.New("no logs available to pull")

func ErrNoDataf(topic string, partition int) error {
	return fmt.Errorf("topic %s partition %d: %w", topic, partition, ErrNoData)
}

// Upstream (broker / replica) call errors.

var ErrUpstream = errors.New("upstream call failed")

func ErrUpstreamf(target string, err error) error {
	return fmt.Errorf("%s: %w: %w", target, err, ErrUpstream)
}

func ErrFanOut(err error) error { return fmt.Errorf("fan-out: %w: %w", err, ErrUpstream) }

// Request validation.

var ErrInvalidRequest = errors.New("invalid request")

func ErrInvalidRequestf(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidRequest)
}

// Persistence errors.

func ErrOpenStore(err error) error    { return fmt.Errorf("failed to open store: %w", err) }
func ErrInitSchema(err error) error   { return fmt.Errorf("failed to init store schema: %w", err) }
func ErrLoadSnapshot(err error) error { return fmt.Errorf("failed to load snapshot: %w", err) }

// Kind names the taxonomy bucket of err, used as a log field and metric label.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTopicNotFound), errors.Is(err, ErrPartitionNotFound), errors.Is(err, ErrBrokerNotFound):
		return "not_found"
	case errors.Is(err, ErrTopicExists), errors.Is(err, ErrBrokerExists):
		return "already_exists"
	case errors.Is(err, ErrProducerNotRegistered), errors.Is(err, ErrConsumerNotRegistered):
		return "forbidden"
	case errors.Is(err, ErrInvalidPartition), errors.Is(err, ErrInvalidPartitionCount):
		return "invalid_partition"
	case errors.Is(err, ErrBrokerStateConflict), errors.Is(err, ErrNoActiveBrokers):
		return "conflict"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}
