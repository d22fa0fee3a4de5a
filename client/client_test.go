package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/protocol"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBaseURL(t *testing.T) {
	require.Equal(t, "http://b1:5000", BaseURL("b1:5000"))
	require.Equal(t, "https://b1", BaseURL("https://b1/"))
}

// TestReplicaClient_RetriesServerErrors verifies that sync calls are retried on 5xx answers.
func TestReplicaClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sync/topics", r.URL.Path)
		var req protocol.SyncTopicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"a", "b"}, req.BrokerList)
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, protocol.Failure("warming up"))
			return
		}
		writeJSON(w, http.StatusOK, protocol.Success())
	}))
	defer srv.Close()

	c := NewReplicaClient(Options{Retries: 3, RetryBackoff: time.Millisecond})
	require.NoError(t, c.SyncTopic(context.Background(), srv.URL, "orders", 2, []string{"a", "b"}))
	require.Equal(t, int32(3), calls.Load())
}

// TestReplicaClient_NoRetryOnRejection verifies that a 4xx answer is returned at once.
func TestReplicaClient_NoRetryOnRejection(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, protocol.Failure("topic orders not found"))
	}))
	defer srv.Close()

	c := NewReplicaClient(Options{Retries: 3, RetryBackoff: time.Millisecond})
	err := c.SyncConsumer(context.Background(), srv.URL, "orders", "c1")
	require.ErrorIs(t, err, errs.ErrUpstream)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotFound, se.Code)
	require.Equal(t, int32(1), calls.Load())
}

func TestBrokerClient_ConsumeNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "orders", r.URL.Query().Get("topic"))
		require.Equal(t, "1", r.URL.Query().Get("partition_number"))
		if r.URL.Query().Get("consumer_id") == "empty" {
			writeJSON(w, http.StatusOK, protocol.Failure(protocol.NoDataMessage))
			return
		}
		writeJSON(w, http.StatusOK, protocol.ConsumeResponse{Result: protocol.Result{Status: protocol.StatusSuccess, Message: "hi"}})
	}))
	defer srv.Close()

	c := NewBrokerClient(Options{})
	_, err := c.Consume(context.Background(), srv.URL, "orders", 1, "empty")
	require.ErrorIs(t, err, errs.ErrNoData)

	msg, err := c.Consume(context.Background(), srv.URL, "orders", 1, "c1")
	require.NoError(t, err)
	require.Equal(t, "hi", msg)
}

func TestBrokerClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewBrokerClient(Options{Timeout: time.Second})
	_, err := c.Produce(context.Background(), addr, "orders", 0, "p1", "m")
	require.ErrorIs(t, err, errs.ErrUpstream)
}
