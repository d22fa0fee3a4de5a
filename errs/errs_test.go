package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrTopicNotFoundf("orders"), "not_found"},
		{ErrBrokerNotFoundf("b1"), "not_found"},
		{ErrTopicExistsf("orders"), "already_exists"},
		{ErrProducerNotRegisteredf("p", "orders"), "forbidden"},
		{ErrConsumerNotRegisteredf("c", "orders"), "forbidden"},
		{ErrInvalidPartitionf("orders", 5, 3), "invalid_partition"},
		{ErrBrokerAlreadyActivef("b1"), "conflict"},
		{ErrNoActiveBrokers, "conflict"},
		{ErrNoDataf("orders", 1), "no_data"},
		{ErrUpstreamf("http://b1", errors.New("refused")), "upstream"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Kind(tt.err), "err=%v", tt.err)
	}
}

// TestWrappedStillMatches verifies that wrapping a taxonomy error keeps errors.Is working.
func TestWrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("produce: %w", ErrTopicNotFoundf("orders"))
	require.ErrorIs(t, err, ErrTopicNotFound)
	require.Equal(t, "not_found", Kind(err))

	cause := errors.New("connection refused")
	up := ErrUpstreamf("http://b1:5000", cause)
	require.ErrorIs(t, up, ErrUpstream)
	require.ErrorIs(t, up, cause)
}
