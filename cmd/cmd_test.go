package cmd

import (
	"context"
	"testing"

	"github.com/mohitkumar/mqueue/config"
	"github.com/mohitkumar/mqueue/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterWithPrimary_AlreadyKnown(t *testing.T) {
	tc := testutil.StartCluster(t, testutil.ClusterOptions{Brokers: 1})
	defer tc.Cleanup()
	ctx := context.Background()

	// the cluster already added this broker; registering again is not an error
	require.NoError(t, registerWithPrimary(ctx, tc.Client(), tc.BrokerURLs[0], zap.NewNop()))
	require.NoError(t, registerWithPrimary(ctx, tc.Client(), "b-new:5000", zap.NewNop()))

	active, _, err := tc.Client().Brokers(ctx)
	require.NoError(t, err)
	require.Contains(t, active, "b-new:5000")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LoggingConfig{Level: "debug", Development: true}, "broker")
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = newLogger(config.LoggingConfig{Level: "loud"}, "broker")
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MQUEUE_PRIMARY_READONLY_MANAGERS", "r1:5001,r2:5001")
	t.Setenv("MQUEUE_PRIMARY_DEFAULT_PARTITIONS", "4")

	v := viper.New()
	config.SetDefaults(v)
	v.SetEnvPrefix("mqueue")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	require.Equal(t, []string{"r1:5001", "r2:5001"}, cfg.Primary.ReadonlyManagers)
	require.Equal(t, 4, cfg.Primary.DefaultPartitions)
}
