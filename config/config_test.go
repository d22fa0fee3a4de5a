package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	c, err := FromViper(v)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:5000", c.HTTPAddr)
	require.Equal(t, 2, c.Primary.DefaultPartitions)
	require.True(t, c.Primary.AutoCreateTopics)
	require.Equal(t, 30*time.Second, c.Primary.ResyncInterval)
	require.Equal(t, 5*time.Second, c.Client.Timeout)
	require.Equal(t, "127.0.0.1:5000", c.BrokerHost())
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mqueue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: 0.0.0.0:6000
primary:
  readonly_managers: ["ro-1:5000", "ro-2:5000"]
  brokers: "b1:5000, b2:5000"
  default_partitions: 3
broker:
  advertise_addr: broker-1:6000
client:
  retries: 5
  retry_backoff: 250ms
`), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	c, err := FromViper(v)
	require.NoError(t, err)
	require.Equal(t, []string{"ro-1:5000", "ro-2:5000"}, c.Primary.ReadonlyManagers)
	require.Equal(t, []string{"b1:5000", "b2:5000"}, c.Primary.Brokers)
	require.Equal(t, 3, c.Primary.DefaultPartitions)
	require.Equal(t, "broker-1:6000", c.BrokerHost())
	require.Equal(t, 5, c.Client.Retries)
	require.Equal(t, 250*time.Millisecond, c.Client.RetryBackoff)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("http_addr", "no-port")
	_, err := FromViper(v)
	require.Error(t, err)

	v.Set("http_addr", "127.0.0.1:1")
	v.Set("primary.default_partitions", 0)
	_, err = FromViper(v)
	require.Error(t, err)
}
