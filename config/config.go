package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// HTTPAddr is the listen address of the role's HTTP API.
	HTTPAddr string
	Logging  LoggingConfig
	Store    StoreConfig
	Client   ClientConfig
	Broker   BrokerConfig
	Primary  PrimaryConfig
	Readonly ReadonlyConfig
}

type LoggingConfig struct {
	Level       string
	Development bool
}

type StoreConfig struct {
	// Path of the SQLite database. Empty or ":memory:" keeps metadata in memory only.
	Path string
}

// ClientConfig applies to every outbound call to brokers and read-only managers.
type ClientConfig struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
}

type BrokerConfig struct {
	// AdvertiseAddr is the host:port the primary and read-only managers use to reach this broker.
	AdvertiseAddr string
	// Primary, when set, is the primary manager address this broker registers itself with.
	Primary string
}

type PrimaryConfig struct {
	ReadonlyManagers  []string
	Brokers           []string
	DefaultPartitions int
	AutoCreateTopics  bool
	// ResyncInterval is how often committed state is pushed again to brokers and read-only
	// managers. Zero resyncs only at start.
	ResyncInterval time.Duration
}

type ReadonlyConfig struct {
	// RestoreFromStore loads topics and consumers from the shared store at start.
	RestoreFromStore bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", "127.0.0.1:5000")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("store.path", "")
	v.SetDefault("client.timeout", 5*time.Second)
	v.SetDefault("client.retries", 3)
	v.SetDefault("client.retry_backoff", 100*time.Millisecond)
	v.SetDefault("primary.default_partitions", 2)
	v.SetDefault("primary.auto_create_topics", true)
	v.SetDefault("primary.resync_interval", 30*time.Second)
	v.SetDefault("readonly.restore_from_store", true)
}

// FromViper builds a Config from v.
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		HTTPAddr: v.GetString("http_addr"),
		Logging: LoggingConfig{
			Level:       v.GetString("logging.level"),
			Development: v.GetBool("logging.development"),
		},
		Store: StoreConfig{Path: v.GetString("store.path")},
		Client: ClientConfig{
			Timeout:      v.GetDuration("client.timeout"),
			Retries:      v.GetInt("client.retries"),
			RetryBackoff: v.GetDuration("client.retry_backoff"),
		},
		Broker: BrokerConfig{
			AdvertiseAddr: v.GetString("broker.advertise_addr"),
			Primary:       v.GetString("broker.primary"),
		},
		Primary: PrimaryConfig{
			ReadonlyManagers:  splitList(v.GetStringSlice("primary.readonly_managers")),
			Brokers:           splitList(v.GetStringSlice("primary.brokers")),
			DefaultPartitions: v.GetInt("primary.default_partitions"),
			AutoCreateTopics:  v.GetBool("primary.auto_create_topics"),
			ResyncInterval:    v.GetDuration("primary.resync_interval"),
		},
		Readonly: ReadonlyConfig{
			RestoreFromStore: v.GetBool("readonly.restore_from_store"),
		},
	}
	return c, c.Validate()
}

// splitList accepts both repeated values and a single comma separated value, which is what
// an environment variable yields.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.HTTPAddr); err != nil {
		return fmt.Errorf("http_addr %q: %w", c.HTTPAddr, err)
	}
	if c.Primary.DefaultPartitions < 1 {
		return fmt.Errorf("primary.default_partitions must be >= 1, got %d", c.Primary.DefaultPartitions)
	}
	if c.Primary.ResyncInterval < 0 {
		return fmt.Errorf("primary.resync_interval must be >= 0, got %s", c.Primary.ResyncInterval)
	}
	if c.Client.Retries < 0 {
		return fmt.Errorf("client.retries must be >= 0, got %d", c.Client.Retries)
	}
	return nil
}

// BrokerHost returns the address other roles use to reach this broker.
func (c Config) BrokerHost() string {
	if c.Broker.AdvertiseAddr != "" {
		return c.Broker.AdvertiseAddr
	}
	return c.HTTPAddr
}
