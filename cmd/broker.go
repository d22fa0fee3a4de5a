package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mohitkumar/mqueue/broker"
	"github.com/mohitkumar/mqueue/client"
	"github.com/mohitkumar/mqueue/metrics"
	"github.com/mohitkumar/mqueue/rpc"
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Run a broker that hosts partition logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Logging, "broker")
		if err != nil {
			return err
		}
		defer logger.Sync()
		banner("broker")

		var st broker.Store
		if cfg.Store.Path != "" {
			db, err := openStore(cfg.Store)
			if err != nil {
				return err
			}
			defer db.Close()
			st = db
		}

		host := cfg.BrokerHost()
		b := broker.NewBroker(host, st, metrics.New("broker"), logger)
		if err := b.Restore(cmd.Context()); err != nil {
			return err
		}

		var hooks []func(ctx context.Context) error
		if cfg.Broker.Primary != "" {
			qc := client.NewQueueClient(cfg.Broker.Primary, "", clientOptions(cfg.Client, logger))
			hooks = append(hooks, func(ctx context.Context) error {
				return registerWithPrimary(ctx, qc, host, logger)
			})
		}
		return serve(cfg.HTTPAddr, rpc.NewBrokerHandler(b, logger), logger, hooks...)
	},
}

func init() {
	brokerCmd.Flags().String("advertise", "", "address other roles use to reach this broker (defaults to --addr)")
	brokerCmd.Flags().String("primary", "", "primary manager address to register with at start")
	_ = viper.BindPFlag("broker.advertise_addr", brokerCmd.Flags().Lookup("advertise"))
	_ = viper.BindPFlag("broker.primary", brokerCmd.Flags().Lookup("primary"))
}

// registerWithPrimary adds this broker to the primary's registry. A broker that is already
// known is left as it is.
func registerWithPrimary(ctx context.Context, qc *client.QueueClient, host string, logger *zap.Logger) error {
	err := qc.AddBroker(ctx, host)
	var se *client.StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		logger.Info("broker already registered with primary", zap.String("host", host))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("registered with primary", zap.String("host", host))
	return nil
}
