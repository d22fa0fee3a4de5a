package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mohitkumar/mqueue/client"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/metrics"
	"github.com/mohitkumar/mqueue/primary"
	"github.com/mohitkumar/mqueue/rpc"
)

var primaryCmd = &cobra.Command{
	Use:   "primary",
	Short: "Run the primary manager: topic directory, broker registry and producer routing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Logging, "primary")
		if err != nil {
			return err
		}
		defer logger.Sync()
		banner("primary")

		db, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close()

		snap, err := db.LoadSnapshot(cmd.Context())
		if err != nil {
			return errs.ErrLoadSnapshot(err)
		}
		dir := primary.NewDirectory(db, logger)
		dir.Restore(snap)

		opts := clientOptions(cfg.Client, logger)
		m := primary.NewDataManager(primary.DataManagerConfig{
			Replicas:          cfg.Primary.ReadonlyManagers,
			AutoCreate:        cfg.Primary.AutoCreateTopics,
			DefaultPartitions: cfg.Primary.DefaultPartitions,
			FanOutTimeout:     cfg.Client.Timeout * time.Duration(cfg.Client.Retries+1),
		}, dir, client.NewBrokerClient(opts), client.NewReplicaClient(opts), metrics.New("primary"), logger)

		for _, host := range cfg.Primary.Brokers {
			if err := m.AddBroker(cmd.Context(), host); err != nil && !errors.Is(err, errs.ErrBrokerExists) {
				return err
			}
		}

		resync := func(ctx context.Context) error {
			// brokers and replicas that missed updates catch up here
			run := func() {
				if err := m.Resync(ctx); err != nil {
					logger.Warn("resync incomplete", zap.Error(err))
				}
			}
			run()
			if cfg.Primary.ResyncInterval <= 0 {
				return nil
			}
			ticker := time.NewTicker(cfg.Primary.ResyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					run()
				}
			}
		}
		return serve(cfg.HTTPAddr, rpc.NewPrimaryHandler(m, logger), logger, resync)
	},
}

func init() {
	primaryCmd.Flags().StringSlice("readonly", nil, "read-only manager addresses")
	primaryCmd.Flags().StringSlice("brokers", nil, "broker addresses registered at start")
	primaryCmd.Flags().Int("default-partitions", 2, "partition count for topics created without one")
	primaryCmd.Flags().Bool("auto-create", true, "create unknown topics when a producer registers")
	primaryCmd.Flags().Duration("resync-interval", 30*time.Second, "how often state is pushed again to brokers and read-only managers, 0 disables")
	_ = viper.BindPFlag("primary.resync_interval", primaryCmd.Flags().Lookup("resync-interval"))
	_ = viper.BindPFlag("primary.readonly_managers", primaryCmd.Flags().Lookup("readonly"))
	_ = viper.BindPFlag("primary.brokers", primaryCmd.Flags().Lookup("brokers"))
	_ = viper.BindPFlag("primary.default_partitions", primaryCmd.Flags().Lookup("default-partitions"))
	_ = viper.BindPFlag("primary.auto_create_topics", primaryCmd.Flags().Lookup("auto-create"))
}
