package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mohitkumar/mqueue/client"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/metrics"
	"github.com/mohitkumar/mqueue/readonly"
	"github.com/mohitkumar/mqueue/rpc"
)

var readonlyCmd = &cobra.Command{
	Use:   "readonly",
	Short: "Run a read-only manager that serves consume and size requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Logging, "readonly")
		if err != nil {
			return err
		}
		defer logger.Sync()
		banner("readonly")

		dir := readonly.NewDirectory(logger)
		if cfg.Readonly.RestoreFromStore && cfg.Store.Path != "" {
			db, err := openStore(cfg.Store)
			if err != nil {
				return err
			}
			snap, err := db.LoadSnapshot(cmd.Context())
			db.Close()
			if err != nil {
				return errs.ErrLoadSnapshot(err)
			}
			dir.Restore(snap)
		}

		m := readonly.NewReadonlyManager(dir, client.NewBrokerClient(clientOptions(cfg.Client, logger)), metrics.New("readonly"), logger)
		return serve(cfg.HTTPAddr, rpc.NewReadonlyHandler(m, logger), logger)
	},
}

func init() {
	readonlyCmd.Flags().Bool("restore", true, "load topics and consumers from --store at start")
	_ = viper.BindPFlag("readonly.restore_from_store", readonlyCmd.Flags().Lookup("restore"))
}
