package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mohitkumar/mqueue/config"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "mqueue",
		Short: "mqueue - a partitioned, replicated publish/subscribe queue",
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().String("addr", "127.0.0.1:5000", "HTTP listen address")
	rootCmd.PersistentFlags().String("store", "", "SQLite metadata database path (empty keeps metadata in memory)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("dev", false, "human readable development logging")

	_ = viper.BindPFlag("http_addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.development", rootCmd.PersistentFlags().Lookup("dev"))

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("mqueue")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	rootCmd.AddCommand(brokerCmd, primaryCmd, readonlyCmd, versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mqueue")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/mqueue")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Ignore missing config file; error out on other issues
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
	}
}
