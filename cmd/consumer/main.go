package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/mohitkumar/mqueue/client"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var (
		primaryAddr  string
		readonlyAddr string
		id           string
		topic        string
		partition    int
		poll         time.Duration
	)

	rootCmd := &cobra.Command{
		Use:   "consumer",
		Short: "Consume messages from a topic, polling when no data is available",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewQueueClient(primaryAddr, readonlyAddr, client.Options{Timeout: 10 * time.Second})

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if id == "" {
				cid, n, err := c.RegisterConsumer(ctx, topic)
				if err != nil {
					return fmt.Errorf("register consumer: %w", err)
				}
				id = cid
				fmt.Fprintf(os.Stderr, "consumer=%s topic=%s partitions=%d\n", id, topic, n)
			}

			var target *int
			if cmd.Flags().Changed("partition") {
				target = &partition
			}

			for {
				msg, err := c.Consume(ctx, topic, id, target)
				switch {
				case err == nil:
					fmt.Println(msg)
					continue
				case errors.Is(err, errs.ErrNoData):
				case ctx.Err() != nil:
					return nil
				default:
					return err
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(poll):
				}
			}
		},
	}

	rootCmd.Flags().StringVar(&primaryAddr, "primary", "127.0.0.1:5000", "primary manager address")
	rootCmd.Flags().StringVar(&readonlyAddr, "readonly", "127.0.0.1:5001", "read-only manager address")
	rootCmd.Flags().StringVar(&id, "id", "", "existing consumer id (default: register a new consumer)")
	rootCmd.Flags().StringVar(&topic, "topic", "", "topic name (required)")
	rootCmd.Flags().IntVar(&partition, "partition", 0, "read only this partition (default: any partition)")
	rootCmd.Flags().DurationVar(&poll, "poll", 500*time.Millisecond, "wait between polls when no data is available")

	viper.SetEnvPrefix("mqueue")
	viper.AutomaticEnv()
	viper.BindPFlag("primary", rootCmd.Flags().Lookup("primary"))
	viper.BindPFlag("readonly", rootCmd.Flags().Lookup("readonly"))
	if viper.IsSet("primary") {
		primaryAddr = viper.GetString("primary")
	}
	if viper.IsSet("readonly") {
		readonlyAddr = viper.GetString("readonly")
	}

	rootCmd.MarkFlagRequired("topic")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
