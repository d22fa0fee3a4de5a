package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mohitkumar/mqueue/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var (
		addr      string
		topic     string
		partition int
	)

	rootCmd := &cobra.Command{
		Use:   "producer",
		Short: "Register a producer and send one message per stdin line",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewQueueClient(addr, "", client.Options{Timeout: 10 * time.Second})
			ctx := context.Background()

			id, n, err := c.RegisterProducer(ctx, topic)
			if err != nil {
				return fmt.Errorf("register producer: %w", err)
			}
			fmt.Fprintf(os.Stderr, "producer=%s topic=%s partitions=%d\n", id, topic, n)

			var target *int
			if cmd.Flags().Changed("partition") {
				target = &partition
			}

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				p, err := c.Produce(ctx, topic, id, line, target)
				if err != nil {
					return err
				}
				fmt.Printf("partition=%d\n", p)
			}
			return scanner.Err()
		},
	}

	rootCmd.Flags().StringVar(&addr, "primary", "127.0.0.1:5000", "primary manager address")
	rootCmd.Flags().StringVar(&topic, "topic", "", "topic name (required)")
	rootCmd.Flags().IntVar(&partition, "partition", 0, "send every message to this partition (default: round-robin)")

	viper.SetEnvPrefix("mqueue")
	viper.AutomaticEnv()
	viper.BindPFlag("primary", rootCmd.Flags().Lookup("primary"))
	if viper.IsSet("primary") {
		addr = viper.GetString("primary")
	}

	rootCmd.MarkFlagRequired("topic")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
