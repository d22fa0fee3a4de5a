package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mohitkumar/mqueue/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var addr string

	rootCmd := &cobra.Command{
		Use:   "topic",
		Short: "Topic management: create and list topics",
	}

	rootCmd.PersistentFlags().StringVar(&addr, "primary", "127.0.0.1:5000", "primary manager address")

	viper.SetEnvPrefix("mqueue")
	viper.AutomaticEnv()
	viper.BindPFlag("primary", rootCmd.PersistentFlags().Lookup("primary"))
	if viper.IsSet("primary") {
		addr = viper.GetString("primary")
	}

	newClient := func() *client.QueueClient {
		return client.NewQueueClient(addr, "", client.Options{Timeout: 10 * time.Second})
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a topic; its partitions are placed on the least loaded brokers",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("topic")
			partitions, _ := cmd.Flags().GetInt("partitions")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			brokers, err := newClient().CreateTopic(ctx, name, partitions)
			if err != nil {
				return err
			}
			fmt.Printf("topic=%s brokers=%s\n", name, strings.Join(brokers, ","))
			return nil
		},
	}
	createCmd.Flags().String("topic", "", "topic name (required)")
	createCmd.Flags().Int("partitions", 0, "partition count (0 uses the primary's default)")
	createCmd.MarkFlagRequired("topic")
	rootCmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List topics with the broker of each partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			topics, err := newClient().ListTopics(ctx)
			if err != nil {
				return fmt.Errorf("list topics: %w", err)
			}
			if len(topics) == 0 {
				fmt.Println("(no topics)")
				return nil
			}
			for _, t := range topics {
				fmt.Printf("topic=%s partitions=%d brokers=%s\n", t.Name, t.PartitionCount, strings.Join(t.Brokers, ","))
			}
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	brokersCmd := &cobra.Command{
		Use:   "brokers",
		Short: "List registered brokers and how many partitions each hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			active, inactive, err := newClient().Brokers(ctx)
			if err != nil {
				return err
			}
			for host, n := range active {
				fmt.Printf("broker=%s active=true partitions=%d\n", host, n)
			}
			for host, n := range inactive {
				fmt.Printf("broker=%s active=false partitions=%d\n", host, n)
			}
			return nil
		},
	}
	rootCmd.AddCommand(brokersCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
