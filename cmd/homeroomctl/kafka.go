package main

import (
	"context"
	"fmt"
	"time"

	kafkarepo "github.com/NordCoder/Homeroom/internal/repository/kafka"

	"github.com/spf13/cobra"
)

func newKafkaCmd(c *ctl) *cobra.Command {
	var wait, retention time.Duration
	ensure := &cobra.Command{
		Use:   "ensure-topic",
		Short: "Create the mail topic if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			if err := kafkarepo.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkarepo.TopicSpec{
				Name:              cfg.Kafka.Topic,
				NumPartitions:     cfg.Kafka.Partitions,
				ReplicationFactor: 1,
				MaxWait:           wait,
				Retention:         retention,
			}, nil); err != nil {
				return fmt.Errorf("ensure topic %q: %w", cfg.Kafka.Topic, err)
			}
			fmt.Fprintf(c.out, "topic %q ready\n", cfg.Kafka.Topic)
			return nil
		},
	}
	ensure.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for the topic")
	ensure.Flags().DurationVar(&retention, "retention", 72*time.Hour, "retention.ms for a newly created topic; 0 keeps the broker default")

	cmd := &cobra.Command{Use: "kafka", Short: "Kafka maintenance"}
	cmd.AddCommand(ensure)
	return cmd
}
