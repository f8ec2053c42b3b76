package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BootstrapConsumer tries to create the topic before joining the group. A failure is
// only logged since the reader keeps retrying its fetches.
func BootstrapConsumer(ctx context.Context, cfg ConsumerConfig, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ectx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	spec := TopicSpec{Name: cfg.Topic, NumPartitions: cfg.Partitions, MaxWait: 5 * time.Second}
	if err := EnsureTopic(ectx, cfg.Brokers, spec, logger); err != nil {
		logger.Warn("ensure topic", zap.String("topic", cfg.Topic), zap.Error(err))
	}
	return NewConsumer(cfg, logger)
}
