package email_notifier_config

import (
	"time"

	"github.com/NordCoder/Homeroom/internal/config"
	kafkarepo "github.com/NordCoder/Homeroom/internal/repository/kafka"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"
)

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
}

func (k KafkaIn) AsConsumerConfig() kafkarepo.ConsumerConfig {
	return kafkarepo.ConsumerConfig{
		Brokers:       k.Brokers,
		GroupID:       k.GroupID,
		Topic:         k.Topic,
		FromBeginning: k.FromBeginning,
	}
}

type SMTP struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
}

// Links are URL templates; "{token}" is replaced with the raw one-shot token.
type Links struct {
	VerifyURL string `mapstructure:"verify_url"`
	ResetURL  string `mapstructure:"reset_url"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	App    config.App  `mapstructure:"app"`
	DB     pg.Config   `mapstructure:"db"`
	In     KafkaIn     `mapstructure:"kafka_in"`
	SMTP   SMTP        `mapstructure:"smtp"`
	Links  Links       `mapstructure:"links"`
	Server Server      `mapstructure:"server"`
	OTEL   config.OTEL `mapstructure:"otel"`
	Log    config.Log  `mapstructure:"log"`
}
