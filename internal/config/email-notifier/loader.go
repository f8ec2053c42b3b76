package email_notifier_config

import (
	"strings"

	"github.com/NordCoder/Homeroom/internal/config"
	kafkarepo "github.com/NordCoder/Homeroom/internal/repository/kafka"
)

func Load(path string) (*Config, error) {
	v, err := config.NewViper(path)
	if err != nil {
		return nil, err
	}
	config.SetCommonDefaults(v, "email-notifier")
	config.SetDBDefaults(v, 5, 1)

	v.SetDefault("kafka_in.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka_in.topic", kafkarepo.MailTopic)
	v.SetDefault("kafka_in.group_id", "email-notifier")
	v.SetDefault("kafka_in.from_beginning", false)

	v.SetDefault("smtp.addr", "localhost:1025")
	v.SetDefault("smtp.from", "noreply@homeroom.app")
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.use_tls", false)
	v.SetDefault("smtp.timeout", "5s")
	v.SetDefault("smtp.subj_prefix", "[Homeroom]")

	v.SetDefault("links.verify_url", "http://localhost:3000/verify-email?token={token}")
	v.SetDefault("links.reset_url", "http://localhost:3000/reset-password?token={token}")

	v.SetDefault("server.metrics_addr", ":8084")

	var cfg Config
	if err := config.Unmarshal(v, &cfg); err != nil {
		return nil, err
	}
	if err := config.RequireDBURL(cfg.DB.URL); err != nil {
		return nil, err
	}
	for _, tpl := range []string{cfg.Links.VerifyURL, cfg.Links.ResetURL} {
		if !strings.Contains(tpl, "{token}") {
			return nil, config.ErrConfig("links templates must contain {token}")
		}
	}
	if len(cfg.In.Brokers) == 0 {
		return nil, config.ErrConfig("kafka_in.brokers is required")
	}
	return &cfg, nil
}
