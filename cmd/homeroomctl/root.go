package main

import (
	"io"
	"os"

	"github.com/NordCoder/Homeroom/internal/config"
	kafkarepo "github.com/NordCoder/Homeroom/internal/repository/kafka"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"

	"github.com/spf13/cobra"
)

type ctlConfig struct {
	DB    pg.Config `mapstructure:"db"`
	Kafka struct {
		Brokers    []string `mapstructure:"brokers"`
		Topic      string   `mapstructure:"topic"`
		Partitions int      `mapstructure:"partitions"`
	} `mapstructure:"kafka"`
}

type ctl struct {
	cfgPath string
	out     io.Writer
}

// load reads the shared auth-api file; only db and kafka sections matter here.
func (c *ctl) load() (*ctlConfig, error) {
	v, err := config.NewViper(c.cfgPath)
	if err != nil {
		return nil, err
	}
	config.SetDBDefaults(v, 2, 1)
	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", kafkarepo.MailTopic)
	v.SetDefault("kafka.partitions", 1)

	var out ctlConfig
	if err := config.Unmarshal(v, &out); err != nil {
		return nil, err
	}
	if err := config.RequireDBURL(out.DB.URL); err != nil {
		return nil, err
	}
	return &out, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &ctl{out: out}
	def := os.Getenv("HOMEROOM_CONFIG")
	if def == "" {
		def = "config/auth-api.yaml"
	}

	cmd := &cobra.Command{
		Use:           "homeroomctl",
		Short:         "Operator tasks for the Homeroom auth core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&c.cfgPath, "config", def, "path to yaml config")
	cmd.SetOut(out)

	cmd.AddCommand(
		newMigrateCmd(c),
		newTeacherCmd(c),
		newKafkaCmd(c),
	)
	return cmd
}
