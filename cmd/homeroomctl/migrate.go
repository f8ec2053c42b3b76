package main

import (
	"fmt"

	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *ctl) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down|status",
		Short:     "Apply or inspect the embedded schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			db, err := goose.OpenDBWithDriver("pgx", cfg.DB.URL)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			if err := pg.Migrate(cmd.Context(), db, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "migrations: %s OK\n", args[0])
			return nil
		},
	}
}
