package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tokens "github.com/NordCoder/Homeroom/internal/auth"
	"github.com/NordCoder/Homeroom/internal/domain"
	domainauth "github.com/NordCoder/Homeroom/internal/domain/auth"
	"github.com/NordCoder/Homeroom/internal/domain/principal"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"
	"github.com/NordCoder/Homeroom/internal/services/auth-api/auth"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type accountStore struct {
	creds   *auth.Credentials
	refresh domainauth.RefreshTokenRepo
	tx      auth.Transactor
	now     func() time.Time
}

// setActive flips the flag; deactivating also revokes every refresh record so no
// session outlives the account.
func (s accountStore) setActive(ctx context.Context, email string, active bool) (*principal.Principal, int64, error) {
	p, err := s.creds.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, 0, fmt.Errorf("no account for %q", email)
	}
	if err != nil {
		return nil, 0, err
	}

	var revoked int64
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		out, err := s.creds.SetActive(ctx, p, active)
		if err != nil {
			return err
		}
		p = out
		if active {
			return nil
		}
		revoked, err = s.refresh.RevokeAllForPrincipal(ctx, p.ID, s.now())
		if err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return p, revoked, nil
}

func newTeacherCmd(c *ctl) *cobra.Command {
	toggle := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <email>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := c.load()
				if err != nil {
					return err
				}
				db, err := pg.New(cmd.Context(), cfg.DB)
				if err != nil {
					return err
				}
				defer db.Close()

				creds, err := auth.NewCredentials(pg.NewPrincipalRepo(db), tokens.NewPasswordHasher(0), auth.Config{})
				if err != nil {
					return err
				}
				store := accountStore{
					creds:   creds,
					refresh: pg.NewRefreshTokenRepo(db),
					tx:      pg.NewTransactor(db, zap.NewNop()),
					now:     func() time.Time { return time.Now().UTC() },
				}
				p, revoked, err := store.setActive(cmd.Context(), args[0], active)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s active=%t sessions_revoked=%d\n", p.Email, p.IsActive, revoked)
				return nil
			},
		}
	}

	cmd := &cobra.Command{Use: "teacher", Short: "Manage teacher accounts"}
	cmd.AddCommand(
		toggle("activate", "Allow the teacher to sign in again", true),
		toggle("deactivate", "Block sign-in and end every session", false),
	)
	return cmd
}
