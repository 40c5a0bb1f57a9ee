package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/redis"
)

// unreachable reports the error that prevented connecting.
type unreachable struct{ err error }

func (u unreachable) Ping(context.Context) error { return u.err }

func newCheckCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ping the document and report stores enabled in the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			checker := health.NewChecker(timeout)

			if a.cfg.Documents.Source == "redis" {
				client, err := pkgredis.NewClient(a.cfg.Redis)
				if err != nil {
					checker.Register("redis", unreachable{err})
				} else {
					defer client.Close()
					checker.Register("redis", client)
				}
			}
			if a.cfg.Postgres.Enabled {
				db, err := postgres.New(ctx, a.cfg.Postgres)
				if err != nil {
					checker.Register("postgres", unreachable{err})
				} else {
					defer db.Close()
					checker.Register("postgres", db)
				}
			}

			report := checker.Run(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if report.Status != health.StatusUp {
				return fmt.Errorf("stores unavailable")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-store ping timeout")
	return cmd
}
