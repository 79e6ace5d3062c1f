package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezenity/ezenity-api/internal/config"
	"github.com/ezenity/ezenity-api/internal/di"
	"github.com/ezenity/ezenity-api/internal/tools/common"
	"github.com/ezenity/ezenity-api/internal/tools/smoke"
)

type rootOptions struct {
	envFile string
	ci      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ezenity-api",
		Short:         "Ezenity account and session API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newServeCommand(opts), newPruneTokensCommand(opts), newSmokeCommand(opts))
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the refresh token sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := di.InitializeApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer cleanup()
			return a.Run(ctx)
		},
	}
}

func newPruneTokensCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-tokens",
		Short: "Remove revoked and expired refresh tokens past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			_, err = common.Execute(opts.ci, "prune-tokens", 5*time.Minute, func(ctx context.Context) ([]string, error) {
				svc, cleanup, err := di.InitializeAccountService(ctx, cfg)
				if err != nil {
					return nil, err
				}
				defer cleanup()
				removed, err := svc.PruneExpiredTokens(ctx)
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("removed=%d retention=%s", removed, cfg.RefreshTokenRetention)}, nil
			})
			return err
		},
	}
}

func newSmokeCommand(opts *rootOptions) *cobra.Command {
	cfg := smoke.Config{}
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Exercise sign-in, refresh rotation and revocation against a running API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(opts.envFile); err != nil {
				return err
			}
			if cfg.Email == "" {
				cfg.Email = os.Getenv("SMOKE_EMAIL")
			}
			if cfg.Password == "" {
				cfg.Password = os.Getenv("SMOKE_PASSWORD")
			}
			if cfg.Email == "" || cfg.Password == "" {
				return fmt.Errorf("smoke: --email and --password (or SMOKE_EMAIL/SMOKE_PASSWORD) are required")
			}
			_, err := common.Execute(opts.ci, "smoke", time.Minute, func(ctx context.Context) ([]string, error) {
				return smoke.Run(ctx, cfg)
			})
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&cfg.Email, "email", "", "verified account email")
	cmd.Flags().StringVar(&cfg.Password, "password", "", "account password")
	return cmd
}
