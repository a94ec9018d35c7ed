package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/leave-pass-service/internal/config"
	"github.com/iliyamo/leave-pass-service/internal/database"
	"github.com/iliyamo/leave-pass-service/internal/utils"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, dialect, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(db, dialect); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", dialect)
			return nil
		},
	}
}

func newActivateCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Run auto-activation once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			res, err := a.engine.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "windows processed: %d, passes granted: %d\n", res.WindowsProcessed, res.PassesGranted)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Abort the run after this long")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		operatorID string
		name       string
		role       string
		ttl        int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if ttl <= 0 {
				ttl = cfg.AccessTTLMin
			}
			tok, err := utils.NewAccessToken(cfg.JWTSecret, operatorID, name, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operatorID, "id", "", "Operator identifier (sub claim)")
	cmd.Flags().StringVar(&name, "name", "", "Operator display name")
	cmd.Flags().StringVar(&role, "role", "STAFF", "Operator role: ADMIN or STAFF")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "Token lifetime in minutes (default ACCESS_TOKEN_TTL_MIN)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
