package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Amund-Fremming/tero.platform/cmd/teroapi/cmd/cmdutil"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the platform schema",
	Long: `Schema management for the user, game, word and system_log tables.
Migrations are compiled into the binary; migrate and rollback hold the
migration lock while they run.`,
}

// withDB opens the configured database for the duration of fn.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, b *cmdutil.DBBundle) error) error {
	ctx := cmd.Context()
	b, err := cmdutil.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, b)
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the migration bookkeeping tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *cmdutil.DBBundle) error {
			if err := b.Migrator.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			logger.Info("migration tables initialized")
			return nil
		})
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *cmdutil.DBBundle) error {
			id, err := b.MigrateLocked(ctx)
			if err != nil {
				return err
			}
			if id == 0 {
				logger.Info("schema up to date")
				return nil
			}
			logger.WithField("group", id).Info("applied migration group")
			return nil
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *cmdutil.DBBundle) error {
			ms, err := b.Migrator.MigrationsWithStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MIGRATION\tGROUP\tSTATUS")
			for _, m := range ms {
				if m.GroupID > 0 {
					fmt.Fprintf(tw, "%s\t%d\tapplied\n", m.Name, m.GroupID)
					continue
				}
				fmt.Fprintf(tw, "%s\t-\tpending\n", m.Name)
			}
			return tw.Flush()
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert the newest migration group",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *cmdutil.DBBundle) error {
			id, err := b.RollbackLocked(ctx)
			if err != nil {
				return err
			}
			if id == 0 {
				logger.Info("nothing to roll back")
				return nil
			}
			logger.WithField("group", id).Info("rolled back migration group")
			return nil
		})
	},
}

var dbUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Release a migration lock left by a crashed run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, b *cmdutil.DBBundle) error {
			if err := b.Migrator.Unlock(ctx); err != nil {
				return fmt.Errorf("failed to release migration lock: %w", err)
			}
			logger.Info("migration lock released")
			return nil
		})
	},
}

func init() {
	dbCmd.AddCommand(dbInitCmd, dbMigrateCmd, dbStatusCmd, dbRollbackCmd, dbUnlockCmd)
	rootCmd.AddCommand(dbCmd)
}
