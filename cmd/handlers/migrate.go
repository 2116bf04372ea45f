package handlers

import (
	"fmt"

	"blogsmith/internal/config"
	"blogsmith/internal/logger"
	"blogsmith/internal/store"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the article store schema.

Subcommands:
  up       Apply all pending migrations
  status   Show the applied schema version
  rollback Roll back the last migration (use with caution!)

Every other command applies pending migrations on start, so 'up' is
mainly useful for preparing a PostgreSQL database ahead of a deploy.

Examples:
  blogsmith migrate up
  blogsmith migrate status
  blogsmith migrate rollback --force`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateRollbackCmd())

	return cmd
}

func connectStore() (*store.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	st, err := store.Connect(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return st, nil
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := connectStore()
			if err != nil {
				return err
			}
			defer st.Close()

			logger.Info("Starting database migration")
			if err := st.Migrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			version, err := st.SchemaVersion()
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("All migrations applied (schema version %d)", version)))
			return nil
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := connectStore()
			if err != nil {
				return err
			}
			defer st.Close()

			version, err := st.SchemaVersion()
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			fmt.Println(field("Schema", fmt.Sprintf("%d", version)))
			if version == 0 {
				fmt.Println(warnStyle.Render("No migrations applied. Run 'blogsmith migrate up'."))
			}
			return nil
		},
	}
}

func newMigrateRollbackCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last migration",
		Long: `Roll back the last applied migration. This drops schema objects
and the data in them, so it is meant for development only.
Use --force to skip the confirmation prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Print(warnStyle.Render("Rolling back drops stored articles. Proceed? (yes/no): "))
				var response string
				if _, err := fmt.Scanln(&response); err != nil {
					return fmt.Errorf("failed to read response: %w", err)
				}
				if response != "yes" {
					fmt.Println("Rollback cancelled")
					return nil
				}
			}

			st, err := connectStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.MigrateDown(); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			logger.Warn("Rolled back last migration")
			fmt.Println(successStyle.Render("Last migration rolled back"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}
