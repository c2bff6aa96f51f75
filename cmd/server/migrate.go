package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.MigrationsPath
			}
			pool, st, err := connect(cmd.Context(), cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := st.Migrate(cmd.Context(), file); err != nil {
				return err
			}
			logger.Info("migration applied", "file", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "schema file (default $MIGRATIONS_PATH)")
	return cmd
}
