package commands

import (
	"github.com/spf13/cobra"

	"github.com/geomd/metaschema/internal/cli/ui"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the record table in the configured database",
		Long: `Create the metadata_records table and its indexes if they do not exist.
Running it again is harmless.`,
		Example: `  metaschema migrate --db-url metadata.db
  METASCHEMA_DATABASE_DRIVER=postgres METASCHEMA_DATABASE_URL=postgres://localhost/metadata metaschema migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			return ui.WithSpinner(e.errOut, "migrating "+e.cfg.Database.Driver+" database", e.noColor, func() error {
				return st.Migrate(cmd.Context())
			})
		},
	}

	addDatabaseFlags(cmd)
	return cmd
}

// addDatabaseFlags adds the flags overriding database.driver and database.url
func addDatabaseFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-driver", "sqlite3", "Database driver: sqlite3 or postgres")
	cmd.Flags().String("db-url", "", "Database URL")
}
