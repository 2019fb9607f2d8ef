package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geomd/metaschema/internal/metrics"
	"github.com/geomd/metaschema/internal/web/api"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the HTTP routes serve would register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			c := &components{}
			if e.cfg.Database.URL != "" {
				// opening does not connect; the store is only needed for its routes
				if c.store, err = e.openStore(); err != nil {
					return err
				}
				defer c.store.Close()
			}

			a, err := api.New(cmd.Context(), apiConfig(e, c, metrics.New()))
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			fmt.Fprint(e.out, a.RouteList())
			return nil
		},
	}

	addDatabaseFlags(cmd)
	return cmd
}
