package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/geomd/metaschema/internal/web/auth"
)

// NewTokenCommand creates the token command
func NewTokenCommand() *cobra.Command {
	var (
		scopes []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Issue a bearer token for the record endpoints",
		Long: fmt.Sprintf(`Sign a bearer token with auth.secret. Scopes:

  %-16s create records
  %-16s delete records`, auth.ScopeRecordsWrite, auth.ScopeRecordsDelete),
		Example: `  metaschema token harvester --scope records:write
  metaschema token admin --scope records:write,records:delete --ttl 1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if e.cfg.Auth.Secret == "" {
				return errors.New("auth.secret is not configured (METASCHEMA_AUTH_SECRET)")
			}
			for _, s := range scopes {
				if s != auth.ScopeRecordsWrite && s != auth.ScopeRecordsDelete {
					return fmt.Errorf("unknown scope %q", s)
				}
			}

			if ttl <= 0 {
				ttl = e.cfg.Auth.TokenTTL
			}
			token, err := auth.NewService(e.cfg.Auth.Secret, ttl).GenerateToken(args[0], scopes...)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, token)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&scopes, "scope", "s", []string{auth.ScopeRecordsWrite}, "Granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.token_ttl)")
	return cmd
}
