package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewTokenCommand creates the token command
func NewTokenCommand(opts *globalOptions) *cobra.Command {
	var modules []string

	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Issue a bearer token for the AJAX endpoints",
		Long: `Sign a token with auth.secret for SUBJECT.

Without --module the token grants every module.

Examples:
  dispatch token ci-bot
  dispatch token reports --module contacts --module invoices`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return explain(cmd.ErrOrStderr(), nil, err)
			}
			if !a.config.Auth.Enabled() {
				return explain(cmd.ErrOrStderr(), a, &configError{
					err: errors.New("auth.secret is not set; tokens are only checked when it is"),
				})
			}

			tokens, err := a.tokens()
			if err != nil {
				return explain(cmd.ErrOrStderr(), a, err)
			}
			token, err := tokens.Issue(args[0], modules...)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			scope := "all modules"
			if len(modules) > 0 {
				scope = strings.Join(modules, ", ")
			}
			validity := "no expiry"
			if ttl := a.config.Auth.TokenTTL; ttl > 0 {
				validity = "valid for " + ttl.String()
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Token for %s (%s), %s\n", args[0], scope, validity)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&modules, "module", "m", nil, "Module the token grants (repeatable)")

	return cmd
}
