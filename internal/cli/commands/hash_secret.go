package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/dispatch/internal/web/auth"
)

// NewHashSecretCommand creates the hash-secret command
func NewHashSecretCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret",
		Short: "Hash a client secret for auth.clients",
		Long: `Hash a client secret with bcrypt for the secret_hash field of an
auth.clients entry. The secret is prompted for on a terminal and read
from the first line of stdin otherwise.

Examples:
  dispatch hash-secret
  echo -n "$CI_SECRET" | dispatch hash-secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var secret string
			if cmd.InOrStdin() == os.Stdin && (isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) {
				if err := survey.AskOne(&survey.Password{Message: "Client secret:"}, &secret,
					survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no secret on stdin")
				}
				secret = strings.TrimRight(line, "\r\n")
			}

			hash, err := auth.HashSecret(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
