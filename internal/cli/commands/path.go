package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/dispatch/internal/cli/ui"
	"github.com/conduit-lang/dispatch/internal/conversion"
)

// NewPathCommand creates the path command
func NewPathCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path [FROM TO]",
		Short: "Show the converter chain between two formats",
		Long: `Resolve the cheapest converter chain from one format to another.

Without arguments on a terminal, both formats are picked interactively.

Examples:
  dispatch path native json
  dispatch path json xml`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts FROM and TO, received %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return explain(cmd.ErrOrStderr(), nil, err)
			}

			var from, to string
			if len(args) == 2 {
				from, to = args[0], args[1]
			} else {
				if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
					return errors.New("FROM and TO are required when not running interactively")
				}
				from, to, err = promptFormats(a.converters.Formats())
				if err != nil {
					return err
				}
			}

			chain, err := a.converters.Path(from, to)
			if err != nil {
				return explain(cmd.ErrOrStderr(), a, err)
			}
			printChain(cmd, chain)
			return nil
		},
	}

	return cmd
}

func promptFormats(formats []string) (string, string, error) {
	var from, to string
	if err := survey.AskOne(&survey.Select{
		Message: "Convert from:",
		Options: formats,
	}, &from); err != nil {
		return "", "", err
	}
	if err := survey.AskOne(&survey.Select{
		Message: "Convert to:",
		Options: formats,
	}, &to); err != nil {
		return "", "", err
	}
	return from, to, nil
}

func printChain(cmd *cobra.Command, chain *conversion.Chain) {
	out := cmd.OutOrStdout()
	noColor := color.NoColor

	fmt.Fprintln(out, strings.Join(chain.Formats(), " -> "))
	if chain.Len() == 0 {
		fmt.Fprintln(out, "Already in the requested format, nothing to convert.")
		return
	}

	fmt.Fprintln(out)
	table := ui.NewTable(out, noColor, "STEP", "INPUT", "OUTPUT", "QUALITY", "WEIGHT")
	for i, step := range chain.Steps {
		table.AddRow(strconv.Itoa(i+1), step.InputFormat(), step.OutputFormat(),
			step.Quality().String(), strconv.Itoa(step.Quality().Weight()))
	}
	table.Render()
	fmt.Fprintf(out, "\nTotal weight: %d\n", chain.Weight)
}
