package commands

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/dispatch/internal/cli/ui"
	"github.com/conduit-lang/dispatch/internal/conversion/converters"
	"github.com/conduit-lang/dispatch/internal/dispatch"
)

// NewFormatsCommand creates the formats command
func NewFormatsCommand(opts *globalOptions) *cobra.Command {
	var showConverters bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List known formats and converters",
		Long: `List every format the converter graph knows about.

With --converters, print each registered converter with its quality and
the weight a hop through it costs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return explain(cmd.ErrOrStderr(), nil, err)
			}

			out := cmd.OutOrStdout()
			noColor := color.NoColor

			if showConverters {
				ui.Header(out, "Converters", noColor)
				table := ui.NewTable(out, noColor, "INPUT", "OUTPUT", "QUALITY", "WEIGHT")
				for _, c := range dispatch.DescribeConverters(a.converters) {
					table.AddRow(c.Input, c.Output, c.Quality, strconv.Itoa(c.Weight))
				}
				table.Render()
				return nil
			}

			ui.Header(out, "Formats", noColor)
			wire := make(map[string]bool, len(converters.WireFormats))
			for _, f := range converters.WireFormats {
				wire[f] = true
			}
			for _, f := range a.converters.Formats() {
				if wire[f] {
					fmt.Fprintf(out, "  %s (wire)\n", f)
				} else {
					fmt.Fprintf(out, "  %s\n", f)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showConverters, "converters", false, "List converters instead of formats")

	return cmd
}
