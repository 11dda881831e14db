package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/dispatch/internal/conversion"
	"github.com/conduit-lang/dispatch/internal/conversion/converters"
)

// NewConvertCommand creates the convert command
func NewConvertCommand(opts *globalOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "convert [FILE]",
		Short: "Convert a document between formats",
		Long: `Run a document through the converter graph.

The input is read from FILE, or from stdin when FILE is omitted or "-".
The converted document is written to stdout.

Examples:
  dispatch convert --to yaml data.json
  cat data.yaml | dispatch convert --from yaml --to csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return explain(cmd.ErrOrStderr(), nil, err)
			}

			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			result := conversion.NewResult(input, from)
			ctx := conversion.WithOperation(cmd.Context(), "cli.convert")
			if err := a.converters.Convert(ctx, from, to, result); err != nil {
				return explain(cmd.ErrOrStderr(), a, err)
			}

			data, ok := result.Bytes()
			if !ok {
				return fmt.Errorf("format %q is not serialized; pick one of %v", to, converters.WireFormats)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&from, "from", "f", converters.JSON, "Format of the input")
	cmd.Flags().StringVarP(&to, "to", "t", "", "Format to convert to")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}
