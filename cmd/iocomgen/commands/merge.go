package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iocafe/iocomgen/internal/pipeline"
)

func newMergeCommand(e *env) *cobra.Command {
	output := "-"
	cmd := &cobra.Command{
		Use:   "merge [flags] <fragment>...",
		Short: "Merge JSON or YAML fragments into one document",
		Long: `Merge fragments left to right. Objects merge key by key and lists of named
objects merge by "name", so a later fragment can extend a memory block or
signal group declared by an earlier one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := pipeline.MergeFiles(args)
			if err != nil {
				return invalid(err)
			}
			if output != "-" {
				e.logger().Info("Writing file", zap.String("path", output))
			}
			return writeDocument(e.stdout, output, doc)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", output, "Output file")
	e.addVerbose(cmd)
	return cmd
}
