package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iocafe/iocomgen/pkg/cgen"
	"github.com/iocafe/iocomgen/pkg/paramconv"
	"github.com/iocafe/iocomgen/pkg/schema"
)

func newParametersCommand(e *env) *cobra.Command {
	var output, device string
	cmd := &cobra.Command{
		Use:   "parameters [flags] <parameters.json>...",
		Short: "Generate C parameter structures and load/save functions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]*schema.RawParameters, 0, len(args))
			for _, src := range args {
				p, err := schema.LoadParameters(src)
				if err != nil {
					return invalid(err)
				}
				files = append(files, p)
			}

			cPath, hPath := cgen.Paths(outputBase(output, args))
			out, err := cgen.GenerateParameters(files, cgen.ParameterOptions{DeviceName: device, HeaderPath: hPath})
			if err != nil {
				return invalid(err)
			}
			e.logger().Info("Writing files", zap.String("c", cPath), zap.String("h", hPath))
			return out.WriteFiles(cPath, hPath)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path; .c and .h are derived from it")
	cmd.Flags().StringVarP(&device, "device", "d", "", "Device name")
	e.addVerbose(cmd)
	return cmd
}

func newPrm2SigCommand(e *env) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "prm2sig [flags] <parameters.json>...",
		Short: "Convert parameter files into a signal map",
		Long: `Convert parameter files into a signal map with an "exp" block holding the
parameter values and an "imp" block holding "set_" prefixed signals to
change them. Without -o the result goes to intermediate/<name>-as-signals.json
next to the first source.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]any, 0, len(args))
			for _, src := range args {
				d, err := schema.ReadDocument(src)
				if err != nil {
					return invalid(err)
				}
				docs = append(docs, d)
			}

			sig, err := paramconv.Convert(docs...)
			if err != nil {
				return invalid(err)
			}
			if output == "" {
				output = paramconv.DefaultOutput(args[0])
			}
			e.logger().Info("Writing file", zap.String("path", output))
			return writeDocument(e.stdout, output, sig)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	e.addVerbose(cmd)
	return cmd
}
