package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iocafe/iocomgen/pkg/layout"
	"github.com/iocafe/iocomgen/pkg/schema"
)

func newValidateCommand(e *env) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "validate [flags] <file>...",
		Short: "Check signal, pin and parameter files",
		Long: `Check files against the document schema and the naming rules. Signal maps
are also laid out and overlapping addresses reported. Without --kind the
kind is guessed from the file name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, file := range args {
				k := schema.Kind(kind)
				if k == "" {
					k = guessKind(file)
				}
				if err := validateFile(k, file); err != nil {
					fmt.Fprintf(e.stdout, "FAIL  %s: %v\n", file, err)
					failed++
					continue
				}
				fmt.Fprintf(e.stdout, "OK    %s\n", file)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files", errValidation, failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Document kind: signals, pins or parameters")
	return cmd
}

// guessKind picks the document kind from a file name such as
// "pins-io.json" or "parameters.json".
func guessKind(path string) schema.Kind {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(base, "pins"):
		return schema.KindPins
	case strings.Contains(base, "param"):
		return schema.KindParameters
	default:
		return schema.KindSignals
	}
}

func validateFile(kind schema.Kind, path string) error {
	if _, err := schema.ParseKind(string(kind)); err != nil {
		return err
	}
	switch kind {
	case schema.KindPins:
		_, err := schema.LoadPins(path)
		return err
	case schema.KindParameters:
		p, err := schema.LoadParameters(path)
		if err != nil {
			return err
		}
		for _, nb := range p.Blocks() {
			if _, err := layout.ComputeParameterBlock(nb.Name, nb.Block, 0); err != nil {
				return err
			}
		}
		return nil
	default:
		raw, err := schema.LoadSignals(path)
		if err != nil {
			return err
		}
		d, err := layout.ComputeDevice(raw)
		if err != nil {
			return err
		}
		if o := d.Overlaps(); len(o) > 0 {
			return fmt.Errorf("%s", o[0])
		}
		return nil
	}
}
