package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iocafe/iocomgen/pkg/cgen"
)

func newBin2CCommand(e *env) *cobra.Command {
	var output, varName string
	cmd := &cobra.Command{
		Use:     "bin2c [flags] <file>",
		Short:   "Write a binary file as a C byte array",
		Example: `  iocomgen bin2c signals.binjson -v ioapp_signal_config -o include/carol/info-mblk.c`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if varName == "" {
				varName = defaultVarName(args[0])
			}
			src, err := cgen.BinToC(data, varName)
			if err != nil {
				return err
			}
			if output == "" {
				output = replaceExt(args[0], ".c")
			}
			return writeOutput(e.stdout, output, []byte(src))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	cmd.Flags().StringVarP(&varName, "var", "v", "", "C variable name (default from the file name)")
	return cmd
}

// defaultVarName turns a file name into a C identifier:
// "network-defaults.binjson" -> "network_defaults".
func defaultVarName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "_" + name
	}
	return name
}
