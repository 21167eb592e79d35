package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iocafe/iocomgen/pkg/layout"
)

// Layout output formats.
const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

func newLayoutCommand(e *env) *cobra.Command {
	format := formatTable
	cmd := &cobra.Command{
		Use:   "layout [flags] <signals.json>...",
		Short: "Show the computed signal addresses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := loadDevices(args)
			if err != nil {
				return err
			}
			switch format {
			case formatTable:
				return printLayoutTable(e.stdout, devices)
			case formatYAML:
				enc := yaml.NewEncoder(e.stdout)
				enc.SetIndent(2)
				if err := enc.Encode(devices); err != nil {
					return err
				}
				return enc.Close()
			case formatJSON:
				enc := json.NewEncoder(e.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(devices)
			default:
				return fmt.Errorf("unknown format %q (want table, yaml or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", format, "Output format: table, yaml or json")
	return cmd
}

func printLayoutTable(w io.Writer, devices []*layout.Device) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, d := range devices {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "Device: %s\n", d.Name)
		for _, b := range d.Blocks {
			fmt.Fprintf(tw, "\nBlock %s (%s, %d bytes)\n", b.Name, b.Handle, b.MaxAddr)
			fmt.Fprintln(tw, "ADDR\tSIZE\tTYPE\tARRAY\tGROUP\tSIGNAL")
			for _, s := range b.Signals {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\t%s\n", s.Addr, s.Size, s.Type, s.Array, s.Group, s.Name)
			}
			for _, o := range b.Overlaps {
				fmt.Fprintf(tw, "OVERLAP\t%s\n", o)
			}
		}
	}
	return tw.Flush()
}
