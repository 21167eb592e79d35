package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iocafe/iocomgen/pkg/cgen"
	"github.com/iocafe/iocomgen/pkg/layout"
	"github.com/iocafe/iocomgen/pkg/schema"
)

type signalsOptions struct {
	output string
	pins   string
	device string
	app    string
	strict bool
}

func newSignalsCommand(e *env) *cobra.Command {
	var opts signalsOptions
	cmd := &cobra.Command{
		Use:   "signals [flags] <signals.json>...",
		Short: "Generate C signal structures from signal maps",
		Example: `  iocomgen signals signals.json -p pins-io.json -o include/carol/signals.c
  iocomgen signals -a controller-static gina.json tito.json -o signals`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignals(e, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "Output path; .c and .h are derived from it")
	f.StringVarP(&opts.pins, "pins", "p", "", "Pin map to bind signals to")
	f.StringVarP(&opts.device, "device", "d", "", "Device name overriding the names in the files")
	f.StringVarP(&opts.app, "app", "a", string(cgen.AppIODevice), "Application type: iodevice, controller-static or controller-dynamic")
	f.BoolVar(&opts.strict, "strict", false, "Fail when signal addresses overlap")
	e.addVerbose(cmd)
	return cmd
}

func runSignals(e *env, opts signalsOptions, sources []string) error {
	log := e.logger()
	app, err := cgen.ParseAppType(opts.app)
	if err != nil {
		return err
	}

	devices, err := loadDevices(sources)
	if err != nil {
		return err
	}

	genOpts := cgen.SignalOptions{App: app, DeviceName: opts.device, Strict: opts.strict}
	if opts.pins != "" {
		p, err := schema.LoadPins(opts.pins)
		if err != nil {
			return invalid(err)
		}
		genOpts.Pins = p.References()
	}

	cPath, hPath := cgen.Paths(outputBase(opts.output, sources))
	genOpts.HeaderPath = hPath
	out, err := cgen.GenerateSignals(devices, genOpts)
	if err != nil {
		return invalid(err)
	}
	for _, o := range out.Overlaps {
		log.Warn("Overlapping signals", zap.String("overlap", o.String()))
	}

	log.Info("Writing files", zap.String("c", cPath), zap.String("h", hPath))
	return out.WriteFiles(cPath, hPath)
}

// loadDevices reads and lays out each signal map.
func loadDevices(sources []string) ([]*layout.Device, error) {
	devices := make([]*layout.Device, 0, len(sources))
	for _, src := range sources {
		raw, err := schema.LoadSignals(src)
		if err != nil {
			return nil, invalid(err)
		}
		d, err := layout.ComputeDevice(raw)
		if err != nil {
			return nil, invalid(fmt.Errorf("%s: %w", src, err))
		}
		devices = append(devices, d)
	}
	return devices, nil
}
