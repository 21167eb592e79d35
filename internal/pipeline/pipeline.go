// Package pipeline builds the generated C code of IO application
// configuration directories: it merges the JSON fragments of every hardware
// configuration and runs the generators on the results.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iocafe/iocomgen/pkg/binjson"
	"github.com/iocafe/iocomgen/pkg/cgen"
	"github.com/iocafe/iocomgen/pkg/jsondoc"
	"github.com/iocafe/iocomgen/pkg/layout"
	"github.com/iocafe/iocomgen/pkg/paramconv"
	"github.com/iocafe/iocomgen/pkg/schema"
)

// C array names of the compiled-in binary configurations.
const (
	SignalConfigVar    = "ioapp_signal_config"
	NetworkDefaultsVar = "ioapp_network_defaults"
)

// Options controls a build.
type Options struct {
	// Imports is the shared configuration directory searched after each
	// application's own.
	Imports string

	Strict        bool
	HashPasswords bool

	// Jobs limits concurrent hardware builds; zero means no limit.
	Jobs int

	Logger *zap.Logger
}

// Result describes the build of one hardware configuration.
type Result struct {
	ConfDir  string
	Hardware string
	Files    []string
	Overlaps []layout.Overlap
}

// Report collects the results of a build run.
type Report struct {
	RunID   string
	Results []Result
}

// Builder runs configuration builds.
type Builder struct {
	opts   Options
	log    *zap.Logger
	hasher binjson.PasswordHasher
}

// New returns a Builder.
func New(opts Options) *Builder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	b := &Builder{opts: opts, log: log}
	if opts.HashPasswords {
		b.hasher = binjson.NewArgon2Hasher()
	}
	return b
}

// Build processes every configuration directory. Hardware configurations
// are built concurrently; the first error cancels the remaining ones.
func (b *Builder) Build(ctx context.Context, confDirs ...string) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	log := b.log.With(zap.String("run", report.RunID))

	var hws []Hardware
	for _, dir := range confDirs {
		log.Info("Processing path", zap.String("path", dir))
		names, err := HardwareList(dir)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			hws = append(hws, Hardware{ConfDir: dir, Imports: b.opts.Imports, Name: n})
		}
	}

	results := make([]Result, len(hws))
	g, ctx := errgroup.WithContext(ctx)
	if b.opts.Jobs > 0 {
		g.SetLimit(b.opts.Jobs)
	}
	for i, hw := range hws {
		g.Go(func() error {
			r, err := b.buildHardware(ctx, log.With(zap.String("hw", hw.Name)), hw)
			if err != nil {
				return fmt.Errorf("%s hardware %s: %w", hw.ConfDir, hw.Name, err)
			}
			results[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Results = results
	return report, nil
}

type hwBuild struct {
	hw  Hardware
	log *zap.Logger
	res *Result
}

func (b *Builder) buildHardware(ctx context.Context, log *zap.Logger, hw Hardware) (*Result, error) {
	s := &hwBuild{hw: hw, log: log, res: &Result{ConfDir: hw.ConfDir, Hardware: hw.Name}}

	signals, err := s.merge(DirSignals, "signals.json")
	if err != nil {
		return nil, err
	}
	params, err := s.merge(DirParameters, "parameters.json")
	if err != nil {
		return nil, err
	}
	pins, err := s.merge(DirPins, "pins-io.json")
	if err != nil {
		return nil, err
	}
	network, err := s.merge(DirNetwork, "network-defaults.json")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if params != nil {
		if err := s.parameters(params, deviceName(signals)); err != nil {
			return nil, err
		}
	}
	if signals != nil {
		if err := s.signals(signals, pins, b.opts.Strict); err != nil {
			return nil, err
		}
		if err := s.binary(signals, "signals", SignalConfigVar, "info-mblk.c", nil); err != nil {
			return nil, err
		}
	}
	if network != nil {
		if err := s.binary(network, "network-defaults", NetworkDefaultsVar, "network-defaults.c", b.hasher); err != nil {
			return nil, err
		}
	}
	return s.res, ctx.Err()
}

// merge merges the fragments of one source directory and stores the result
// as <name>-merged.json. It returns nil when the directory has nothing for
// this hardware.
func (s *hwBuild) merge(dir, defaultFile string) (any, error) {
	sources, err := s.hw.MergeSources(dir, defaultFile)
	if err != nil || sources == nil {
		return nil, err
	}
	doc, err := MergeFiles(sources)
	if err != nil {
		return nil, err
	}

	base := defaultFile[:len(defaultFile)-len(filepath.Ext(defaultFile))]
	out := filepath.Join(s.hw.IntermediateDir(), base+"-merged.json")
	s.log.Debug("Merged", zap.Strings("sources", sources), zap.String("path", out))
	if err := s.writeJSON(out, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *hwBuild) signals(doc, pinsDoc any, strict bool) error {
	raw, err := schema.ParseSignals(doc)
	if err != nil {
		return err
	}
	dev, err := layout.ComputeDevice(raw)
	if err != nil {
		return err
	}

	opts := cgen.SignalOptions{Strict: strict}
	if pinsDoc != nil {
		p, err := schema.ParsePins(pinsDoc)
		if err != nil {
			return err
		}
		opts.Pins = p.References()
	}

	cPath := filepath.Join(s.hw.IncludeDir(), "signals.c")
	hPath := filepath.Join(s.hw.IncludeDir(), "signals.h")
	opts.HeaderPath = hPath
	out, err := cgen.GenerateSignals([]*layout.Device{dev}, opts)
	if err != nil {
		return err
	}
	for _, o := range out.Overlaps {
		s.log.Warn("Overlapping signals", zap.String("overlap", o.String()))
	}
	s.res.Overlaps = out.Overlaps
	return s.writeOutput(out, cPath, hPath)
}

// parameters generates the parameter code. An unnamed parameter file takes
// the device name of the signal map, so both refer to the same struct.
func (s *hwBuild) parameters(doc any, signalsDevice string) error {
	raw, err := schema.ParseParameters(doc)
	if err != nil {
		return err
	}
	cPath := filepath.Join(s.hw.IncludeDir(), "parameters.c")
	hPath := filepath.Join(s.hw.IncludeDir(), "parameters.h")
	opts := cgen.ParameterOptions{HeaderPath: hPath}
	if raw.Name == "" {
		opts.DeviceName = signalsDevice
	}
	out, err := cgen.GenerateParameters([]*schema.RawParameters{raw}, opts)
	if err != nil {
		return err
	}
	if err := s.writeOutput(out, cPath, hPath); err != nil {
		return err
	}

	sig, err := paramconv.Convert(doc)
	if err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(s.hw.IntermediateDir(), "parameters-as-signals.json"), sig)
}

func deviceName(doc any) string {
	if o, ok := doc.(*jsondoc.Object); ok {
		name, _ := o.GetString("name")
		return name
	}
	return ""
}

// binary stores doc as binary JSON, decodes it back into a check file and
// writes the binary as a C array.
func (s *hwBuild) binary(doc any, name, varName, cFile string, hasher binjson.PasswordHasher) error {
	data, err := binjson.Encode(doc, binjson.EncodeOptions{Title: name, Hasher: hasher})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	binPath := filepath.Join(s.hw.IntermediateDir(), name+".binjson")
	if err := cgen.WriteFile(binPath, string(data)); err != nil {
		return err
	}
	s.res.Files = append(s.res.Files, binPath)

	check, _, err := binjson.Decode(data)
	if err != nil {
		return fmt.Errorf("checking %s: %w", binPath, err)
	}
	if err := s.writeJSON(filepath.Join(s.hw.IntermediateDir(), name+"-check.json"), check); err != nil {
		return err
	}

	src, err := cgen.BinToC(data, varName)
	if err != nil {
		return err
	}
	cPath := filepath.Join(s.hw.IncludeDir(), cFile)
	s.log.Info("Writing file", zap.String("path", cPath))
	if err := cgen.WriteFile(cPath, src); err != nil {
		return err
	}
	s.res.Files = append(s.res.Files, cPath)
	return nil
}

func (s *hwBuild) writeOutput(out *cgen.Output, cPath, hPath string) error {
	s.log.Info("Writing files", zap.String("c", cPath), zap.String("h", hPath))
	if err := out.WriteFiles(cPath, hPath); err != nil {
		return err
	}
	s.res.Files = append(s.res.Files, cPath, hPath)
	return nil
}

func (s *hwBuild) writeJSON(path string, doc any) error {
	if err := jsondoc.WriteFile(path, doc); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	s.res.Files = append(s.res.Files, path)
	return nil
}
