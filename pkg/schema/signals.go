package schema

import (
	"errors"
	"fmt"

	"github.com/iocafe/iocomgen/pkg/naming"
)

// DefaultMblkName is used for memory blocks declared without a name.
const DefaultMblkName = "MBLK"

// ErrUnknownAssembly is returned for assembly types the generator cannot emit.
var ErrUnknownAssembly = errors.New("unknown assembly type")

// Assembly types.
const (
	AssemblyCamRing  = "cam_ring"
	AssemblyLCamRing = "lcam_ring"
	AssemblyCamFlat  = "cam_flat"
	AssemblyLCamFlat = "lcam_flat"
)

// RawSignals is a device signal map loaded from JSON or YAML.
type RawSignals struct {
	Name     string        `json:"name"`
	Title    string        `json:"title"`
	Mblk     []RawMblk     `json:"mblk"`
	Assembly []RawAssembly `json:"assembly"`
}

// RawMblk is one memory block.
type RawMblk struct {
	Name   string     `json:"name"`
	Title  string     `json:"title"`
	Handle string     `json:"handle"` // C expression, "&ioboard_<name>" when empty
	Flags  string     `json:"flags"`  // "up", "down", ...
	Groups []RawGroup `json:"groups"`
}

// RawGroup is a named group of signals inside a memory block.
type RawGroup struct {
	Name    string      `json:"name"`
	Signals []RawSignal `json:"signals"`
}

// RawSignal is a single signal declaration. Type, address and array length
// are optional; layout fills them in.
type RawSignal struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Addr  *int   `json:"addr"`
	Array int    `json:"array"`
	PFlag int    `json:"pflag"`
	PAddr string `json:"paddr"`
}

// RawAssembly binds streamer signals of the imp and exp blocks together.
type RawAssembly struct {
	Name string `json:"name"`
	Type string `json:"type"` // cam_ring, lcam_ring, cam_flat, lcam_flat
	Imp  string `json:"imp"`  // "<block>.<prefix>"
	Exp  string `json:"exp"`
}

// IsFlat reports whether the assembly uses a flat buffer.
func (a RawAssembly) IsFlat() bool {
	return a.Type == AssemblyCamFlat || a.Type == AssemblyLCamFlat
}

// ParseSignals decodes and checks a signals document tree.
func ParseSignals(doc any) (*RawSignals, error) {
	var sig RawSignals
	if err := decode(KindSignals, doc, &sig); err != nil {
		return nil, err
	}
	if !hasKey(doc, "mblk") {
		return nil, fmt.Errorf("%w: 'mblk' not found", ErrMissingKey)
	}
	if err := sig.check(doc); err != nil {
		return nil, err
	}
	return &sig, nil
}

// LoadSignals reads and parses a signals file.
func LoadSignals(path string) (*RawSignals, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSignals(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *RawSignals) check(doc any) error {
	for i := range s.Mblk {
		m := &s.Mblk[i]
		if m.Name == "" {
			m.Name = DefaultMblkName
		}
		if err := naming.Validate(naming.KindMemoryBlock, m.Name); err != nil {
			return err
		}
		if !hasKey(doc, "mblk", i, "groups") {
			return fmt.Errorf("%w: 'signals' not found for %s", ErrMissingKey, m.Name)
		}
		for _, g := range m.Groups {
			for _, sg := range g.Signals {
				if sg.Name == "" {
					return fmt.Errorf("%w: 'name' not found for signal in %q group %q", ErrMissingKey, m.Name, g.Name)
				}
				if err := naming.Validate(naming.KindSignal, sg.Name); err != nil {
					return fmt.Errorf("memory block %s: %w", m.Name, err)
				}
			}
		}
	}

	for _, a := range s.Assembly {
		if err := naming.Validate(naming.KindAssembly, a.Name); err != nil {
			return err
		}
		if err := naming.Validate(naming.KindAssemblyType, a.Type); err != nil {
			return fmt.Errorf("assembly %s: %w", a.Name, err)
		}
		switch a.Type {
		case AssemblyCamRing, AssemblyLCamRing, AssemblyCamFlat, AssemblyLCamFlat:
		default:
			return fmt.Errorf("%w: assembly %q type %q", ErrUnknownAssembly, a.Name, a.Type)
		}
	}
	return nil
}
