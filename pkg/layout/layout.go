// Package layout assigns byte addresses to signals and parameters.
//
// Signals of a memory block are laid out in declaration order. Each signal
// takes one state byte plus its payload; an explicit address moves the
// running counter. A signal without a type inherits the type of the signal
// before it in the same group, or the group default when it is the first.
package layout

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/iocafe/iocomgen/pkg/naming"
	"github.com/iocafe/iocomgen/pkg/osal"
	"github.com/iocafe/iocomgen/pkg/schema"
)

// MinBlockSize is the smallest memory block size ever reported.
const MinBlockSize = 32

// Parameter flag bits carried by signals generated from parameters.
const (
	PFlagIsParameter  = 64
	PFlagIsPersistent = 128
)

// C structures holding parameter values on the device.
const (
	PersistentStruct = "ioc_persistent_prm"
	VolatileStruct   = "ioc_volatile_prm"
)

// Signal is a signal with its computed placement.
type Signal struct {
	Name  string    `json:"name" yaml:"name"`
	Group string    `json:"group" yaml:"group"`
	Type  osal.Type `json:"type" yaml:"type"`
	Addr  int       `json:"addr" yaml:"addr"`
	Array int       `json:"array" yaml:"array"`
	Size  int       `json:"size" yaml:"size"`
	PFlag int       `json:"pflag,omitempty" yaml:"pflag,omitempty"`
	PAddr string    `json:"paddr,omitempty" yaml:"paddr,omitempty"`
}

// End returns the first address after the signal.
func (s Signal) End() int { return s.Addr + s.Size }

// IsParameter reports whether the signal mirrors a device parameter.
func (s Signal) IsParameter() bool { return s.PFlag&PFlagIsParameter != 0 }

// IsPersistent reports whether the mirrored parameter is persistent.
func (s Signal) IsPersistent() bool { return s.PFlag&PFlagIsPersistent != 0 }

// Overlap records two signals sharing at least one byte.
type Overlap struct {
	Block  string `json:"block" yaml:"block"`
	Addr   int    `json:"addr" yaml:"addr"`
	First  string `json:"first" yaml:"first"`
	Second string `json:"second" yaml:"second"`
}

func (o Overlap) String() string {
	return fmt.Sprintf("%s: signals %q and %q overlap at address %d", o.Block, o.First, o.Second, o.Addr)
}

// Block is a laid out memory block.
type Block struct {
	Name     string    `json:"name" yaml:"name"`
	Handle   string    `json:"handle" yaml:"handle"`
	Flags    string    `json:"flags,omitempty" yaml:"flags,omitempty"`
	MaxAddr  int       `json:"max_addr" yaml:"max_addr"`
	Signals  []Signal  `json:"signals" yaml:"signals"`
	Overlaps []Overlap `json:"overlaps,omitempty" yaml:"overlaps,omitempty"`
}

// Device is a laid out signal map.
type Device struct {
	Name       string               `json:"name" yaml:"name"`
	Blocks     []*Block             `json:"mblk" yaml:"mblk"`
	Assemblies []schema.RawAssembly `json:"assembly,omitempty" yaml:"assembly,omitempty"`
}

// Overlaps returns the overlaps of every block.
func (d *Device) Overlaps() []Overlap {
	var out []Overlap
	for _, b := range d.Blocks {
		out = append(out, b.Overlaps...)
	}
	return out
}

// GroupDefaultType returns the type of an untyped first signal in a group.
func GroupDefaultType(group string) osal.Type {
	if group == "inputs" || group == "outputs" {
		return osal.TypeBoolean
	}
	return osal.TypeUShort
}

// DefaultHandle is the C handle expression used when a block names none.
func DefaultHandle(block string) string {
	return "&ioboard_" + block
}

// ComputeDevice lays out every memory block of a signal map.
func ComputeDevice(raw *schema.RawSignals) (*Device, error) {
	d := &Device{Name: raw.Name, Assemblies: raw.Assembly}
	for _, m := range raw.Mblk {
		b, err := ComputeBlock(m)
		if err != nil {
			return nil, err
		}
		d.Blocks = append(d.Blocks, b)
	}
	return d, nil
}

// ComputeBlock lays out one memory block. Signals are returned sorted by
// address; signals with equal addresses keep declaration order.
func ComputeBlock(m schema.RawMblk) (*Block, error) {
	b := &Block{
		Name:    m.Name,
		Handle:  m.Handle,
		Flags:   m.Flags,
		MaxAddr: MinBlockSize,
	}
	if b.Handle == "" || b.Handle == "OS_NULL" {
		b.Handle = DefaultHandle(m.Name)
	}

	addr := 0
	for _, g := range m.Groups {
		typ := GroupDefaultType(g.Name)
		for _, rs := range g.Signals {
			if rs.Type != "" {
				t, err := osal.ParseType(rs.Type)
				if err != nil {
					return nil, fmt.Errorf("memory block %s signal %s: %w", m.Name, rs.Name, err)
				}
				typ = t
			}
			if rs.Addr != nil {
				addr = *rs.Addr
			}

			s := Signal{
				Name:  rs.Name,
				Group: g.Name,
				Type:  typ,
				Addr:  addr,
				Array: max(rs.Array, 1),
				PFlag: rs.PFlag,
				PAddr: rs.PAddr,
			}
			s.Size = osal.MemorySize(s.Type, s.Array)
			if s.IsParameter() {
				s.PAddr = ParameterRef(s.Name, s.Array, s.IsPersistent())
			}

			addr += s.Size
			b.MaxAddr = max(b.MaxAddr, addr)
			b.Signals = append(b.Signals, s)
		}
	}

	slices.SortStableFunc(b.Signals, func(x, y Signal) int {
		return cmp.Compare(x.Addr, y.Addr)
	})
	b.Overlaps = findOverlaps(b.Name, b.Signals)
	return b, nil
}

// ParameterRef returns the C expression of the parameter value a signal
// mirrors. Arrays decay to pointers and take no address operator. The "set_"
// prefix of signals written by the controller is dropped.
func ParameterRef(signal string, array int, persistent bool) string {
	ref := ""
	if array <= 1 {
		ref = "&"
	}
	if persistent {
		ref += PersistentStruct
	} else {
		ref += VolatileStruct
	}
	return ref + "." + naming.StripSetPrefix(signal)
}

// findOverlaps reports each pair of signals whose byte ranges intersect.
// signals must be sorted by address.
func findOverlaps(block string, signals []Signal) []Overlap {
	var out []Overlap
	var active []Signal
	for _, s := range signals {
		live := active[:0]
		for _, a := range active {
			if a.End() > s.Addr {
				live = append(live, a)
			}
		}
		active = live

		for _, a := range active {
			out = append(out, Overlap{Block: block, Addr: s.Addr, First: a.Name, Second: s.Name})
		}
		active = append(active, s)
	}
	return out
}
