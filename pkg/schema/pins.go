package schema

import (
	"fmt"

	"github.com/iocafe/iocomgen/pkg/naming"
)

// DefaultPinsPrefix is the C variable holding the pin tree when a root
// block does not name one.
const DefaultPinsPrefix = "pins"

// RawPins is a hardware pin map.
type RawPins struct {
	Name string       `json:"name"`
	IO   []RawPinRoot `json:"io"`
}

// RawPinRoot is one root block of the pin map.
type RawPinRoot struct {
	Name   string        `json:"name"`
	Prefix string        `json:"prefix"`
	Groups []RawPinGroup `json:"groups"`
}

// RawPinGroup groups pins of one kind, such as "inputs" or "pwm".
type RawPinGroup struct {
	Name string   `json:"name"`
	Pins []RawPin `json:"pins"`
}

// RawPin is a single pin.
type RawPin struct {
	Name string `json:"name"`
}

// ParsePins decodes and checks a pins document tree.
func ParsePins(doc any) (*RawPins, error) {
	var p RawPins
	if err := decode(KindPins, doc, &p); err != nil {
		return nil, err
	}
	if !hasKey(doc, "io") {
		return nil, fmt.Errorf("%w: 'io' not found", ErrMissingKey)
	}
	for i := range p.IO {
		if p.IO[i].Prefix == "" {
			p.IO[i].Prefix = DefaultPinsPrefix
		}
		for _, g := range p.IO[i].Groups {
			if g.Pins == nil {
				continue
			}
			if err := naming.Validate(naming.KindPinGroup, g.Name); err != nil {
				return nil, err
			}
			for _, pin := range g.Pins {
				if err := naming.Validate(naming.KindPin, pin.Name); err != nil {
					return nil, fmt.Errorf("pin group %s: %w", g.Name, err)
				}
			}
		}
	}
	return &p, nil
}

// LoadPins reads and parses a pins file.
func LoadPins(path string) (*RawPins, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	p, err := ParsePins(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// References maps each pin name to the C expression addressing it,
// "&<prefix>.<group>.<pin>". A later pin with the same name wins.
func (p *RawPins) References() map[string]string {
	refs := make(map[string]string)
	if p == nil {
		return refs
	}
	for _, root := range p.IO {
		for _, g := range root.Groups {
			for _, pin := range g.Pins {
				refs[pin.Name] = "&" + root.Prefix + "." + g.Name + "." + pin.Name
			}
		}
	}
	return refs
}
