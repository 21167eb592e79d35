package schema

import (
	"fmt"

	"github.com/iocafe/iocomgen/pkg/naming"
)

// Parameter block names, in the order they are processed.
const (
	BlockPersistent = "persistent"
	BlockVolatile   = "volatile"
	BlockNetwork    = "network"
)

// RawParameters is a device parameter file.
type RawParameters struct {
	Name       string             `json:"name"`
	Persistent *RawParameterBlock `json:"persistent"`
	Volatile   *RawParameterBlock `json:"volatile"`
	Network    *RawParameterBlock `json:"network"`
}

// RawParameterBlock is one of the persistent, volatile or network blocks.
type RawParameterBlock struct {
	Title  string              `json:"title"`
	Groups []RawParameterGroup `json:"groups"`
}

// RawParameterGroup is a named group of parameters.
type RawParameterGroup struct {
	Name       string         `json:"name"`
	Parameters []RawParameter `json:"parameters"`
}

// RawParameter is a single parameter. Init holds the default value as a
// json.Number, string, bool or list; nil means no default.
type RawParameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Array int    `json:"array"`
	Init  any    `json:"init"`
}

// NamedBlock pairs a parameter block with its block name.
type NamedBlock struct {
	Name  string
	Block *RawParameterBlock
}

// Blocks returns the blocks present in the file in processing order.
func (p *RawParameters) Blocks() []NamedBlock {
	var out []NamedBlock
	for _, nb := range []NamedBlock{
		{BlockPersistent, p.Persistent},
		{BlockVolatile, p.Volatile},
		{BlockNetwork, p.Network},
	} {
		if nb.Block != nil {
			out = append(out, nb)
		}
	}
	return out
}

// ParseParameters decodes and checks a parameters document tree.
func ParseParameters(doc any) (*RawParameters, error) {
	var p RawParameters
	if err := decode(KindParameters, doc, &p); err != nil {
		return nil, err
	}

	for _, nb := range p.Blocks() {
		for gi, g := range nb.Block.Groups {
			if !hasKey(doc, nb.Name, "groups", gi, "parameters") {
				return nil, fmt.Errorf("%w: 'parameters' not found for %s group %q", ErrMissingKey, nb.Name, g.Name)
			}
			for _, prm := range g.Parameters {
				if prm.Name == "" {
					return nil, fmt.Errorf("%w: 'name' not found for parameter in %s group %q", ErrMissingKey, nb.Name, g.Name)
				}
				if err := naming.Validate(naming.KindParameter, prm.Name); err != nil {
					return nil, fmt.Errorf("%s parameters: %w", nb.Name, err)
				}
			}
		}
	}
	return &p, nil
}

// LoadParameters reads and parses a parameters file.
func LoadParameters(path string) (*RawParameters, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	p, err := ParseParameters(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
