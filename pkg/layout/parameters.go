package layout

import (
	"fmt"

	"github.com/iocafe/iocomgen/pkg/osal"
	"github.com/iocafe/iocomgen/pkg/schema"
)

// Parameter is a parameter with its resolved type and its place in the
// persistent storage buffer.
type Parameter struct {
	Block  string    `json:"block" yaml:"block"`
	Group  string    `json:"group" yaml:"group"`
	Name   string    `json:"name" yaml:"name"`
	Type   osal.Type `json:"type" yaml:"type"`
	Array  int       `json:"array" yaml:"array"`
	Offset int       `json:"offset" yaml:"offset"`
	Bytes  int       `json:"bytes" yaml:"bytes"`
	Init   any       `json:"init,omitempty" yaml:"init,omitempty"`
}

// ParameterBlock is a laid out parameter block.
type ParameterBlock struct {
	Name       string      `json:"name" yaml:"name"`
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
	Size       int         `json:"size" yaml:"size"`
}

// ComputeParameterBlock resolves types of one parameter block and gives each
// parameter a storage offset starting at start. Types follow the same group
// rules as signals so that parameters and their signals agree.
func ComputeParameterBlock(name string, blk *schema.RawParameterBlock, start int) (*ParameterBlock, error) {
	pb := &ParameterBlock{Name: name}
	if blk == nil {
		return pb, nil
	}
	pb.Title = blk.Title

	offset := start
	for _, g := range blk.Groups {
		typ := GroupDefaultType(g.Name)
		for _, rp := range g.Parameters {
			if rp.Type != "" {
				t, err := osal.ParseType(rp.Type)
				if err != nil {
					return nil, fmt.Errorf("%s parameter %s: %w", name, rp.Name, err)
				}
				typ = t
			}
			p := Parameter{
				Block:  name,
				Group:  g.Name,
				Name:   rp.Name,
				Type:   typ,
				Array:  max(rp.Array, 1),
				Offset: offset,
				Init:   rp.Init,
			}
			p.Bytes = osal.MemorySize(p.Type, p.Array)
			offset += p.Bytes
			pb.Parameters = append(pb.Parameters, p)
		}
	}
	pb.Size = offset - start
	return pb, nil
}

// ComputeParameters lays out the persistent blocks of one or more parameter
// files into a single storage buffer. Offsets continue from block to block.
// It returns the laid out blocks and the total buffer size.
func ComputeParameters(blocks ...*schema.RawParameterBlock) ([]*ParameterBlock, int, error) {
	var out []*ParameterBlock
	total := 0
	for _, blk := range blocks {
		pb, err := ComputeParameterBlock(schema.BlockPersistent, blk, total)
		if err != nil {
			return nil, 0, err
		}
		total += pb.Size
		out = append(out, pb)
	}
	return out, total, nil
}
