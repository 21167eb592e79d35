// Package paramconv turns parameter files into a signal map, so that every
// parameter can be read from the device (exp) and written by a controller
// (imp, with a "set_" prefix).
package paramconv

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iocafe/iocomgen/pkg/jsondoc"
	"github.com/iocafe/iocomgen/pkg/layout"
	"github.com/iocafe/iocomgen/pkg/schema"
)

// SetPrefix marks the imp copy of a parameter.
const SetPrefix = "set_"

// PFlag returns the parameter flags of signals generated from block.
func PFlag(block string) int64 {
	if block == schema.BlockPersistent {
		return layout.PFlagIsParameter | layout.PFlagIsPersistent
	}
	return layout.PFlagIsParameter
}

// Convert merges one or more parameter document trees into a signals
// document. Groups with the same name are merged; parameter objects are
// copied with all their keys. The device name is taken from the last
// document that has one.
func Convert(docs ...any) (*jsondoc.Object, error) {
	var exp, imp []any
	name := ""

	for i, doc := range docs {
		p, err := schema.ParseParameters(doc)
		if err != nil {
			return nil, fmt.Errorf("parameter document %d: %w", i+1, err)
		}
		if p.Name != "" {
			name = p.Name
		}

		root := doc.(*jsondoc.Object)
		for _, nb := range p.Blocks() {
			blk, _ := root.GetObject(nb.Name)
			groups, _ := blk.GetArray("groups")
			for _, g := range groups {
				exp, imp = convertGroup(g.(*jsondoc.Object), PFlag(nb.Name), exp, imp)
			}
		}
	}

	out := jsondoc.NewObject()
	if name != "" {
		out.Set("name", name)
	}
	out.Set("mblk", []any{
		block("exp", "up", exp),
		block("imp", "down", imp),
	})
	return out, nil
}

func block(name, flags string, groups []any) *jsondoc.Object {
	if groups == nil {
		groups = []any{}
	}
	return jsondoc.NewObject(
		jsondoc.Field{Key: "name", Value: name},
		jsondoc.Field{Key: "flags", Value: flags},
		jsondoc.Field{Key: "groups", Value: groups},
	)
}

func convertGroup(g *jsondoc.Object, pflag int64, exp, imp []any) ([]any, []any) {
	name, _ := g.GetString("name")
	params, _ := g.GetArray("parameters")

	exp, expSignals := group(exp, name)
	imp, impSignals := group(imp, name)
	for _, p := range params {
		po := p.(*jsondoc.Object)
		pn, _ := po.GetString("name")

		e := jsondoc.Clone(po).(*jsondoc.Object)
		e.Set("pflag", pflag)
		expSignals.add(e)

		s := jsondoc.Clone(po).(*jsondoc.Object)
		s.Set("name", SetPrefix+pn)
		s.Set("pflag", pflag)
		impSignals.add(s)
	}
	return exp, imp
}

// signalList appends to the "signals" array of a group object.
type signalList struct{ group *jsondoc.Object }

func (l signalList) add(s *jsondoc.Object) {
	arr, _ := l.group.GetArray("signals")
	l.group.Set("signals", append(arr, s))
}

// group finds the group called name, appending a new one when missing.
func group(groups []any, name string) ([]any, signalList) {
	for _, g := range groups {
		o := g.(*jsondoc.Object)
		if n, _ := o.GetString("name"); n == name {
			return groups, signalList{o}
		}
	}
	o := jsondoc.NewObject(
		jsondoc.Field{Key: "name", Value: name},
		jsondoc.Field{Key: "signals", Value: []any{}},
	)
	return append(groups, o), signalList{o}
}

// DefaultOutput returns where the converted signals of source are written
// when no output path is given: <dir>/intermediate/<name>-as-signals<ext>.
func DefaultOutput(source string) string {
	dir, file := filepath.Split(source)
	ext := filepath.Ext(file)
	return filepath.Join(dir, "intermediate", strings.TrimSuffix(file, ext)+"-as-signals"+ext)
}
