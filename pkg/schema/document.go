package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iocafe/iocomgen/pkg/jsondoc"
)

// IsYAML reports whether path names a YAML source.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ReadDocument reads a JSON or YAML file into an ordered document tree.
func ReadDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc any
	if IsYAML(path) {
		doc, err = ParseYAML(data)
	} else {
		doc, err = jsondoc.Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// ParseYAML converts a YAML document into the same tree jsondoc.Parse
// produces, keeping mapping order.
func ParseYAML(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("empty YAML document")
	}
	return fromYAML(&root)
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		obj := jsondoc.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(k.Value, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		switch t := v.(type) {
		case int:
			return int64(t), nil
		case uint64:
			return nil, fmt.Errorf("line %d: integer %d out of range", n.Line, t)
		case nil, bool, int64, float64, string:
			return t, nil
		default:
			// Timestamps and binary scalars keep their source text.
			return n.Value, nil
		}
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

// decode validates doc against kind and decodes it into out.
func decode(kind Kind, doc any, out any) error {
	data, err := jsondoc.Marshal(doc, "")
	if err != nil {
		return err
	}

	v, err := Default()
	if err != nil {
		return err
	}
	if err := v.Validate(kind, data); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", kind, err)
	}
	return nil
}

// hasKey reports whether the object path exists in doc. Path elements are
// object keys (string) or array indexes (int).
func hasKey(doc any, path ...any) bool {
	cur := doc
	for _, p := range path {
		switch k := p.(type) {
		case string:
			obj, ok := cur.(*jsondoc.Object)
			if !ok {
				return false
			}
			if cur, ok = obj.Get(k); !ok {
				return false
			}
		case int:
			arr, ok := cur.([]any)
			if !ok || k < 0 || k >= len(arr) {
				return false
			}
			cur = arr[k]
		default:
			return false
		}
	}
	return true
}
