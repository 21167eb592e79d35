// Package schema loads the signal, pin and parameter configuration files and
// checks them against the embedded JSON Schemas.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Kind names a configuration file type.
type Kind string

const (
	KindSignals    Kind = "signals"
	KindPins       Kind = "pins"
	KindParameters Kind = "parameters"
)

// Kinds lists every kind in a fixed order.
func Kinds() []Kind {
	return []Kind{KindSignals, KindPins, KindParameters}
}

var (
	ErrUnknownKind = errors.New("unknown configuration kind")
	ErrInvalid     = errors.New("schema validation failed")
	ErrMissingKey  = errors.New("missing key")
)

// Validator checks documents against the compiled schemas.
type Validator struct {
	schemas map[Kind]*jsonschema.Schema
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	for _, k := range Kinds() {
		name := string(k) + ".json"
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema resource %s: %w", name, err)
		}
	}

	v := &Validator{schemas: make(map[Kind]*jsonschema.Schema)}
	for _, k := range Kinds() {
		s, err := compiler.Compile(string(k) + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", k, err)
		}
		v.schemas[k] = s
	}
	return v, nil
}

// Validate checks JSON text against the schema of kind.
func (v *Validator) Validate(kind Kind, data []byte) error {
	s, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, kind, err)
	}
	return nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Default returns a shared validator compiled on first use.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	return defaultValidator, defaultErr
}

// ParseKind converts a command line kind name.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
