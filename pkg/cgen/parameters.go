package cgen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/iocafe/iocomgen/pkg/layout"
	"github.com/iocafe/iocomgen/pkg/naming"
	"github.com/iocafe/iocomgen/pkg/osal"
	"github.com/iocafe/iocomgen/pkg/schema"
)

// AutosaveIntervalMs is how long changed persistent parameters wait before
// they are written to flash.
const AutosaveIntervalMs = 3000

// ParameterOptions controls GenerateParameters.
type ParameterOptions struct {
	// DeviceName replaces the name given in the parameter files.
	DeviceName string

	// HeaderPath names the header file; it only sets the include guard.
	HeaderPath string
}

// GenerateParameters writes the parameter structures and the initialize,
// load, save and autosave functions for one device. Several files may
// contribute parameters; persistent storage offsets continue across them.
func GenerateParameters(files []*schema.RawParameters, opts ParameterOptions) (*Output, error) {
	dev := opts.DeviceName
	for _, f := range files {
		if dev == "" {
			dev = f.Name
		}
	}
	if dev == "" {
		dev = FallbackDeviceName
	}
	if err := naming.Validate(naming.KindDevice, dev); err != nil {
		return nil, err
	}

	var persistent []*schema.RawParameterBlock
	byBlock := make(map[string][]layout.Parameter)
	titles := make(map[string]string)
	for _, f := range files {
		for _, nb := range f.Blocks() {
			pb, err := layout.ComputeParameterBlock(nb.Name, nb.Block, 0)
			if err != nil {
				return nil, err
			}
			byBlock[nb.Name] = append(byBlock[nb.Name], pb.Parameters...)
			if titles[nb.Name] == "" {
				titles[nb.Name] = pb.Title
			}
			if nb.Name == schema.BlockPersistent {
				persistent = append(persistent, nb.Block)
			}
		}
	}

	stored, size, err := layout.ComputeParameters(persistent...)
	if err != nil {
		return nil, err
	}

	fn := prmFunctionsData{Device: dev, BufSize: max(size, 1), AutosaveMs: AutosaveIntervalMs}
	for _, pb := range stored {
		for _, p := range pb.Parameters {
			fn.Copy = append(fn.Copy, prmCopy{Signal: "sigs->exp." + p.Name, Offset: p.Offset, Bytes: p.Bytes})
		}
	}
	for _, block := range []string{schema.BlockPersistent, schema.BlockVolatile} {
		for _, p := range byBlock[block] {
			line, err := initLine(p)
			if err != nil {
				return nil, err
			}
			if line != "" {
				fn.Init = append(fn.Init, line)
			}
		}
	}

	var c, h strings.Builder
	c.WriteString(Banner("parameters") + "\n")
	renderTemplate(&c, "prmFunctions", fn)

	renderTemplate(&h, "headerOpen", headerData{Banner: Banner("parameters"), Guard: guard(opts.HeaderPath, "parameters")})
	for _, block := range []string{schema.BlockPersistent, schema.BlockVolatile, schema.BlockNetwork} {
		params := byBlock[block]
		if len(params) == 0 {
			continue
		}
		data := prmStructData{Name: dev + "_" + block, Title: titles[block]}
		for _, p := range params {
			data.Parameters = append(data.Parameters, prmField{Name: p.Name, Type: p.Type, Array: p.Array})
		}
		renderTemplate(&h, "prmStruct", data)
	}
	renderTemplate(&h, "prmPrototypes", dev)
	renderTemplate(&h, "headerClose", nil)

	return &Output{C: c.String(), H: h.String()}, nil
}

// initLine returns the C statement that sets the default value of p, or ""
// when p has none.
func initLine(p layout.Parameter) (string, error) {
	if p.Init == nil {
		return "", nil
	}
	sig := "&sigs->exp." + p.Name

	if p.Type == osal.TypeStr {
		s, err := cValue(p.Init)
		if err != nil {
			return "", fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		return fmt.Sprintf("ioc_set_str(%s, %s);", sig, cQuote(s)), nil
	}

	if p.Array > 1 {
		values, err := listValues(p.Init)
		if err != nil {
			return "", fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		data := "ioc_idata_" + p.Name
		return fmt.Sprintf("static OS_CONST %s %s[] = {%s};\n  ioc_set_array(%s, %s);",
			p.Type.CType(), data, strings.Join(values, ", "), sig, data), nil
	}

	v, err := cValue(p.Init)
	if err != nil {
		return "", fmt.Errorf("parameter %s: %w", p.Name, err)
	}
	return fmt.Sprintf("ioc_set(%s, %s);", sig, v), nil
}

// cValue renders a scalar default as C text.
func cValue(v any) (string, error) {
	switch t := v.(type) {
	case json.Number:
		return t.String(), nil
	case string:
		return strings.TrimSpace(t), nil
	case bool:
		if t {
			return "OS_TRUE", nil
		}
		return "OS_FALSE", nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported init value %v", v)
	}
}

// listValues accepts a JSON list or a comma separated string.
func listValues(v any) ([]string, error) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case string:
		for _, s := range strings.Split(t, ",") {
			items = append(items, s)
		}
	default:
		items = []any{v}
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		s, err := cValue(it)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// cQuote returns s as a C string literal.
func cQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
