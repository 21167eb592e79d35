package cgen

import (
	"errors"
	"fmt"
	"strings"
)

// BytesPerRow is the number of bytes per line of a generated byte array.
const BytesPerRow = 12

// ErrBadIdentifier is returned for variable names that are not C identifiers.
var ErrBadIdentifier = errors.New("not a C identifier")

// BinToC renders data as a C byte array named varName. The array is meant
// to be compiled into firmware and passed with sizeof() to the loader.
func BinToC(data []byte, varName string) (string, error) {
	if !isIdentifier(varName) {
		return "", fmt.Errorf("%w: %q", ErrBadIdentifier, varName)
	}

	d := binArrayData{Banner: Banner("bin2c"), Var: varName, Size: len(data)}
	for len(data) > 0 {
		n := min(BytesPerRow, len(data))
		d.Rows = append(d.Rows, data[:n])
		data = data[n:]
	}

	var b strings.Builder
	renderTemplate(&b, "binArray", d)
	return b.String(), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
