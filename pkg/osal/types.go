package osal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType is returned when a type name is not part of the type table.
var ErrUnknownType = errors.New("unknown signal type")

// Type identifies a primitive signal type.
type Type uint8

const (
	TypeUndef Type = iota
	TypeBoolean
	TypeChar
	TypeUChar
	TypeShort
	TypeUShort
	TypeInt
	TypeUInt
	TypeInt64
	TypeLong
	TypeFloat
	TypeDouble
	TypeDec01
	TypeDec001
	TypeStr
	TypeObject
	TypePointer
)

type typeInfo struct {
	name string
	size int
}

// Size excludes the signal state byte.
var typeTable = [...]typeInfo{
	TypeUndef:   {"undef", 0},
	TypeBoolean: {"boolean", 1},
	TypeChar:    {"char", 1},
	TypeUChar:   {"uchar", 1},
	TypeShort:   {"short", 2},
	TypeUShort:  {"ushort", 2},
	TypeInt:     {"int", 4},
	TypeUInt:    {"uint", 4},
	TypeInt64:   {"int64", 8},
	TypeLong:    {"long", 8},
	TypeFloat:   {"float", 4},
	TypeDouble:  {"double", 8},
	TypeDec01:   {"dec01", 2},
	TypeDec001:  {"dec001", 2},
	TypeStr:     {"str", 1},
	TypeObject:  {"object", 0},
	TypePointer: {"pointer", 0},
}

// Types returns all known types in table order.
func Types() []Type {
	out := make([]Type, len(typeTable))
	for i := range typeTable {
		out[i] = Type(i)
	}
	return out
}

// ParseType looks up a type by its JSON name ("ushort", "float", ...).
func ParseType(name string) (Type, error) {
	for i, ti := range typeTable {
		if ti.name == name {
			return Type(i), nil
		}
	}
	return TypeUndef, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// String returns the JSON name of the type.
func (t Type) String() string {
	if int(t) < len(typeTable) {
		return typeTable[t].name
	}
	return "UNKNOWN"
}

// Size returns the payload width of one element in bytes.
func (t Type) Size() int {
	if int(t) < len(typeTable) {
		return typeTable[t].size
	}
	return 0
}

// CFlag returns the type flag constant, e.g. "OS_USHORT".
func (t Type) CFlag() string {
	return "OS_" + strings.ToUpper(t.String())
}

// CType returns the C element type, e.g. "os_ushort". Strings are os_char arrays.
func (t Type) CType() string {
	if t == TypeStr {
		return "os_char"
	}
	return "os_" + t.String()
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MemorySize returns the number of bytes a signal of n elements occupies in a
// memory block, including its state byte. A scalar boolean lives entirely in
// the state byte; boolean arrays are bit packed.
func MemorySize(t Type, n int) int {
	if n < 1 {
		n = 1
	}
	if t == TypeBoolean {
		if n == 1 {
			return 1
		}
		return (n+7)>>3 + 1
	}
	return n*t.Size() + 1
}
