// Package binjson converts JSON documents to and from the compact binary form
// that devices load as configuration blobs.
//
// A binary document is a CBOR sequence of two items: a Header and the
// document itself. Objects are written as CBOR maps in document key order, so
// decoding gives back exactly the structure that was encoded.
package binjson

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"

	"github.com/iocafe/iocomgen/pkg/jsondoc"
)

// Magic identifies a binary JSON blob.
const Magic = "IOCJ"

// FormatVersion is the version written into new headers.
const FormatVersion = 1

// maxDepth bounds container nesting when decoding untrusted input.
const maxDepth = 256

var (
	ErrBadMagic    = errors.New("not a binary JSON document")
	ErrVersion     = errors.New("unsupported binary JSON version")
	ErrUnsupported = errors.New("CBOR item has no JSON equivalent")
	ErrTooDeep     = errors.New("document nesting too deep")
)

// CBOR major types used by the document encoding.
const (
	majorUint   = 0
	majorNegInt = 1
	majorBytes  = 2
	majorText   = 3
	majorArray  = 4
	majorMap    = 5
	majorTag    = 6
	majorSimple = 7
)

// Header precedes the document in a binary JSON blob.
type Header struct {
	Magic   string `cbor:"1,keyasint"`
	Version uint8  `cbor:"2,keyasint"`
	Title   string `cbor:"3,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		ShortestFloat: cbor.ShortestFloatNone,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create binjson CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthForbidden,
		MaxNestedLevels: maxDepth,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create binjson CBOR decoder mode: %v", err))
	}
}

// EncodeOptions controls Encode.
type EncodeOptions struct {
	// Title is stored in the header. Empty titles are omitted.
	Title string

	// Hasher, when set, replaces plain text "password" values before
	// encoding. The input document is not modified.
	Hasher PasswordHasher
}

// Encode produces the binary form of doc.
func Encode(doc any, opts EncodeOptions) ([]byte, error) {
	if opts.Hasher != nil {
		var err error
		if doc, err = HashPasswords(doc, opts.Hasher); err != nil {
			return nil, err
		}
	}

	out, err := encMode.Marshal(Header{Magic: Magic, Version: FormatVersion, Title: opts.Title})
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	return appendValue(out, doc)
}

// Decode parses a binary JSON blob.
func Decode(data []byte) (any, Header, error) {
	var hdr Header
	rest, err := decMode.UnmarshalFirst(data, &hdr)
	if err != nil {
		return nil, Header{}, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if hdr.Magic != Magic {
		return nil, Header{}, ErrBadMagic
	}
	if hdr.Version != FormatVersion {
		return nil, hdr, fmt.Errorf("%w: %d", ErrVersion, hdr.Version)
	}

	doc, rest, err := decodeValue(rest, 0)
	if err != nil {
		return nil, hdr, err
	}
	if len(rest) != 0 {
		return nil, hdr, fmt.Errorf("%d bytes of trailing data", len(rest))
	}
	return doc, hdr, nil
}

func appendValue(out []byte, v any) ([]byte, error) {
	switch t := v.(type) {
	case []any:
		out = appendHead(out, majorArray, uint64(len(t)))
		for i, e := range t {
			var err error
			if out, err = appendValue(out, e); err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
		}
		return out, nil
	case *jsondoc.Object:
		out = appendHead(out, majorMap, uint64(t.Len()))
		for _, f := range t.Fields() {
			var err error
			if out, err = appendScalar(out, f.Key); err != nil {
				return nil, err
			}
			if out, err = appendValue(out, f.Value); err != nil {
				return nil, fmt.Errorf("key %q: %w", f.Key, err)
			}
		}
		return out, nil
	case nil, bool, int64, int, float64, string:
		return appendScalar(out, t)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func appendScalar(out []byte, v any) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(out, b...), nil
}

// appendHead writes a CBOR initial byte with its argument in the shortest form.
func appendHead(out []byte, major byte, n uint64) []byte {
	ib := major << 5
	switch {
	case n < 24:
		return append(out, ib|byte(n))
	case n <= math.MaxUint8:
		return append(out, ib|24, byte(n))
	case n <= math.MaxUint16:
		return binary.BigEndian.AppendUint16(append(out, ib|25), uint16(n))
	case n <= math.MaxUint32:
		return binary.BigEndian.AppendUint32(append(out, ib|26), uint32(n))
	default:
		return binary.BigEndian.AppendUint64(append(out, ib|27), n)
	}
}

// readHead parses the initial byte and argument of a definite-length item.
func readHead(data []byte) (major byte, n uint64, size int, err error) {
	if len(data) == 0 {
		return 0, 0, 0, errors.New("unexpected end of data")
	}
	major = data[0] >> 5
	info := data[0] & 0x1f
	switch {
	case info < 24:
		return major, uint64(info), 1, nil
	case info == 24 && len(data) >= 2:
		return major, uint64(data[1]), 2, nil
	case info == 25 && len(data) >= 3:
		return major, uint64(binary.BigEndian.Uint16(data[1:])), 3, nil
	case info == 26 && len(data) >= 5:
		return major, uint64(binary.BigEndian.Uint32(data[1:])), 5, nil
	case info == 27 && len(data) >= 9:
		return major, binary.BigEndian.Uint64(data[1:]), 9, nil
	case info == 31:
		return 0, 0, 0, fmt.Errorf("%w: indefinite length item", ErrUnsupported)
	default:
		return 0, 0, 0, errors.New("truncated item head")
	}
}

func decodeValue(data []byte, depth int) (any, []byte, error) {
	if depth > maxDepth {
		return nil, nil, ErrTooDeep
	}
	major, n, size, err := readHead(data)
	if err != nil {
		return nil, nil, err
	}

	switch major {
	case majorUint:
		var u uint64
		rest, err := decMode.UnmarshalFirst(data, &u)
		if err != nil {
			return nil, nil, err
		}
		if u > math.MaxInt64 {
			return nil, nil, fmt.Errorf("integer %d overflows int64", u)
		}
		return int64(u), rest, nil
	case majorNegInt:
		var i int64
		rest, err := decMode.UnmarshalFirst(data, &i)
		return i, rest, err
	case majorText:
		var s string
		rest, err := decMode.UnmarshalFirst(data, &s)
		return s, rest, err
	case majorSimple:
		var v any
		rest, err := decMode.UnmarshalFirst(data, &v)
		if err != nil {
			return nil, nil, err
		}
		switch v.(type) {
		case nil, bool, float64:
			return v, rest, nil
		default:
			return nil, nil, fmt.Errorf("%w: simple value %v", ErrUnsupported, v)
		}
	case majorArray:
		rest := data[size:]
		if n > uint64(len(rest)) {
			return nil, nil, errors.New("array length exceeds data")
		}
		arr := make([]any, 0, n)
		for i := uint64(0); i < n; i++ {
			var e any
			if e, rest, err = decodeValue(rest, depth+1); err != nil {
				return nil, nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr = append(arr, e)
		}
		return arr, rest, nil
	case majorMap:
		rest := data[size:]
		if n > uint64(len(rest)) {
			return nil, nil, errors.New("map length exceeds data")
		}
		obj := jsondoc.NewObject()
		for i := uint64(0); i < n; i++ {
			var key string
			if rest, err = decMode.UnmarshalFirst(rest, &key); err != nil {
				return nil, nil, fmt.Errorf("map key: %w", err)
			}
			if _, dup := obj.Get(key); dup {
				return nil, nil, fmt.Errorf("duplicate key %q", key)
			}
			var v any
			if v, rest, err = decodeValue(rest, depth+1); err != nil {
				return nil, nil, fmt.Errorf("key %q: %w", key, err)
			}
			obj.Set(key, v)
		}
		return obj, rest, nil
	case majorBytes, majorTag:
		return nil, nil, fmt.Errorf("%w: major type %d", ErrUnsupported, major)
	default:
		return nil, nil, fmt.Errorf("%w: major type %d", ErrUnsupported, major)
	}
}
