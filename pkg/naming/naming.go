// Package naming holds the identifier rules of the iocom runtime and the
// helpers that turn names into C identifiers.
package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Buffer sizes of the runtime name fields. A name must be shorter than its
// buffer so the terminating zero fits.
const (
	SignalNameSz   = 32
	NameSz         = 16
	PinNameSz      = 64
	PinGroupNameSz = 64
)

var (
	ErrNameMissing = errors.New("name is not defined")
	ErrNameTooLong = errors.New("name is too long")
	ErrNameCharset = errors.New("name contains invalid characters")
)

// Kind selects the rule set for a name.
type Kind uint8

const (
	KindDevice Kind = iota
	KindMemoryBlock
	KindSignal
	KindParameter
	KindAssembly
	KindAssemblyType
	KindPin
	KindPinGroup
)

type rule struct {
	label        string
	size         int
	allowNumbers bool
}

var rules = map[Kind]rule{
	KindDevice:       {"Device", NameSz, false},
	KindMemoryBlock:  {"Memory block", NameSz, true},
	KindSignal:       {"Signal", SignalNameSz, true},
	KindParameter:    {"Parameter", SignalNameSz, true},
	KindAssembly:     {"Assembly", NameSz, true},
	KindAssemblyType: {"Assembly type", NameSz, true},
	KindPin:          {"Pin", PinNameSz, true},
	KindPinGroup:     {"Pin group", PinGroupNameSz, true},
}

var (
	alnumRe   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	lettersRe = regexp.MustCompile(`^[A-Za-z_]+$`)
)

// String returns the label used in error messages.
func (k Kind) String() string {
	if r, ok := rules[k]; ok {
		return r.label
	}
	return "Unknown"
}

// MaxLen returns the longest accepted name for the kind.
func (k Kind) MaxLen() int {
	return rules[k].size - 1
}

// NameError reports a name that breaks the rules for its kind.
type NameError struct {
	Kind Kind
	Name string
	Err  error
}

func (e *NameError) Error() string {
	r := rules[e.Kind]
	switch {
	case errors.Is(e.Err, ErrNameMissing):
		return fmt.Sprintf("%s name is not defined", r.label)
	case errors.Is(e.Err, ErrNameTooLong):
		return fmt.Sprintf("%s name %q is too long, maximum is %d characters", r.label, e.Name, r.size-1)
	case r.allowNumbers:
		return fmt.Sprintf("%s name %q may contain only characters 'A'-'Z', 'a'-'z', '0'-'9' and underscore '_'", r.label, e.Name)
	default:
		return fmt.Sprintf("%s name %q may contain only characters 'A'-'Z', 'a'-'z' and underscore '_'", r.label, e.Name)
	}
}

func (e *NameError) Unwrap() error { return e.Err }

// Validate checks name against the length and character rules of kind.
func Validate(kind Kind, name string) error {
	r, ok := rules[kind]
	if !ok {
		return fmt.Errorf("unknown name kind %d", kind)
	}
	if name == "" {
		return &NameError{Kind: kind, Name: name, Err: ErrNameMissing}
	}
	if len(name) >= r.size {
		return &NameError{Kind: kind, Name: name, Err: ErrNameTooLong}
	}
	re := lettersRe
	if r.allowNumbers {
		re = alnumRe
	}
	if !re.MatchString(name) {
		return &NameError{Kind: kind, Name: name, Err: ErrNameCharset}
	}
	return nil
}

// DefineName joins parts with underscores and upper-cases the result:
// DefineName("gina", "exp", "MBLK_SZ") = "GINA_EXP_MBLK_SZ".
func DefineName(parts ...string) string {
	return strings.ToUpper(strings.Join(parts, "_"))
}

// HeaderGuard returns the include guard macro for a header path:
// "config/include/signals.h" -> "IOC_SIGNALS_INCLUDED".
func HeaderGuard(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return "IOC_" + strings.ToUpper(sanitize(base)) + "_INCLUDED"
}

// StripSetPrefix removes the "set_" prefix that marks the command side of a
// parameter signal.
func StripSetPrefix(name string) string {
	return strings.TrimPrefix(name, "set_")
}

// sanitize replaces characters that cannot appear in a C identifier.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
