package binjson

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/iocafe/iocomgen/pkg/jsondoc"
)

// PasswordKey is the object key whose string values are hashed.
const PasswordKey = "password"

const argon2idPrefix = "$argon2id$"

// ErrHashFormat is returned when an encoded hash cannot be parsed.
var ErrHashFormat = errors.New("invalid argon2id hash format")

// PasswordHasher turns a plain text password into its stored form.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Argon2Hasher hashes passwords with Argon2id into the
// $argon2id$v=19$m=..,t=..,p=..$salt$hash format.
type Argon2Hasher struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// NewArgon2Hasher returns a hasher with the parameters used for device
// account files.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hash hashes password with a fresh random salt.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.Iterations, h.Memory, h.Parallelism, h.KeyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2.Version,
		h.Memory,
		h.Iterations,
		h.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches an encoded Argon2id hash.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, fmt.Errorf("%w: version %q", ErrHashFormat, parts[2])
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("%w: %v", ErrHashFormat, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrHashFormat, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("%w: hash: %v", ErrHashFormat, err)
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// HashPasswords returns a copy of doc where every string stored under a
// "password" key is hashed. Values that are already Argon2id hashes are kept.
func HashPasswords(doc any, h PasswordHasher) (any, error) {
	out := jsondoc.Clone(doc)
	if err := hashInPlace(out, h); err != nil {
		return nil, err
	}
	return out, nil
}

func hashInPlace(v any, h PasswordHasher) error {
	switch t := v.(type) {
	case *jsondoc.Object:
		for _, f := range t.Fields() {
			if s, ok := f.Value.(string); ok && f.Key == PasswordKey {
				if strings.HasPrefix(s, argon2idPrefix) {
					continue
				}
				hashed, err := h.Hash(s)
				if err != nil {
					return fmt.Errorf("hashing password: %w", err)
				}
				t.Set(f.Key, hashed)
				continue
			}
			if err := hashInPlace(f.Value, h); err != nil {
				return err
			}
		}
	case []any:
		for _, e := range t {
			if err := hashInPlace(e, h); err != nil {
				return err
			}
		}
	}
	return nil
}
