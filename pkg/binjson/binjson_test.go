package binjson

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iocafe/iocomgen/pkg/jsondoc"
)

const networkDoc = `{
    "network": {
        "connect": [
            {"transport": "tls", "parameters": "192.168.1.220", "flags": "connect,down,dynamic"}
        ],
        "nic": [{"dhcp": true, "ip": "192.168.1.201"}],
        "security": {"certchainfile": "myhome-bundle.crt"},
        "account": [{"user": "root", "password": "pass"}, {"user": "ispy", "password": "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"}]
    },
    "gain": 1.5,
    "whole": 2.0,
    "count": -12,
    "large": 4294967296,
    "none": null,
    "empty": [],
    "nothing": {}
}`

func parse(t *testing.T, text string) any {
	t.Helper()
	v, err := jsondoc.Parse([]byte(text))
	require.NoError(t, err)
	return v
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	doc := parse(t, networkDoc)

	data, err := Encode(doc, EncodeOptions{Title: "network-defaults.json"})
	require.NoError(t, err)

	back, hdr, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, Magic, hdr.Magic)
	assert.Equal(t, uint8(FormatVersion), hdr.Version)
	assert.Equal(t, "network-defaults.json", hdr.Title)
	assert.True(t, jsondoc.Equal(doc, back), "binary round trip changed the document")

	// Key order survives even though CBOR maps are unordered.
	assert.Equal(t, []string{"network", "gain", "whole", "count", "large", "none", "empty", "nothing"},
		back.(*jsondoc.Object).Keys())

	text, err := jsondoc.Marshal(back, jsondoc.DefaultIndent)
	require.NoError(t, err)
	assert.Contains(t, string(text), `"whole": 2.0`)
}

func TestEncode_Deterministic(t *testing.T) {
	doc := parse(t, networkDoc)
	a, err := Encode(doc, EncodeOptions{})
	require.NoError(t, err)
	b, err := Encode(doc, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncode_LongContainers(t *testing.T) {
	list := make([]any, 300)
	for i := range list {
		list[i] = int64(i)
	}
	doc := jsondoc.NewObject(jsondoc.Field{Key: "values", Value: list})

	data, err := Encode(doc, EncodeOptions{})
	require.NoError(t, err)
	back, _, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, jsondoc.Equal(doc, back))
}

func TestEncode_UnsupportedValue(t *testing.T) {
	_, err := Encode(jsondoc.NewObject(jsondoc.Field{Key: "ch", Value: make(chan int)}), EncodeOptions{})
	assert.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	valid, err := Encode(parse(t, `{"a": [1, 2]}`), EncodeOptions{})
	require.NoError(t, err)

	otherMagic, err := encMode.Marshal(Header{Magic: "NOPE", Version: FormatVersion})
	require.NoError(t, err)

	futureVersion, err := encMode.Marshal(Header{Magic: Magic, Version: 9})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrBadMagic},
		{"plain JSON", []byte(`{"a": 1}`), ErrBadMagic},
		{"wrong magic", append(otherMagic, 0xf6), ErrBadMagic},
		{"future version", append(futureVersion, 0xf6), ErrVersion},
		{"byte string", append(append([]byte{}, valid[:len(valid)-6]...), 0x41, 0x00), nil},
		{"truncated", valid[:len(valid)-1], nil},
		{"trailing", append(append([]byte{}, valid...), 0x01), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.data)
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			}
		})
	}
}

// fastHasher keeps tests quick; the format is the same as production.
func fastHasher() *Argon2Hasher {
	return &Argon2Hasher{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
}

func TestHashPasswords(t *testing.T) {
	doc := parse(t, networkDoc)

	hashed, err := HashPasswords(doc, fastHasher())
	require.NoError(t, err)

	net, _ := hashed.(*jsondoc.Object).GetObject("network")
	accounts, _ := net.GetArray("account")
	require.Len(t, accounts, 2)

	root, _ := accounts[0].(*jsondoc.Object).GetString("password")
	assert.True(t, strings.HasPrefix(root, "$argon2id$v=19$m=64,t=1,p=1$"), root)
	ok, err := VerifyPassword("pass", root)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = VerifyPassword("wrong", root)
	require.NoError(t, err)
	assert.False(t, ok)

	kept, _ := accounts[1].(*jsondoc.Object).GetString("password")
	assert.Equal(t, "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", kept)

	// The source document keeps its plain text value.
	srcNet, _ := doc.(*jsondoc.Object).GetObject("network")
	srcAccounts, _ := srcNet.GetArray("account")
	plain, _ := srcAccounts[0].(*jsondoc.Object).GetString("password")
	assert.Equal(t, "pass", plain)
}

func TestEncode_WithHasher(t *testing.T) {
	data, err := Encode(parse(t, `{"account": {"password": "secret"}}`), EncodeOptions{Hasher: fastHasher()})
	require.NoError(t, err)

	back, _, err := Decode(data)
	require.NoError(t, err)
	acc, _ := back.(*jsondoc.Object).GetObject("account")
	pw, _ := acc.GetString("password")
	ok, err := VerifyPassword("secret", pw)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPassword_BadFormat(t *testing.T) {
	for _, enc := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", "$argon2id$v=19$m=x$c2FsdA$aGFzaA"} {
		_, err := VerifyPassword("x", enc)
		assert.ErrorIs(t, err, ErrHashFormat, enc)
	}
}
