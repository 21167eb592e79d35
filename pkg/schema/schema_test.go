package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iocafe/iocomgen/pkg/jsondoc"
	"github.com/iocafe/iocomgen/pkg/naming"
)

const candySignals = `{
  "name": "candy",
  "title": "IO signals for candy",
  "mblk": [
    {
      "name": "exp",
      "flags": "up",
      "groups": [
        {"name": "inputs", "signals": [{"name": "ambient", "type": "uint"}]},
        {"name": "camera", "signals": [{"name": "rec_buf", "type": "uchar", "array": 10000, "addr": 17}]}
      ]
    },
    {
      "name": "imp",
      "handle": "&my_imp",
      "groups": [{"name": "outputs", "signals": [{"name": "on"}]}]
    }
  ],
  "assembly": [{"name": "camera", "type": "cam_ring", "exp": "exp.rec_", "imp": "imp.rec_"}]
}`

func mustParse(t *testing.T, text string) any {
	t.Helper()
	doc, err := jsondoc.Parse([]byte(text))
	require.NoError(t, err)
	return doc
}

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals(mustParse(t, candySignals))
	require.NoError(t, err)

	assert.Equal(t, "candy", s.Name)
	require.Len(t, s.Mblk, 2)
	assert.Equal(t, "up", s.Mblk[0].Flags)
	assert.Equal(t, "&my_imp", s.Mblk[1].Handle)

	buf := s.Mblk[0].Groups[1].Signals[0]
	require.NotNil(t, buf.Addr)
	assert.Equal(t, 17, *buf.Addr)
	assert.Equal(t, 10000, buf.Array)
	assert.Nil(t, s.Mblk[0].Groups[0].Signals[0].Addr)

	require.Len(t, s.Assembly, 1)
	assert.False(t, s.Assembly[0].IsFlat())
}

func TestParseSignals_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"no mblk", `{"name": "x"}`, ErrMissingKey},
		{"no groups", `{"mblk": [{"name": "exp"}]}`, ErrMissingKey},
		{"unnamed signal", `{"mblk": [{"name": "exp", "groups": [{"name": "g", "signals": [{"type": "int"}]}]}]}`, ErrMissingKey},
		{"long signal name", `{"mblk": [{"name": "exp", "groups": [{"name": "g", "signals": [{"name": "a_very_long_signal_name_over_the_limit"}]}]}]}`, naming.ErrNameTooLong},
		{"bad block name", `{"mblk": [{"name": "ex-p", "groups": []}]}`, naming.ErrNameCharset},
		{"array is text", `{"mblk": [{"name": "exp", "groups": [{"name": "g", "signals": [{"name": "a", "array": "8"}]}]}]}`, ErrInvalid},
		{"negative addr", `{"mblk": [{"name": "exp", "groups": [{"name": "g", "signals": [{"name": "a", "addr": -1}]}]}]}`, ErrInvalid},
		{"unknown assembly", `{"mblk": [], "assembly": [{"name": "cam", "type": "cam_spiral"}]}`, ErrUnknownAssembly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSignals(mustParse(t, tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseSignals_DefaultBlockName(t *testing.T) {
	s, err := ParseSignals(mustParse(t, `{"mblk": [{"groups": []}]}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultMblkName, s.Mblk[0].Name)
}

func TestParsePins_References(t *testing.T) {
	p, err := ParsePins(mustParse(t, `{
		"name": "pins",
		"io": [
			{"name": "gina", "groups": [
				{"name": "inputs", "pins": [{"name": "dip_switch_3"}]},
				{"name": "analog_inputs", "pins": [{"name": "ambient"}]}
			]},
			{"prefix": "cam", "groups": [{"name": "pwm", "pins": [{"name": "illumination"}]}]}
		]
	}`))
	require.NoError(t, err)

	refs := p.References()
	assert.Equal(t, map[string]string{
		"dip_switch_3": "&pins.inputs.dip_switch_3",
		"ambient":      "&pins.analog_inputs.ambient",
		"illumination": "&cam.pwm.illumination",
	}, refs)
}

func TestParsePins_Errors(t *testing.T) {
	_, err := ParsePins(mustParse(t, `{"name": "pins"}`))
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = ParsePins(mustParse(t, `{"io": [{"groups": [{"name": "in puts", "pins": [{"name": "a"}]}]}]}`))
	assert.ErrorIs(t, err, naming.ErrNameCharset)
}

func TestParseParameters(t *testing.T) {
	p, err := ParseParameters(mustParse(t, `{
		"name": "candy",
		"persistent": {"title": "Persistent", "groups": [
			{"name": "camera", "parameters": [
				{"name": "resolution", "type": "int", "init": 3},
				{"name": "gains", "type": "float", "array": 3, "init": "1.0,2.0,3.0"}
			]}
		]},
		"network": {"groups": [{"name": "wifi", "parameters": [{"name": "wifi_net_1", "type": "str", "array": 32}]}]}
	}`))
	require.NoError(t, err)

	blocks := p.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, BlockPersistent, blocks[0].Name)
	assert.Equal(t, BlockNetwork, blocks[1].Name)

	res := blocks[0].Block.Groups[0].Parameters[0]
	assert.Equal(t, "3", res.Init.(interface{ String() string }).String())
	assert.Nil(t, blocks[1].Block.Groups[0].Parameters[0].Init)
}

func TestParseParameters_Errors(t *testing.T) {
	_, err := ParseParameters(mustParse(t, `{"volatile": {"groups": [{"name": "g"}]}}`))
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = ParseParameters(mustParse(t, `{"volatile": {"groups": [{"name": "g", "parameters": [{"type": "int"}]}]}}`))
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = ParseParameters(mustParse(t, `{"volatile": {"groups": [{"name": "g", "parameters": [{"name": "x", "init": null}]}]}}`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestReadDocument_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: gina
mblk:
  - name: exp
    groups:
      - name: inputs
        signals:
          - name: dip_switch_3
          - name: touch_sensor
            array: 8
  - name: imp
    groups: []
`), 0o644))

	doc, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "mblk"}, doc.(*jsondoc.Object).Keys())

	s, err := LoadSignals(path)
	require.NoError(t, err)
	assert.Equal(t, "gina", s.Name)
	assert.Equal(t, 8, s.Mblk[0].Groups[0].Signals[1].Array)
}

func TestParseYAML_Scalars(t *testing.T) {
	doc, err := ParseYAML([]byte("i: 3\nf: 2.5\nb: true\nn: null\ns: text\n"))
	require.NoError(t, err)
	obj := doc.(*jsondoc.Object)

	i, _ := obj.Get("i")
	assert.Equal(t, int64(3), i)
	f, _ := obj.Get("f")
	assert.Equal(t, 2.5, f)
	b, _ := obj.Get("b")
	assert.Equal(t, true, b)
	n, ok := obj.Get("n")
	assert.True(t, ok)
	assert.Nil(t, n)
	s, _ := obj.GetString("s")
	assert.Equal(t, "text", s)
}

func TestValidator(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(KindPins, []byte(`{"io": []}`)))
	assert.ErrorIs(t, v.Validate(KindPins, []byte(`{"io": {}}`)), ErrInvalid)
	assert.Error(t, v.Validate(KindPins, []byte(`{"io": `)))
	assert.ErrorIs(t, v.Validate(Kind("network"), []byte(`{}`)), ErrUnknownKind)

	k, err := ParseKind("parameters")
	require.NoError(t, err)
	assert.Equal(t, KindParameters, k)
	_, err = ParseKind("nope")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
