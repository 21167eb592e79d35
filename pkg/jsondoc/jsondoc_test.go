package jsondoc

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signalsDoc = `{
    "name": "gina",
    "title": "IO signals for \"gina\" <device>",
    "mblk": [
        {
            "name": "exp",
            "groups": [
                {
                    "name": "inputs",
                    "signals": [
                        {"name": "dip_switch_3"},
                        {"name": "touch_sensor", "array": 8}
                    ]
                }
            ]
        }
    ],
    "ratio": 2.5,
    "scale": 1.0,
    "enabled": true,
    "extra": null,
    "empty": [],
    "nothing": {}
}`

func TestParse_KeepsKeyOrder(t *testing.T) {
	v, err := Parse([]byte(signalsDoc))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"name", "title", "mblk", "ratio", "scale", "enabled", "extra", "empty", "nothing"}, obj.Keys())

	mblks, ok := obj.GetArray("mblk")
	require.True(t, ok)
	require.Len(t, mblks, 1)
	exp := mblks[0].(*Object)
	name, _ := exp.GetString("name")
	assert.Equal(t, "exp", name)
}

func TestParse_Numbers(t *testing.T) {
	v, err := Parse([]byte(`{"i": 12, "neg": -3, "f": 2.5, "whole": 1.0, "big": 1e3}`))
	require.NoError(t, err)
	obj := v.(*Object)

	i, _ := obj.Get("i")
	assert.Equal(t, int64(12), i)
	neg, _ := obj.Get("neg")
	assert.Equal(t, int64(-3), neg)
	f, _ := obj.Get("f")
	assert.Equal(t, 2.5, f)
	whole, _ := obj.Get("whole")
	assert.Equal(t, 1.0, whole)
	big, _ := obj.Get("big")
	assert.Equal(t, 1000.0, big)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"truncated":     `{"a": [1, 2`,
		"trailing data": `{"a": 1} {"b": 2}`,
		"bad literal":   `{"a": tru}`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	v, err := Parse([]byte(signalsDoc))
	require.NoError(t, err)

	out, err := Marshal(v, DefaultIndent)
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	assert.True(t, Equal(v, again), "document changed after text round trip:\n%s", out)

	text := string(out)
	assert.Contains(t, text, `"scale": 1.0`)
	assert.Contains(t, text, `"empty": []`)
	assert.Contains(t, text, `"nothing": {}`)
	assert.Contains(t, text, `<device>`)
	assert.True(t, strings.HasPrefix(text, "{\n    \"name\": \"gina\","))
}

func TestMarshal_Compact(t *testing.T) {
	obj := NewObject(Field{"b", int64(1)}, Field{"a", []any{"x", false}})
	out, err := Marshal(obj, "")
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":["x",false]}`, string(out))
}

func TestWriteFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intermediate", "generic", "signals-merged.json")
	require.NoError(t, WriteFile(path, NewObject(Field{"name", "gina"})))

	v, err := ParseFile(path)
	require.NoError(t, err)
	name, _ := v.(*Object).GetString("name")
	assert.Equal(t, "gina", name)
}

func TestObject_SetKeepsPosition(t *testing.T) {
	obj := NewObject(Field{"a", int64(1)}, Field{"b", int64(2)}, Field{"c", int64(3)})
	obj.Set("a", int64(10))
	assert.Equal(t, []string{"a", "b", "c"}, obj.Keys())

	obj.Delete("b")
	assert.Equal(t, []string{"a", "c"}, obj.Keys())
	c, ok := obj.Get("c")
	require.True(t, ok)
	assert.Equal(t, int64(3), c)
}

func TestClone_IsDeep(t *testing.T) {
	orig := NewObject(Field{"list", []any{NewObject(Field{"name", "x"})}})
	c := Clone(orig).(*Object)

	list, _ := c.GetArray("list")
	list[0].(*Object).Set("name", "changed")

	origList, _ := orig.GetArray("list")
	name, _ := origList[0].(*Object).GetString("name")
	assert.Equal(t, "x", name)
}

func TestMerge_NamedLists(t *testing.T) {
	base, err := Parse([]byte(`{
		"name": "gina",
		"mblk": [
			{"name": "exp", "groups": [{"name": "inputs", "signals": [{"name": "a"}]}]},
			{"name": "imp", "groups": []}
		]
	}`))
	require.NoError(t, err)

	extra, err := Parse([]byte(`{
		"name": "gina2",
		"mblk": [
			{"name": "exp", "groups": [
				{"name": "inputs", "signals": [{"name": "b", "type": "boolean"}]},
				{"name": "analog_inputs", "signals": [{"name": "c"}]}
			]},
			{"name": "conf_exp"}
		]
	}`))
	require.NoError(t, err)

	merged := Merge(base, extra).(*Object)

	name, _ := merged.GetString("name")
	assert.Equal(t, "gina2", name)

	mblks, _ := merged.GetArray("mblk")
	require.Len(t, mblks, 3)
	var names []string
	for _, m := range mblks {
		n, _ := m.(*Object).GetString("name")
		names = append(names, n)
	}
	assert.Equal(t, []string{"exp", "imp", "conf_exp"}, names)

	groups, _ := mblks[0].(*Object).GetArray("groups")
	require.Len(t, groups, 2)
	signals, _ := groups[0].(*Object).GetArray("signals")
	require.Len(t, signals, 2, "signals of the same group are merged by name")

	// Inputs untouched.
	baseMblks, _ := base.(*Object).GetArray("mblk")
	baseGroups, _ := baseMblks[0].(*Object).GetArray("groups")
	assert.Len(t, baseGroups, 1)
}

func TestMerge_ScalarsAndPlainArraysReplaced(t *testing.T) {
	a := NewObject(Field{"list", []any{int64(1), int64(2)}}, Field{"v", "old"})
	b := NewObject(Field{"list", []any{int64(3)}}, Field{"v", "new"})

	merged := Merge(a, b).(*Object)
	list, _ := merged.GetArray("list")
	assert.Equal(t, []any{int64(3)}, list)
	v, _ := merged.GetString("v")
	assert.Equal(t, "new", v)
}

func TestMerge_Single(t *testing.T) {
	a := NewObject(Field{"v", int64(1)})
	merged := Merge(a)
	assert.True(t, Equal(a, merged))
	assert.NotSame(t, a, merged)
}
