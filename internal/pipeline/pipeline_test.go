package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iocafe/iocomgen/pkg/binjson"
	"github.com/iocafe/iocomgen/pkg/cgen"
	"github.com/iocafe/iocomgen/pkg/jsondoc"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const testSignals = `{
  "name": "gina",
  "mblk": [
    {"name": "exp", "groups": [{"name": "inputs", "signals": [{"name": "dip_switch_3"}, {"name": "dip_switch_4"}]}]},
    {"name": "imp", "groups": [{"name": "outputs", "signals": [{"name": "led_builtin"}]}]}
  ]
}`

const testPins = `{
  "name": "carol",
  "io": [{"name": "pins", "groups": [{"name": "inputs", "pins": [{"name": "dip_switch_3"}]}]}]
}`

const testParameters = `{
  "persistent": {"groups": [{"name": "control", "parameters": [{"name": "gain", "type": "float", "init": 1.5}]}]}
}`

// setup creates an application configuration with one hardware directory
// ("carol") and a shared imports directory.
func setup(t *testing.T) (confDir, imports string) {
	root := t.TempDir()
	confDir = filepath.Join(root, "app", "config")
	imports = filepath.Join(root, "coderoot", "iocom", "config")

	writeFile(t, filepath.Join(confDir, "signals", "signals.json"), testSignals)
	writeFile(t, filepath.Join(confDir, "pins", "carol", "pins-io.json"), testPins)
	writeFile(t, filepath.Join(imports, "parameters", "parameters.json"), testParameters)

	writeFile(t, filepath.Join(confDir, "network", "merge.json"), `{"merge": ["base.json", "local.json"]}`)
	writeFile(t, filepath.Join(imports, "network", "base.json"),
		`{"network": [{"name": "wifi", "ssid": "shared", "password": "koe"}], "dhcp": true}`)
	writeFile(t, filepath.Join(confDir, "network", "carol", "local.json"),
		`{"network": [{"name": "wifi", "ssid": "bean"}]}`)
	return confDir, imports
}

func TestBuild(t *testing.T) {
	confDir, imports := setup(t)

	report, err := New(Options{Imports: imports}).Build(context.Background(), confDir)
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "carol", report.Results[0].Hardware)
	assert.Empty(t, report.Results[0].Overlaps)

	include := filepath.Join(confDir, "include", "carol")
	intermediate := filepath.Join(confDir, "intermediate", "carol")
	for _, f := range []string{
		filepath.Join(include, "signals.c"),
		filepath.Join(include, "signals.h"),
		filepath.Join(include, "parameters.c"),
		filepath.Join(include, "parameters.h"),
		filepath.Join(include, "info-mblk.c"),
		filepath.Join(include, "network-defaults.c"),
		filepath.Join(intermediate, "signals-merged.json"),
		filepath.Join(intermediate, "pins-io-merged.json"),
		filepath.Join(intermediate, "parameters-merged.json"),
		filepath.Join(intermediate, "parameters-as-signals.json"),
		filepath.Join(intermediate, "network-defaults-merged.json"),
		filepath.Join(intermediate, "signals.binjson"),
		filepath.Join(intermediate, "signals-check.json"),
		filepath.Join(intermediate, "network-defaults-check.json"),
	} {
		assert.FileExists(t, f)
		assert.Contains(t, report.Results[0].Files, f)
	}

	signalsC := readFile(t, filepath.Join(include, "signals.c"))
	assert.Contains(t, signalsC, "{0, 1, OS_BOOLEAN|IOC_PIN_PTR, &ioboard_exp, &pins.inputs.dip_switch_3}, /* dip_switch_3 */")
	assert.Contains(t, signalsC, "{1, 1, OS_BOOLEAN, &ioboard_exp, OS_NULL} /* dip_switch_4 */")

	parametersH := readFile(t, filepath.Join(include, "parameters.h"))
	assert.Contains(t, parametersH, "osalStatus ioc_load_gina_parameters(const struct gina_t *sigs);")

	info := readFile(t, filepath.Join(include, "info-mblk.c"))
	assert.Contains(t, info, "static OS_FLASH_MEM os_char ioapp_signal_config[] =")

	merged, err := jsondoc.ParseFile(filepath.Join(intermediate, "network-defaults-merged.json"))
	require.NoError(t, err)
	check, err := jsondoc.ParseFile(filepath.Join(intermediate, "network-defaults-check.json"))
	require.NoError(t, err)
	assert.True(t, jsondoc.Equal(merged, check), "binary round trip changed the document")

	net := merged.(*jsondoc.Object)
	wifi, _ := net.GetArray("network")
	require.Len(t, wifi, 1)
	ssid, _ := wifi[0].(*jsondoc.Object).GetString("ssid")
	assert.Equal(t, "bean", ssid)

	bin, err := os.ReadFile(filepath.Join(intermediate, "signals.binjson"))
	require.NoError(t, err)
	_, hdr, err := binjson.Decode(bin)
	require.NoError(t, err)
	assert.Equal(t, "signals", hdr.Title)
}

func TestBuild_HashPasswords(t *testing.T) {
	confDir, imports := setup(t)

	_, err := New(Options{Imports: imports, HashPasswords: true, Jobs: 1}).Build(context.Background(), confDir)
	require.NoError(t, err)

	check, err := jsondoc.ParseFile(filepath.Join(confDir, "intermediate", "carol", "network-defaults-check.json"))
	require.NoError(t, err)
	wifi, _ := check.(*jsondoc.Object).GetArray("network")
	pw, _ := wifi[0].(*jsondoc.Object).GetString("password")
	assert.True(t, strings.HasPrefix(pw, "$argon2id$"), "password not hashed: %q", pw)

	ok, err := binjson.VerifyPassword("koe", pw)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuild_StrictOverlap(t *testing.T) {
	confDir, imports := setup(t)
	writeFile(t, filepath.Join(confDir, "signals", "signals.json"), `{
	  "name": "gina",
	  "mblk": [{"name": "exp", "groups": [{"name": "g", "signals": [{"name": "a", "type": "int"}, {"name": "b", "addr": 2}]}]}]
	}`)

	report, err := New(Options{Imports: imports}).Build(context.Background(), confDir)
	require.NoError(t, err)
	assert.Len(t, report.Results[0].Overlaps, 1)

	_, err = New(Options{Imports: imports, Strict: true}).Build(context.Background(), confDir)
	assert.ErrorIs(t, err, cgen.ErrOverlap)
}

func TestBuild_MissingFragment(t *testing.T) {
	confDir, _ := setup(t)

	// Without imports base.json cannot be found.
	_, err := New(Options{}).Build(context.Background(), confDir)
	assert.ErrorIs(t, err, ErrFragmentNotFound)
}

func TestBuild_Cancelled(t *testing.T) {
	confDir, imports := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Imports: imports}).Build(ctx, confDir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHardwareList(t *testing.T) {
	dir := t.TempDir()
	hw, err := HardwareList(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{GenericHardware}, hw)

	for _, d := range []string{"signals/zeta", "signals/alpha", "pins/alpha", "pins/carol", "network/beta"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
	}
	writeFile(t, filepath.Join(dir, "signals", "signals.json"), testSignals)

	hw, err = HardwareList(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta", "carol", "beta"}, hw)
}

func TestResolve_Precedence(t *testing.T) {
	root := t.TempDir()
	hw := Hardware{ConfDir: filepath.Join(root, "app"), Imports: filepath.Join(root, "shared"), Name: "carol"}

	candidates := []string{
		filepath.Join(root, "app", "signals", "carol", "signals.json"),
		filepath.Join(root, "app", "signals", "signals.json"),
		filepath.Join(root, "shared", "signals", "carol", "signals.json"),
		filepath.Join(root, "shared", "signals", "signals.json"),
	}
	for _, c := range candidates {
		writeFile(t, c, "{}")
	}

	for _, want := range candidates {
		got, ok := hw.Resolve("signals", "signals.json")
		require.True(t, ok)
		assert.Equal(t, want, got)
		require.NoError(t, os.Remove(want))
	}
	_, ok := hw.Resolve("signals", "signals.json")
	assert.False(t, ok)
}

func TestMergeSources(t *testing.T) {
	root := t.TempDir()
	hw := Hardware{ConfDir: root, Name: GenericHardware}

	srcs, err := hw.MergeSources("signals", "signals.json")
	require.NoError(t, err)
	assert.Nil(t, srcs)

	writeFile(t, filepath.Join(root, "signals", "signals.json"), testSignals)
	srcs, err = hw.MergeSources("signals", "signals.json")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "signals", "signals.json")}, srcs)

	writeFile(t, filepath.Join(root, "signals", "merge.json"), `{"files": []}`)
	_, err = hw.MergeSources("signals", "signals.json")
	assert.ErrorIs(t, err, ErrBadMergeList)

	writeFile(t, filepath.Join(root, "signals", "merge.json"), `{"merge": ["signals.json", 3]}`)
	_, err = hw.MergeSources("signals", "signals.json")
	assert.ErrorIs(t, err, ErrBadMergeList)
}
