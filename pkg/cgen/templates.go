package cgen

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/iocafe/iocomgen/pkg/osal"
)

// funcMap provides helper functions available to all templates.
var funcMap = template.FuncMap{
	"ctype": func(t osal.Type) string { return t.CType() },
	"hex":   func(b byte) string { return fmt.Sprintf("0x%02x", b) },
	"inc":   func(i int) int { return i + 1 },
	"dims": func(n int) string {
		if n > 1 {
			return fmt.Sprintf("[%d]", n)
		}
		return ""
	},
}

// templates holds the fixed parts of the generated C files.
var templates = template.Must(template.New("").Funcs(funcMap).Parse(
	headerOpenTmpl +
		headerCloseTmpl +
		deviceNameTmpl +
		prmStructTmpl +
		prmPrototypesTmpl +
		prmFunctionsTmpl +
		binArrayTmpl,
))

// renderTemplate executes a named template into the builder.
func renderTemplate(b *strings.Builder, name string, data any) {
	if err := templates.ExecuteTemplate(b, name, data); err != nil {
		panic(fmt.Sprintf("template %s: %v", name, err))
	}
}

// --- Template data types ---

type headerData struct {
	Banner string
	Guard  string
}

type prmStructData struct {
	Name       string
	Title      string
	Parameters []prmField
}

type prmField struct {
	Name  string
	Type  osal.Type
	Array int
}

type prmFunctionsData struct {
	Device     string
	BufSize    int
	AutosaveMs int
	Init       []string
	Copy       []prmCopy
}

type prmCopy struct {
	Signal string
	Offset int
	Bytes  int
}

type binArrayData struct {
	Banner string
	Var    string
	Size   int
	Rows   [][]byte
}

// --- Template definitions ---

const headerOpenTmpl = `{{define "headerOpen"}}{{.Banner}}
#ifndef {{.Guard}}
#define {{.Guard}}
OSAL_C_HEADER_BEGINS

{{end}}`

const headerCloseTmpl = `{{define "headerClose"}}
OSAL_C_HEADER_ENDS
#endif
{{end}}`

const deviceNameTmpl = `{{define "deviceName"}}
#ifndef IOBOARD_DEVICE_NAME
#define IOBOARD_DEVICE_NAME "{{.}}"
#endif
{{end}}`

const prmStructTmpl = `{{define "prmStruct"}}
/* {{if .Title}}{{.Title}}{{else}}{{.Name}} parameters{{end}} */
typedef struct {{.Name}}
{
{{- range .Parameters}}
  {{ctype .Type}} {{.Name}}{{dims .Array}};
{{- end}}
}
{{.Name}};
{{end}}`

const prmPrototypesTmpl = `{{define "prmPrototypes"}}
struct {{.}}_t;
void ioc_initialize_{{.}}_parameters(const struct {{.}}_t *sigs, os_int block_nr, void *reserved);
osalStatus ioc_load_{{.}}_parameters(const struct {{.}}_t *sigs);
osalStatus ioc_save_{{.}}_parameters(const struct {{.}}_t *sigs);
osalStatus ioc_autosave_{{.}}_parameters(const struct {{.}}_t *sigs);
{{end}}`

const prmFunctionsTmpl = `{{define "prmFunctions"}}
void ioc_initialize_{{.Device}}_parameters(const struct {{.Device}}_t *sigs, os_int block_nr, void *reserved)
{
  os_memclear(&ioc_prm_storage, sizeof(ioc_prm_storage));
  ioc_prm_storage.block_nr = block_nr;
{{- range .Init}}
  {{.}}
{{- end}}
}

osalStatus ioc_load_{{.Device}}_parameters(const struct {{.Device}}_t *sigs)
{
#if OSAL_PERSISTENT_SUPPORT
  os_char buf[{{.BufSize}}];
  osalStatus s;

  ioc_prm_storage.changed = OS_FALSE;
  s = os_load_persistent(ioc_prm_storage.block_nr, buf, sizeof(buf));
  if (!OSAL_IS_ERROR(s)) {
{{- range .Copy}}
    ioc_write({{.Signal}}.handle, {{.Signal}}.addr, buf + {{.Offset}}, {{.Bytes}}, 0);
{{- end}}
  }
  return s;
#else
  return OSAL_STATUS_NOT_SUPPORTED;
#endif
}

osalStatus ioc_save_{{.Device}}_parameters(const struct {{.Device}}_t *sigs)
{
#if OSAL_PERSISTENT_SUPPORT
  os_char buf[{{.BufSize}}];
  osalStatus s;
{{range .Copy}}
  ioc_read({{.Signal}}.handle, {{.Signal}}.addr, buf + {{.Offset}}, {{.Bytes}}, 0);
{{- end}}
  s = os_save_persistent(ioc_prm_storage.block_nr, buf, sizeof(buf), OS_FALSE);
  ioc_prm_storage.changed = OS_FALSE;
  return s;
#else
  return OSAL_STATUS_NOT_SUPPORTED;
#endif
}

osalStatus ioc_autosave_{{.Device}}_parameters(const struct {{.Device}}_t *sigs)
{
#if OSAL_PERSISTENT_SUPPORT
  if (ioc_prm_storage.changed) {
    if (os_has_elapsed(&ioc_prm_storage.ti, {{.AutosaveMs}})) {
      ioc_save_{{.Device}}_parameters(sigs);
    }
  }
  return OSAL_SUCCESS;
#else
  return OSAL_STATUS_NOT_SUPPORTED;
#endif
}
{{end}}`

const binArrayTmpl = `{{define "binArray"}}{{.Banner}}
/* {{.Size}} bytes */
static OS_FLASH_MEM os_char {{.Var}}[] =
{
{{- range $i, $row := .Rows}}
  {{range $j, $b := $row}}{{if $j}}, {{end}}{{hex $b}}{{end}}{{if lt (inc $i) (len $.Rows)}},{{end}}
{{- end}}
};
{{end}}`
