// Package cgen writes the C source and header files for laid out signal
// maps and parameter files.
package cgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iocafe/iocomgen/pkg/layout"
	"github.com/iocafe/iocomgen/pkg/naming"
	"github.com/iocafe/iocomgen/pkg/schema"
)

// AppType selects how signal structures are initialized in C.
type AppType string

const (
	// AppIODevice places the signal structure in flash with static
	// initializers.
	AppIODevice AppType = "iodevice"
	// AppControllerStatic fills the structure at run time and matches data
	// by address and type.
	AppControllerStatic AppType = "controller-static"
	// AppControllerDynamic fills the structure at run time and matches data
	// by signal name.
	AppControllerDynamic AppType = "controller-dynamic"
)

// FallbackDeviceName is used when neither the file nor the options name the
// device.
const FallbackDeviceName = "unnameddevice"

var (
	ErrUnknownAppType = errors.New("unknown application type")
	ErrOverlap        = errors.New("signal addresses overlap")
)

// ParseAppType converts a command line application type.
func ParseAppType(s string) (AppType, error) {
	switch a := AppType(s); a {
	case AppIODevice, AppControllerStatic, AppControllerDynamic:
		return a, nil
	case "":
		return AppIODevice, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAppType, s)
}

func (a AppType) controller() bool { return a == AppControllerStatic || a == AppControllerDynamic }
func (a AppType) dynamic() bool    { return a == AppControllerDynamic }

// SignalOptions controls GenerateSignals.
type SignalOptions struct {
	App AppType

	// DeviceName replaces the name of every device when set.
	DeviceName string

	// Pins maps pin names to C pin references. Signals with a matching name
	// are bound to the pin.
	Pins map[string]string

	// Strict turns overlapping signals into an error.
	Strict bool

	// HeaderPath names the header file; it only sets the include guard.
	HeaderPath string
}

// Output holds the generated C file pair.
type Output struct {
	C string
	H string

	// Overlaps lists colliding signals, which are also written into C.
	Overlaps []layout.Overlap
}

// Banner returns the first line of every generated file.
func Banner(tool string) string {
	return fmt.Sprintf("/* This file is generated by iocomgen %s, do not modify. */", tool)
}

// GenerateSignals writes the signal structures of devices into one C file
// pair.
func GenerateSignals(devices []*layout.Device, opts SignalOptions) (*Output, error) {
	if opts.App == "" {
		opts.App = AppIODevice
	}
	w := &signalWriter{opts: opts}

	w.c.WriteString(Banner("signals") + "\n")
	renderTemplate(&w.h, "headerOpen", headerData{Banner: Banner("signals"), Guard: guard(opts.HeaderPath, "signals")})

	lastName := ""
	for i, d := range devices {
		name, err := w.deviceName(d)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			w.c.WriteString("\n")
			w.h.WriteString("\n")
		}
		w.writeDevice(name, d)
		lastName = name
	}

	if !opts.App.controller() && lastName != "" {
		renderTemplate(&w.h, "deviceName", lastName)
	}
	renderTemplate(&w.h, "headerClose", nil)

	if opts.Strict && len(w.overlaps) > 0 {
		msgs := make([]string, len(w.overlaps))
		for i, o := range w.overlaps {
			msgs[i] = o.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrOverlap, strings.Join(msgs, "; "))
	}

	return &Output{C: w.c.String(), H: w.h.String(), Overlaps: w.overlaps}, nil
}

func guard(headerPath, fallback string) string {
	if headerPath == "" {
		headerPath = fallback
	}
	return naming.HeaderGuard(headerPath)
}

type signalWriter struct {
	opts     SignalOptions
	c, h     strings.Builder
	overlaps []layout.Overlap

	// Per device.
	dev     string
	defines []string
	arrays  []string
	present []string
}

func (w *signalWriter) deviceName(d *layout.Device) (string, error) {
	name := w.opts.DeviceName
	if name == "" {
		name = d.Name
	}
	if name == "" {
		name = FallbackDeviceName
	}
	if err := naming.Validate(naming.KindDevice, name); err != nil {
		return "", err
	}
	return name, nil
}

func (w *signalWriter) writeDevice(name string, d *layout.Device) {
	w.dev = name
	w.defines, w.arrays, w.present = nil, nil, nil
	structName := name + "_t"
	app := w.opts.App

	fmt.Fprintf(&w.h, "typedef struct %s\n{", structName)
	if app.controller() {
		fmt.Fprintf(&w.h, "\n  iocDeviceHdr hdr;\n  iocMblkSignalHdr *mblk_list[%d];\n", len(d.Blocks))
		fmt.Fprintf(&w.c, "void %s_init_signal_struct(%s *s)\n{\n", name, structName)
		fmt.Fprintf(&w.c, "  os_memclear(s, sizeof(%s));\n", structName)
	} else {
		fmt.Fprintf(&w.c, "OS_FLASH_MEM struct %s %s =\n{", structName, name)
	}

	for i, b := range d.Blocks {
		w.writeBlockHeader(b)
		if app.controller() {
			w.writeControllerBlock(i, b)
		} else {
			w.writeDeviceBlock(b, i == len(d.Blocks)-1)
		}
		w.overlaps = append(w.overlaps, b.Overlaps...)
	}

	for _, a := range d.Assemblies {
		w.writeAssembly(a)
	}

	w.c.WriteString("\n")
	if app.controller() {
		fmt.Fprintf(&w.c, "  s->hdr.n_mblk_hdrs = %d;\n", len(d.Blocks))
		w.c.WriteString("  s->hdr.mblk_hdr = s->mblk_list;\n}\n")
	} else {
		w.c.WriteString("};\n")
	}

	fmt.Fprintf(&w.h, "}\n%s;\n\n", structName)
	for _, def := range w.defines {
		w.h.WriteString(def + "\n")
	}

	if app.controller() {
		fmt.Fprintf(&w.h, "\nvoid %s_init_signal_struct(%s *s);\n", name, structName)
	} else {
		fmt.Fprintf(&w.h, "\nextern OS_FLASH_MEM_H %s %s;\n", structName, name)
		w.writeMblkList(d)
		fmt.Fprintf(&w.h, "extern OS_FLASH_MEM_H iocDeviceHdr %s_hdr;\n\n", name)
	}

	if len(w.arrays) > 0 {
		w.h.WriteString("\n/* Array length defines. */\n")
		for _, p := range w.arrays {
			w.h.WriteString(p + "\n")
		}
	}
	if len(w.present) > 0 {
		w.h.WriteString("\n/* Defines to check in code with #ifdef to know if signal is configured in JSON. */\n")
		for _, p := range w.present {
			w.h.WriteString(p + "\n")
		}
	}

	w.writeOverlaps(d.Overlaps())
}

// writeBlockHeader declares the block in the device struct and collects its
// defines.
func (w *signalWriter) writeBlockHeader(b *layout.Block) {
	w.h.WriteString("\n  struct\n  {\n    iocMblkSignalHdr hdr;\n")
	for _, s := range b.Signals {
		fmt.Fprintf(&w.h, "    iocSignal %s;\n", s.Name)

		def := naming.DefineName(w.dev, b.Name, s.Name)
		w.present = append(w.present, "#define "+def)
		if s.Array > 1 && !w.opts.App.dynamic() {
			w.arrays = append(w.arrays, fmt.Sprintf("#define %s_ARRAY_SZ %d", def, s.Array))
		}
	}
	fmt.Fprintf(&w.h, "  }\n  %s;\n", b.Name)

	if !w.opts.App.dynamic() {
		w.defines = append(w.defines, fmt.Sprintf("#define %s %d", w.mblkSizeDefine(b), b.MaxAddr))
	}
}

func (w *signalWriter) mblkSizeDefine(b *layout.Block) string {
	return naming.DefineName(w.dev, b.Name, "MBLK_SZ")
}

func (w *signalWriter) writeDeviceBlock(b *layout.Block, last bool) {
	first := "OS_NULL"
	if len(b.Signals) > 0 {
		first = fmt.Sprintf("(iocSignal*)&%s.%s.%s", w.dev, b.Name, b.Signals[0].Name)
	}
	fmt.Fprintf(&w.c, "\n  {\n    {\"%s\", %s, %d, %s, %s},\n",
		b.Name, b.Handle, len(b.Signals), w.mblkSizeDefine(b), first)

	for i, s := range b.Signals {
		flags := s.Type.CFlag()
		ref := "OS_NULL"
		if pin, ok := w.opts.Pins[s.Name]; ok {
			flags += "|IOC_PIN_PTR"
			ref = pin
		} else {
			if s.IsParameter() {
				flags += "|IOC_PFLAG_IS_PRM"
			}
			if s.IsPersistent() {
				flags += "|IOC_PFLAG_IS_PERSISTENT"
			}
			if s.PAddr != "" {
				ref = s.PAddr
			}
		}

		sep := ""
		if i < len(b.Signals)-1 {
			sep = ","
		}
		fmt.Fprintf(&w.c, "    {%d, %d, %s, %s, %s}%s /* %s */\n", s.Addr, s.Array, flags, b.Handle, ref, sep, s.Name)
	}

	w.c.WriteString("  }")
	if !last {
		w.c.WriteString(",\n")
	}
}

func (w *signalWriter) writeControllerBlock(index int, b *layout.Block) {
	hdr := "  s->" + b.Name + ".hdr"
	fmt.Fprintf(&w.c, "%s.mblk_name = \"%s\";\n", hdr, b.Name)
	fmt.Fprintf(&w.c, "%s.n_signals = %d;\n", hdr, len(b.Signals))
	if !w.opts.App.dynamic() {
		fmt.Fprintf(&w.c, "%s.mblk_sz = %s;\n", hdr, w.mblkSizeDefine(b))
	}
	if len(b.Signals) > 0 {
		fmt.Fprintf(&w.c, "%s.first_signal = &s->%s.%s;\n", hdr, b.Name, b.Signals[0].Name)
	}

	for _, s := range b.Signals {
		fmt.Fprintf(&w.c, "\n  /* %s */\n", s.Name)
		sig := "  s->" + b.Name + "." + s.Name
		if w.opts.App.dynamic() {
			fmt.Fprintf(&w.c, "%s.ptr = \"%s\";\n", sig, s.Name)
			continue
		}
		fmt.Fprintf(&w.c, "%s.addr = %d;\n", sig, s.Addr)
		fmt.Fprintf(&w.c, "%s.n = %d;\n", sig, s.Array)
		fmt.Fprintf(&w.c, "%s.flags = %s;\n", sig, s.Type.CFlag())
	}

	fmt.Fprintf(&w.c, "  s->mblk_list[%d] = &s->%s.hdr;\n\n", index, b.Name)
}

// assemblyItem is one streamer signal reference; an empty prefix means the
// slot is unused for this assembly type.
type assemblyItem struct {
	ending string
	prefix string
}

func (w *signalWriter) writeAssembly(a schema.RawAssembly) {
	imp := a.Imp
	if imp == "" {
		imp = "imp." + a.Name + "_"
	}
	exp := a.Exp
	if exp == "" {
		exp = "exp." + a.Name + "_"
	}

	items := []assemblyItem{
		{"cmd", imp}, {"select", imp}, {"buf", exp}, {"head", exp}, {"tail", imp}, {"state", exp},
	}
	if a.IsFlat() {
		items[1].prefix = ""
		items[4].prefix = ""
	}

	fmt.Fprintf(&w.h, "\n  iocStreamerSignals %s;\n", a.Name)

	if w.opts.App.controller() {
		fmt.Fprintf(&w.c, "  /* %s '%s' */\n", a.Type, a.Name)
		for _, it := range items {
			if it.prefix != "" {
				fmt.Fprintf(&w.c, "  s->%s.%s = &s->%s%s;\n", a.Name, it.ending, it.prefix, it.ending)
			}
		}
		if a.IsFlat() {
			fmt.Fprintf(&w.c, "  s->%s.flat_buffer = OS_TRUE;\n", a.Name)
		}
		return
	}

	fmt.Fprintf(&w.c, ",\n\n  /* Signals for %s '%s' */\n  {", a.Type, a.Name)
	for _, it := range items {
		if it.prefix == "" {
			w.c.WriteString("OS_NULL, ")
			continue
		}
		fmt.Fprintf(&w.c, "&%s.%s%s,\n   ", w.dev, it.prefix, it.ending)
	}
	if a.IsFlat() {
		w.c.WriteString("OS_FALSE, OS_TRUE}")
	} else {
		w.c.WriteString("OS_FALSE, OS_FALSE}")
	}
}

func (w *signalWriter) writeMblkList(d *layout.Device) {
	list := w.dev + "_mblk_list"
	fmt.Fprintf(&w.c, "\nstatic OS_FLASH_MEM iocMblkSignalHdr * OS_FLASH_MEM %s[] =\n{\n", list)
	for i, b := range d.Blocks {
		sep := ","
		if i == len(d.Blocks)-1 {
			sep = ""
		}
		fmt.Fprintf(&w.c, "  &%s.%s.hdr%s\n", w.dev, b.Name, sep)
	}
	w.c.WriteString("};\n\n")
	fmt.Fprintf(&w.c, "OS_FLASH_MEM iocDeviceHdr %s_hdr = {(iocMblkSignalHdr**)%s, sizeof(%s)/sizeof(iocMblkSignalHdr*)};\n",
		w.dev, list, list)
}

// writeOverlaps makes collisions visible in the C file.
func (w *signalWriter) writeOverlaps(overlaps []layout.Overlap) {
	if len(overlaps) == 0 {
		return
	}
	w.c.WriteString("\n/* ***************************************\n")
	w.c.WriteString("   ERROR: Duplicated signal addresses found in JSON!\n")
	for _, o := range overlaps {
		fmt.Fprintf(&w.c, "   %s\n", o)
	}
	w.c.WriteString("   *************************************** */\n")
}
