package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iocafe/iocomgen/pkg/binjson"
	"github.com/iocafe/iocomgen/pkg/cgen"
	"github.com/iocafe/iocomgen/pkg/jsondoc"
	"github.com/iocafe/iocomgen/pkg/schema"
)

// BinaryExt is the extension of binary JSON files.
const BinaryExt = ".binjson"

type jsonOptions struct {
	t2b, b2t bool
	output   string
	title    bool
	hashPw   bool
}

func newJSONCommand(e *env) *cobra.Command {
	var opts jsonOptions
	cmd := &cobra.Command{
		Use:   "json [flags] <input>",
		Short: "Convert between JSON text and binary JSON",
		Long: `Convert JSON (or YAML) text to binary JSON with --t2b, or binary JSON back
to text with --b2t. Without either flag the direction follows the input
extension. Use -o - to write to standard output.`,
		Example: `  iocomgen json --t2b network-defaults.json -o network-defaults.binjson --hash-pw
  iocomgen json --b2t signals.binjson -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJSON(e, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.t2b, "t2b", false, "Text to binary")
	f.BoolVar(&opts.b2t, "b2t", false, "Binary to text")
	f.StringVarP(&opts.output, "output", "o", "", "Output file")
	f.BoolVar(&opts.title, "title", false, "Store the source file name in the binary header")
	f.BoolVar(&opts.hashPw, "hash-pw", false, "Replace password values with Argon2id hashes")
	cmd.MarkFlagsMutuallyExclusive("t2b", "b2t")
	e.addVerbose(cmd)
	return cmd
}

func runJSON(e *env, opts jsonOptions, input string) error {
	log := e.logger()
	toBinary := opts.t2b || (!opts.b2t && filepath.Ext(input) != BinaryExt)

	if toBinary {
		doc, err := schema.ReadDocument(input)
		if err != nil {
			return invalid(err)
		}
		enc := binjson.EncodeOptions{}
		if opts.title {
			enc.Title = filepath.Base(input)
		}
		if opts.hashPw {
			enc.Hasher = binjson.NewArgon2Hasher()
		}
		data, err := binjson.Encode(doc, enc)
		if err != nil {
			return invalid(err)
		}
		out := opts.output
		if out == "" {
			out = replaceExt(input, BinaryExt)
		}
		log.Info("Writing file", zap.String("path", out), zap.Int("bytes", len(data)))
		return writeOutput(e.stdout, out, data)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	doc, hdr, err := binjson.Decode(data)
	if err != nil {
		return invalid(fmt.Errorf("%s: %w", input, err))
	}
	if hdr.Title != "" {
		log.Debug("Binary header", zap.String("title", hdr.Title))
	}
	out := opts.output
	if out == "" {
		out = replaceExt(input, ".json")
	}
	log.Info("Writing file", zap.String("path", out))
	return writeDocument(e.stdout, out, doc)
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// writeOutput writes data to path, or to w when path is "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := w.Write(data)
		return err
	}
	return cgen.WriteFile(path, string(data))
}

// writeDocument writes doc as indented JSON to path, or to w when path is
// "-".
func writeDocument(w io.Writer, path string, doc any) error {
	data, err := jsondoc.Marshal(doc, jsondoc.DefaultIndent)
	if err != nil {
		return err
	}
	return writeOutput(w, path, append(data, '\n'))
}
