package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iocafe/iocomgen/internal/config"
	"github.com/iocafe/iocomgen/internal/pipeline"
)

type buildOptions struct {
	codeRoot   string
	configFile string
	strict     bool
	hashPw     bool
	jobs       int
}

func newBuildCommand(e *env) *cobra.Command {
	var opts buildOptions
	cmd := &cobra.Command{
		Use:   "build [flags] <config-dir>...",
		Short: "Merge and generate the C code of IO application configurations",
		Long: `Build every hardware configuration found below each configuration directory.
Sources are looked up in <config>/<dir>/<hw>, <config>/<dir>, and then the
same two below <coderoot>/iocom/config. Generated files go to
<config>/include/<hw> and merged documents to <config>/intermediate/<hw>.

Settings are read from iocomgen.yaml (or --config), IOCOMGEN_* environment
variables and a .env file; command line flags take precedence.`,
		Example: `  iocomgen build examples/candy/config -r /coderoot`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("coderoot") {
				cfg.CodeRoot = opts.codeRoot
				cfg.Imports = config.ImportsDir(opts.codeRoot)
			}
			if f.Changed("strict") {
				cfg.Strict = opts.strict
			}
			if f.Changed("hash-pw") {
				cfg.HashPasswords = opts.hashPw
			}
			if f.Changed("jobs") {
				cfg.Jobs = opts.jobs
			}
			if cfg.Verbose {
				e.verbose = true
			}

			log := e.logger()
			b := pipeline.New(pipeline.Options{
				Imports:       cfg.Imports,
				Strict:        cfg.Strict,
				HashPasswords: cfg.HashPasswords,
				Jobs:          cfg.Jobs,
				Logger:        log,
			})
			report, err := b.Build(cmd.Context(), args...)
			if err != nil {
				return invalid(err)
			}
			for _, r := range report.Results {
				log.Info("Built", zap.String("config", r.ConfDir), zap.String("hw", r.Hardware),
					zap.Int("files", len(r.Files)), zap.Int("overlaps", len(r.Overlaps)))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.codeRoot, "coderoot", "r", config.DefaultCodeRoot(), "Code root holding iocom/config")
	f.StringVar(&opts.configFile, "config", "", "Build settings file (default iocomgen.yaml when present)")
	f.BoolVar(&opts.strict, "strict", false, "Fail when signal addresses overlap")
	f.BoolVar(&opts.hashPw, "hash-pw", false, "Hash passwords in network defaults")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "Hardware configurations built at once (0 = all)")
	e.addVerbose(cmd)
	return cmd
}
