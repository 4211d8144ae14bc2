//go:build unix

package main

import (
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"

	"nodelete/pkg/nodelete"
	"nodelete/pkg/utils"
)

const appName = "elf-set-nodelete"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var cfg struct {
		dryRun  bool
		quiet   bool
		verbose bool
		files   []string
	}

	exitCode := -1
	app := kingpin.New(appName, "Processes ELF files to set RTLD_NODELETE.").
		UsageWriter(stdout).
		ErrorWriter(stderr).
		Terminate(func(code int) {
			if exitCode < 0 {
				exitCode = code
			}
		})
	app.Version(version.Print(appName))
	app.HelpFlag.Short('h')
	app.Flag("dry-run", "print info but do not set the RTLD_NODELETE flag").Envar("NODELETE_DRY_RUN").BoolVar(&cfg.dryRun)
	app.Flag("quiet", "do not print info").Envar("NODELETE_QUIET").BoolVar(&cfg.quiet)
	app.Flag("verbose", "Enable verbose logging.").Short('v').BoolVar(&cfg.verbose)
	app.Arg("filename", "ELF files to process.").StringsVar(&cfg.files)

	_, err := app.Parse(args)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		app.Errorf("%s, try --help", err)
		return 1
	}
	if len(cfg.files) == 0 {
		app.Usage(args)
		return 0
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(stdout))
	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	ctx := nodelete.NewContext(logger)
	ctx.Args = nodelete.ContextArgs{
		DryRun: cfg.dryRun,
		Quiet:  cfg.quiet,
	}

	if err := nodelete.ReadInputFiles(ctx, cfg.files); err != nil {
		utils.PrintFatal(stderr, err)
		return 1
	}

	level.Debug(logger).Log("msg", "done", "processed", ctx.Processed, "skipped", ctx.Skipped, "changed", ctx.Changed)
	return 0
}
