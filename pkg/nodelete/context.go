package nodelete

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type ContextArgs struct {
	DryRun bool
	Quiet  bool
}

type Context struct {
	Args   ContextArgs
	Logger log.Logger

	Processed int
	Skipped   int
	Changed   int
}

func NewContext(logger log.Logger) *Context {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Context{Logger: logger}
}

func (ctx *Context) Mode() Mode {
	if ctx.Args.DryRun {
		return ModeReport
	}
	return ModeMutate
}

func (ctx *Context) skip(name, reason string) {
	ctx.Skipped++
	level.Debug(ctx.Logger).Log("msg", "skipping file", "file", name, "reason", reason)
}

func (ctx *Context) report(records []Record) {
	ctx.Changed += len(records)
	if ctx.Args.Quiet {
		return
	}
	for _, r := range records {
		level.Info(ctx.Logger).Log(
			"msg", "replacing DF_1_* flags",
			"old", r.Old,
			"new", r.New,
			"file", r.File,
			"dry_run", ctx.Args.DryRun,
		)
	}
}
