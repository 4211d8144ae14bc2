//go:build unix

package nodelete

import (
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"nodelete/pkg/layout"
)

// ReadInputFiles processes names in order and stops at the first error.
func ReadInputFiles(ctx *Context, names []string) error {
	for _, name := range names {
		if err := ReadFile(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile maps one file and walks it. Files that are too small or lack the
// ELF magic are skipped silently; big-endian files are skipped with a warning.
func ReadFile(ctx *Context, name string) (err error) {
	file, err := OpenFile(name, !ctx.Args.DryRun)
	if errors.Is(err, ErrTooSmall) {
		ctx.skip(name, "too small")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	contents := file.Contents
	if !layout.HasMagic(contents) {
		ctx.skip(name, "no ELF magic")
		return nil
	}
	if !layout.IsLittleEndian(contents) {
		level.Warn(ctx.Logger).Log("msg", fmt.Sprintf("Not little endianness in '%s'", name))
		ctx.skip(name, "big endian")
		return nil
	}

	class := layout.ClassOf(contents)
	if _, ok := layout.ForClass(class); !ok {
		return &ClassError{File: name, Class: class}
	}

	records, err := Walk(contents, class, name, ctx.Mode())
	ctx.report(records)
	if err != nil {
		return err
	}
	ctx.Processed++

	return file.Sync()
}
