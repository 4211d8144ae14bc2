//go:build unix

package nodelete

import (
	"bytes"
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodelete/pkg/elfimage"
)

func writeFile(t *testing.T, dir, name string, contents []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, contents, 0o644))
	return path
}

func newTestContext(args ContextArgs) (*Context, *bytes.Buffer) {
	var out bytes.Buffer
	ctx := NewContext(log.NewLogfmtLogger(&out))
	ctx.Args = args
	return ctx, &out
}

func libImage(class elf.Class, val uint64) (*elfimage.Image, int) {
	b := elfimage.New(class)
	idx := b.AddDynamic(elfimage.Dyn{Tag: elf.DT_FLAGS_1, Val: val}, elfimage.Dyn{Tag: elf.DT_NULL})
	return b.Build(), idx
}

func TestReadFilePatchesOnDisk(t *testing.T) {
	for _, class := range classes {
		t.Run(class.String(), func(t *testing.T) {
			dir := t.TempDir()
			img, idx := libImage(class, uint64(elf.DF_1_NOW))
			path := writeFile(t, dir, "libfoo.so", img.Bytes)

			ctx, out := newTestContext(ContextArgs{})
			require.NoError(t, ReadFile(ctx, path))

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Len(t, got, len(img.Bytes))
			assert.Equal(t, uint64(elf.DF_1_NOW|elf.DF_1_NODELETE), img.DynValue(got, idx, 0))

			assert.Equal(t, 1, ctx.Processed)
			assert.Equal(t, 1, ctx.Changed)
			assert.Contains(t, out.String(), `msg="replacing DF_1_* flags" old=1 new=9`)
			assert.Contains(t, out.String(), "dry_run=false")

			f, err := elf.Open(path)
			require.NoError(t, err)
			defer f.Close()
			vals, err := f.DynValue(elf.DT_FLAGS_1)
			require.NoError(t, err)
			assert.Equal(t, []uint64{uint64(elf.DF_1_NOW | elf.DF_1_NODELETE)}, vals)
		})
	}
}

func TestReadFileDryRun(t *testing.T) {
	dir := t.TempDir()
	img, _ := libImage(elf.ELFCLASS64, 0)
	path := writeFile(t, dir, "libfoo.so", img.Bytes)
	require.NoError(t, os.Chmod(path, 0o444))

	ctx, out := newTestContext(ContextArgs{DryRun: true})
	require.NoError(t, ReadFile(ctx, path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bytes, got)
	assert.Contains(t, out.String(), "old=0 new=8")
	assert.Contains(t, out.String(), "dry_run=true")
}

func TestReadFileQuiet(t *testing.T) {
	dir := t.TempDir()
	img, idx := libImage(elf.ELFCLASS32, 0)
	path := writeFile(t, dir, "libfoo.so", img.Bytes)

	ctx, out := newTestContext(ContextArgs{Quiet: true})
	require.NoError(t, ReadFile(ctx, path))
	assert.Empty(t, out.String())
	assert.Equal(t, 1, ctx.Changed)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), img.DynValue(got, idx, 0))
}

func TestReadFileSkips(t *testing.T) {
	dir := t.TempDir()

	bigEndian, _ := libImage(elf.ELFCLASS64, 0)
	bigEndian.Bytes[elf.EI_DATA] = byte(elf.ELFDATA2MSB)

	files := map[string][]byte{
		"empty":     nil,
		"short":     []byte("\x7fELF\x02\x01"),
		"script.sh": bytes.Repeat([]byte("#!/bin/sh\n"), 10),
		"big.so":    bigEndian.Bytes,
	}

	var names []string
	for name, contents := range files {
		names = append(names, writeFile(t, dir, name, contents))
	}

	ctx, out := newTestContext(ContextArgs{})
	require.NoError(t, ReadInputFiles(ctx, names))
	assert.Equal(t, len(files), ctx.Skipped)
	assert.Equal(t, 0, ctx.Processed)
	assert.Contains(t, out.String(), "Not little endianness in")
	assert.Contains(t, out.String(), "level=warn")

	for name, contents := range files {
		got, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, len(contents), len(got))
		assert.True(t, bytes.Equal(contents, got), name)
	}
}

func TestReadFileBadClass(t *testing.T) {
	dir := t.TempDir()
	img, _ := libImage(elf.ELFCLASS64, 0)
	img.Bytes[elf.EI_CLASS] = 7
	path := writeFile(t, dir, "odd.so", img.Bytes)

	ctx, _ := newTestContext(ContextArgs{})
	err := ReadFile(ctx, path)
	var cerr *ClassError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, elf.Class(7), cerr.Class)
}

func TestReadInputFilesStopsAtFirstError(t *testing.T) {
	dir := t.TempDir()

	good, goodIdx := libImage(elf.ELFCLASS64, 0)
	bad, _ := libImage(elf.ELFCLASS64, 0)
	bad.SetShnum(bad.Shnum + 1)
	after, afterIdx := libImage(elf.ELFCLASS32, 0)

	names := []string{
		writeFile(t, dir, "a.so", good.Bytes),
		writeFile(t, dir, "b.so", bad.Bytes),
		writeFile(t, dir, "c.so", after.Bytes),
	}

	ctx, _ := newTestContext(ContextArgs{})
	err := ReadInputFiles(ctx, names)
	serr := requireSizeError(t, err, WhatSectionTable)
	assert.Equal(t, names[1], serr.File)
	assert.Equal(t, 1, ctx.Processed)

	got, err := os.ReadFile(names[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(8), good.DynValue(got, goodIdx, 0))

	got, err = os.ReadFile(names[2])
	require.NoError(t, err)
	assert.Equal(t, uint64(0), after.DynValue(got, afterIdx, 0))
}

func TestReadFileMissing(t *testing.T) {
	ctx, _ := newTestContext(ContextArgs{})
	err := ReadFile(ctx, filepath.Join(t.TempDir(), "nope.so"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpenFileDirectory(t *testing.T) {
	_, err := OpenFile(t.TempDir(), false)
	assert.Error(t, err)
}
