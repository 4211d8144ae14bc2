package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// ErrOutOfRange is returned by Read and Write when the value would not fit
// inside the buffer.
var ErrOutOfRange = errors.New("out of range")

var fatalColor = color.New(color.Bold, color.FgRed)

func Fatal(v any) {
	PrintFatal(os.Stderr, v)
	os.Exit(1)
}

func PrintFatal(w io.Writer, v any) {
	fmt.Fprintf(w, "elf-set-nodelete:\n\t%s: %v\n", fatalColor.Sprint("fatal"), v)
}

func MustNo(err error) {
	if err != nil {
		Fatal(err.Error())
	}
}

func Assert(condition bool) {
	if !condition {
		Fatal("Assert Failed")
	}
}

// End returns off+n. ok is false when the sum does not fit in 64 bits.
func End(off, n uint64) (end uint64, ok bool) {
	end, carry := bits.Add64(off, n, 0)
	return end, carry == 0
}

// Span computes the end of [off, off+n) and reports whether it lies within
// size bytes. On overflow end is saturated to the max uint64.
func Span(off, n, size uint64) (end uint64, ok bool) {
	end, ok = End(off, n)
	if !ok {
		return ^uint64(0), false
	}
	return end, end <= size
}

func sizeOf[T any]() (uint64, error) {
	var zero T
	n := binary.Size(zero)
	if n < 0 {
		return 0, errors.Errorf("%T has no fixed binary size", zero)
	}
	return uint64(n), nil
}

// Read decodes a little-endian T from data at off.
func Read[T any](data []byte, off uint64) (val T, err error) {
	n, err := sizeOf[T]()
	if err != nil {
		return val, err
	}
	end, ok := Span(off, n, uint64(len(data)))
	if !ok {
		return val, errors.Wrapf(ErrOutOfRange, "read %d bytes at %d of %d", n, off, len(data))
	}

	reader := bytes.NewReader(data[off:end])
	err = binary.Read(reader, binary.LittleEndian, &val)
	return val, err
}

// Write encodes val little-endian into data at off.
func Write[T any](data []byte, off uint64, val T) error {
	n, err := sizeOf[T]()
	if err != nil {
		return err
	}
	end, ok := Span(off, n, uint64(len(data)))
	if !ok {
		return errors.Wrapf(ErrOutOfRange, "write %d bytes at %d of %d", n, off, len(data))
	}

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, val); err != nil {
		return err
	}
	copy(data[off:end], buf.Bytes())
	return nil
}
