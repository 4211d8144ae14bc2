package nodelete

import (
	"debug/elf"
	"encoding/binary"

	"nodelete/pkg/layout"
	"nodelete/pkg/utils"
)

type Mode uint8

const (
	ModeMutate Mode = iota
	ModeReport
)

func (m Mode) String() string {
	if m == ModeReport {
		return "report"
	}
	return "mutate"
}

// Record describes one DT_FLAGS_1 value that was changed, or in ModeReport
// would have been.
type Record struct {
	File    string
	Section uint64 /* Section header index. */
	Entry   uint64 /* Index within the dynamic section. */
	Offset  uint64 /* File offset of the entry. */
	Old     uint64
	New     uint64
}

// Walk sets DF_1_NODELETE in every DT_FLAGS_1 entry of every SHT_DYNAMIC
// section in buf. buf is the whole file; magic and EI_DATA must already be
// checked by the caller.
//
// Any extent that runs past len(buf) aborts the walk with a *SizeError.
// Changes made before that point are kept, and their records are returned
// along with the error.
func Walk(buf []byte, class elf.Class, name string, mode Mode) ([]Record, error) {
	switch class {
	case elf.ELFCLASS32:
		return walk[layout.Header32, layout.Section32, layout.Dyn32](buf, name, mode)
	case elf.ELFCLASS64:
		return walk[layout.Header64, layout.Section64, layout.Dyn64](buf, name, mode)
	}
	return nil, &ClassError{File: name, Class: class}
}

func sizeOf[T any]() uint64 {
	var zero T
	return uint64(binary.Size(zero))
}

func checkSpan(buf []byte, off, n uint64, what, name string) error {
	size := uint64(len(buf))
	if end, ok := utils.Span(off, n, size); !ok {
		return &SizeError{File: name, What: what, Offset: off, End: end, Size: size}
	}
	return nil
}

// readAt is the only way the walker looks at the buffer.
func readAt[T any](buf []byte, off uint64, what, name string) (T, error) {
	if err := checkSpan(buf, off, sizeOf[T](), what, name); err != nil {
		var zero T
		return zero, err
	}
	return utils.Read[T](buf, off)
}

func walk[H layout.FileHeader, S layout.SectionHeader, D layout.DynEntry[D]](buf []byte, name string, mode Mode) ([]Record, error) {
	hdr, err := readAt[H](buf, 0, WhatHeader, name)
	if err != nil {
		return nil, err
	}

	shoff, shnum := hdr.SectionTable()
	shentsize := sizeOf[S]()
	if err := checkSpan(buf, shoff, shnum*shentsize, WhatSectionTable, name); err != nil {
		return nil, err
	}

	var records []Record
	dynsize := sizeOf[D]()

	// Section 0 is reserved.
	for i := uint64(1); i < shnum; i++ {
		shdr, err := readAt[S](buf, shoff+i*shentsize, WhatSectionTable, name)
		if err != nil {
			return records, err
		}
		if shdr.SectionType() != elf.SHT_DYNAMIC {
			continue
		}

		offset, size := shdr.Span()
		if err := checkSpan(buf, offset, size, WhatDynamic, name); err != nil {
			return records, err
		}

		// A trailing partial entry is ignored.
		for j := uint64(0); j < size/dynsize; j++ {
			entOff := offset + j*dynsize
			dyn, err := readAt[D](buf, entOff, WhatDynamic, name)
			if err != nil {
				return records, err
			}
			if dyn.DynTag() != elf.DT_FLAGS_1 {
				continue
			}

			old := dyn.Value()
			val := old | uint64(elf.DF_1_NODELETE)
			if val == old {
				continue
			}

			records = append(records, Record{
				File:    name,
				Section: i,
				Entry:   j,
				Offset:  entOff,
				Old:     old,
				New:     val,
			})
			if mode == ModeMutate {
				if err := utils.Write(buf, entOff, dyn.WithValue(val)); err != nil {
					return records, err
				}
			}
		}
	}

	return records, nil
}
