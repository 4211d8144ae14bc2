package nodelete

import (
	"debug/elf"
	"fmt"

	"github.com/pkg/errors"
)

// Structure names used in SizeError.What.
const (
	WhatHeader       = "Elf header"
	WhatSectionTable = "Section header"
	WhatDynamic      = "Dynamic section"
)

// SizeError reports a structure whose extent runs past the end of the file.
// It is fatal for the file it was found in.
type SizeError struct {
	File   string
	What   string
	Offset uint64
	End    uint64
	Size   uint64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s for '%s' would end at %d but file size only %d", e.What, e.File, e.End, e.Size)
}

// ClassError reports an EI_CLASS byte that is neither ELFCLASS32 nor ELFCLASS64.
type ClassError struct {
	File  string
	Class elf.Class
}

func (e *ClassError) Error() string {
	return fmt.Sprintf("Incorrect bit value %d in '%s'", uint8(e.Class), e.File)
}

// ErrTooSmall is returned by OpenFile for files shorter than any ELF header.
var ErrTooSmall = errors.New("file too small to be ELF")
