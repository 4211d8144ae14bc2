package elfimage

import "debug/elf"

// Chunk is one section of the image being built.
type Chunk struct {
	Type     elf.SectionType
	Contents []byte

	// Offset and Size are filled in by Build. Size can be overridden to
	// describe a section that does not match its contents.
	Offset uint64
	Size   uint64
}

// Dyn is a class-independent dynamic entry.
type Dyn struct {
	Tag elf.DynTag
	Val uint64
}
