// Package elfimage builds small little-endian ELF images for tests.
package elfimage

import (
	"debug/elf"

	"nodelete/pkg/layout"
	"nodelete/pkg/utils"
)

const align = 8

type Builder struct {
	Layout layout.Layout
	Chunks []*Chunk

	dynamic int
}

// New returns a builder for class, which must be ELFCLASS32 or ELFCLASS64.
func New(class elf.Class) *Builder {
	l, ok := layout.ForClass(class)
	utils.Assert(ok)
	return &Builder{
		Layout:  l,
		Chunks:  []*Chunk{{Type: elf.SHT_NULL}},
		dynamic: -1,
	}
}

// AddSection appends a section and returns its index.
func (b *Builder) AddSection(typ elf.SectionType, contents []byte) int {
	b.Chunks = append(b.Chunks, &Chunk{Type: typ, Contents: contents})
	return len(b.Chunks) - 1
}

// AddDynamic appends an SHT_DYNAMIC section holding entries. The first
// dynamic section added also gets a PT_DYNAMIC program header.
func (b *Builder) AddDynamic(entries ...Dyn) int {
	contents := make([]byte, uint64(len(entries))*uint64(b.Layout.DynSize))
	for i, d := range entries {
		off := uint64(i) * uint64(b.Layout.DynSize)
		if b.Layout.Class == elf.ELFCLASS32 {
			put(contents, off, layout.Dyn32{Tag: int32(d.Tag), Val: layout.Word32(d.Val)})
		} else {
			put(contents, off, layout.Dyn64{Tag: int64(d.Tag), Val: d.Val})
		}
	}

	idx := b.AddSection(elf.SHT_DYNAMIC, contents)
	if b.dynamic < 0 {
		b.dynamic = idx
	}
	return idx
}

func put[T any](buf []byte, off uint64, val T) {
	utils.MustNo(utils.Write(buf, off, val))
}

func alignTo(v uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// Image is a built ELF file.
type Image struct {
	Layout layout.Layout
	Bytes  []byte
	Shoff  uint64
	Shnum  uint16
	Chunks []*Chunk
}

// Build lays out header, program header, section contents and the section
// header table, in that order.
func (b *Builder) Build() *Image {
	l := b.Layout
	off := uint64(l.HeaderSize)

	var phoff uint64
	var phnum uint16
	if b.dynamic >= 0 {
		phoff, phnum = off, 1
		off += uint64(l.ProgHeaderSize)
	}

	for i, c := range b.Chunks {
		if i == 0 {
			continue
		}
		off = alignTo(off)
		c.Offset = off
		if c.Size == 0 {
			c.Size = uint64(len(c.Contents))
		}
		off += uint64(len(c.Contents))
	}

	shoff := alignTo(off)
	shnum := uint16(len(b.Chunks))
	buf := make([]byte, shoff+uint64(shnum)*uint64(l.SectionHeaderSize))

	for _, c := range b.Chunks {
		copy(buf[c.Offset:], c.Contents)
	}

	if l.Class == elf.ELFCLASS32 {
		b.write32(buf, phoff, phnum, shoff, shnum)
	} else {
		b.write64(buf, phoff, phnum, shoff, shnum)
	}

	return &Image{
		Layout: l,
		Bytes:  buf,
		Shoff:  shoff,
		Shnum:  shnum,
		Chunks: b.Chunks,
	}
}

func ident(class elf.Class) (id [elf.EI_NIDENT]byte) {
	layout.WriteMagic(id[:])
	id[elf.EI_CLASS] = uint8(class)
	id[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	id[elf.EI_VERSION] = uint8(elf.EV_CURRENT)
	return id
}

func (b *Builder) write32(buf []byte, phoff uint64, phnum uint16, shoff uint64, shnum uint16) {
	put(buf, 0, layout.Header32{
		Ident:     ident(elf.ELFCLASS32),
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_386),
		Version:   uint32(elf.EV_CURRENT),
		Phoff:     uint32(phoff),
		Shoff:     uint32(shoff),
		Ehsize:    uint16(layout.Header32Size),
		Phentsize: uint16(layout.Prog32Size),
		Phnum:     phnum,
		Shentsize: uint16(layout.Section32Size),
		Shnum:     shnum,
	})

	if phnum > 0 {
		dyn := b.Chunks[b.dynamic]
		put(buf, phoff, layout.Prog32{
			Type:     uint32(elf.PT_DYNAMIC),
			Flags:    uint32(elf.PF_R | elf.PF_W),
			Offset:   uint32(dyn.Offset),
			VAddr:    uint32(dyn.Offset),
			PAddr:    uint32(dyn.Offset),
			FileSize: uint32(dyn.Size),
			MemSize:  uint32(dyn.Size),
			Align:    align,
		})
	}

	for i, c := range b.Chunks {
		if i == 0 {
			continue
		}
		var entsize uint32
		if c.Type == elf.SHT_DYNAMIC {
			entsize = uint32(layout.Dyn32Size)
		}
		put(buf, shoff+uint64(i)*uint64(layout.Section32Size), layout.Section32{
			Type:      uint32(c.Type),
			Flags:     uint32(elf.SHF_ALLOC),
			Offset:    uint32(c.Offset),
			Size:      uint32(c.Size),
			Addralign: align,
			Entsize:   entsize,
		})
	}
}

func (b *Builder) write64(buf []byte, phoff uint64, phnum uint16, shoff uint64, shnum uint16) {
	put(buf, 0, layout.Header64{
		Ident:     ident(elf.ELFCLASS64),
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Phoff:     phoff,
		Shoff:     shoff,
		Ehsize:    uint16(layout.Header64Size),
		Phentsize: uint16(layout.Prog64Size),
		Phnum:     phnum,
		Shentsize: uint16(layout.Section64Size),
		Shnum:     shnum,
	})

	if phnum > 0 {
		dyn := b.Chunks[b.dynamic]
		put(buf, phoff, layout.Prog64{
			Type:     uint32(elf.PT_DYNAMIC),
			Flags:    uint32(elf.PF_R | elf.PF_W),
			Offset:   dyn.Offset,
			VAddr:    dyn.Offset,
			PAddr:    dyn.Offset,
			FileSize: dyn.Size,
			MemSize:  dyn.Size,
			Align:    align,
		})
	}

	for i, c := range b.Chunks {
		if i == 0 {
			continue
		}
		var entsize uint64
		if c.Type == elf.SHT_DYNAMIC {
			entsize = uint64(layout.Dyn64Size)
		}
		put(buf, shoff+uint64(i)*uint64(layout.Section64Size), layout.Section64{
			Type:      uint32(c.Type),
			Flags:     uint64(elf.SHF_ALLOC),
			Offset:    c.Offset,
			Size:      c.Size,
			Addralign: align,
			Entsize:   entsize,
		})
	}
}
