package elfimage

import (
	"debug/elf"

	"nodelete/pkg/layout"
	"nodelete/pkg/utils"
)

func (img *Image) Clone() []byte {
	return append([]byte(nil), img.Bytes...)
}

// EntryOffset returns the file offset of entry j of section idx.
func (img *Image) EntryOffset(idx, j int) uint64 {
	return img.Chunks[idx].Offset + uint64(j)*uint64(img.Layout.DynSize)
}

// DynValue decodes the value of entry j of dynamic section idx from buf.
func (img *Image) DynValue(buf []byte, idx, j int) uint64 {
	off := img.EntryOffset(idx, j)
	if img.Layout.Class == elf.ELFCLASS32 {
		d, err := utils.Read[layout.Dyn32](buf, off)
		utils.MustNo(err)
		return d.Value()
	}
	d, err := utils.Read[layout.Dyn64](buf, off)
	utils.MustNo(err)
	return d.Value()
}

// SetShnum overwrites e_shnum in the header.
func (img *Image) SetShnum(n uint16) {
	// e_shnum is the second to last field in both header classes.
	put(img.Bytes, uint64(img.Layout.HeaderSize)-4, n)
}

// SetShoff overwrites e_shoff in the header.
func (img *Image) SetShoff(off uint64) {
	if img.Layout.Class == elf.ELFCLASS32 {
		put(img.Bytes, 32, uint32(off))
		return
	}
	put(img.Bytes, 40, off)
}

// SetSectionSpan overwrites sh_offset and sh_size of section idx.
func (img *Image) SetSectionSpan(idx int, offset, size uint64) {
	base := img.Shoff + uint64(idx)*uint64(img.Layout.SectionHeaderSize)
	if img.Layout.Class == elf.ELFCLASS32 {
		put(img.Bytes, base+16, uint32(offset))
		put(img.Bytes, base+20, uint32(size))
		return
	}
	put(img.Bytes, base+24, offset)
	put(img.Bytes, base+32, size)
}

// SetSectionType overwrites sh_type of section idx.
func (img *Image) SetSectionType(idx int, typ elf.SectionType) {
	base := img.Shoff + uint64(idx)*uint64(img.Layout.SectionHeaderSize)
	put(img.Bytes, base+4, uint32(typ))
}
