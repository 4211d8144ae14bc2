package layout

import (
	"bytes"
	"debug/elf"
)

var magic = []byte(elf.ELFMAG)

func HasMagic(contents []byte) bool {
	return len(contents) >= len(magic) && bytes.Equal(contents[:len(magic)], magic)
}

func WriteMagic(contents []byte) {
	copy(contents, magic)
}

func IsLittleEndian(contents []byte) bool {
	return len(contents) > elf.EI_DATA && elf.Data(contents[elf.EI_DATA]) == elf.ELFDATA2LSB
}

// ClassOf returns the raw EI_CLASS byte. It is not validated.
func ClassOf(contents []byte) elf.Class {
	if len(contents) <= elf.EI_CLASS {
		return elf.ELFCLASSNONE
	}
	return elf.Class(contents[elf.EI_CLASS])
}
