package layout

import (
	"debug/elf"
	"unsafe"
)

type Word32 = uint32
type Word64 = uint64

type Header32 struct {
	Ident     [16]byte /* File identification. */
	Type      uint16   /* File type. */
	Machine   uint16   /* Machine architecture. */
	Version   uint32   /* ELF format version. */
	Entry     uint32   /* Entry point. */
	Phoff     uint32   /* Program header file offset. */
	Shoff     uint32   /* Section header file offset. */
	Flags     uint32   /* Architecture-specific flags. */
	Ehsize    uint16   /* Size of ELF header in bytes. */
	Phentsize uint16   /* Size of program header entry. */
	Phnum     uint16   /* Number of program header entries. */
	Shentsize uint16   /* Size of section header entry. */
	Shnum     uint16   /* Number of section header entries. */
	Shstrndx  uint16   /* Section name strings section. */
}

type Header64 struct {
	Ident     [16]byte /* File identification. */
	Type      uint16   /* File type. */
	Machine   uint16   /* Machine architecture. */
	Version   uint32   /* ELF format version. */
	Entry     uint64   /* Entry point. */
	Phoff     uint64   /* Program header file offset. */
	Shoff     uint64   /* Section header file offset. */
	Flags     uint32   /* Architecture-specific flags. */
	Ehsize    uint16   /* Size of ELF header in bytes. */
	Phentsize uint16   /* Size of program header entry. */
	Phnum     uint16   /* Number of program header entries. */
	Shentsize uint16   /* Size of section header entry. */
	Shnum     uint16   /* Number of section header entries. */
	Shstrndx  uint16   /* Section name strings section. */
}

type Section32 struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

type Section64 struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

type Prog32 struct {
	Type     uint32
	Offset   uint32
	VAddr    uint32
	PAddr    uint32
	FileSize uint32
	MemSize  uint32
	Flags    uint32
	Align    uint32
}

type Prog64 struct {
	Type     uint32
	Flags    uint32
	Offset   uint64
	VAddr    uint64
	PAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

type Dyn32 struct {
	Tag int32  /* Entry type. */
	Val Word32 /* Integer or address value. */
}

type Dyn64 struct {
	Tag int64  /* Entry type. */
	Val Word64 /* Integer or address value. */
}

const Header32Size = unsafe.Sizeof(Header32{})
const Header64Size = unsafe.Sizeof(Header64{})
const Section32Size = unsafe.Sizeof(Section32{})
const Section64Size = unsafe.Sizeof(Section64{})
const Prog32Size = unsafe.Sizeof(Prog32{})
const Prog64Size = unsafe.Sizeof(Prog64{})
const Dyn32Size = unsafe.Sizeof(Dyn32{})
const Dyn64Size = unsafe.Sizeof(Dyn64{})

// FileHeader is satisfied by both ELF header shapes.
type FileHeader interface {
	Header32 | Header64
	SectionTable() (offset uint64, count uint64)
}

type SectionHeader interface {
	Section32 | Section64
	SectionType() elf.SectionType
	Span() (offset uint64, size uint64)
}

// DynEntry is satisfied by both dynamic entry shapes. D is the entry type
// itself so that WithValue can return it.
type DynEntry[D any] interface {
	Dyn32 | Dyn64
	DynTag() elf.DynTag
	Value() uint64
	WithValue(v uint64) D
}

func (h Header32) SectionTable() (uint64, uint64) { return uint64(h.Shoff), uint64(h.Shnum) }
func (h Header64) SectionTable() (uint64, uint64) { return h.Shoff, uint64(h.Shnum) }

func (s Section32) SectionType() elf.SectionType { return elf.SectionType(s.Type) }
func (s Section64) SectionType() elf.SectionType { return elf.SectionType(s.Type) }

func (s Section32) Span() (uint64, uint64) { return uint64(s.Offset), uint64(s.Size) }
func (s Section64) Span() (uint64, uint64) { return s.Offset, s.Size }

func (d Dyn32) DynTag() elf.DynTag { return elf.DynTag(d.Tag) }
func (d Dyn64) DynTag() elf.DynTag { return elf.DynTag(d.Tag) }

func (d Dyn32) Value() uint64 { return uint64(d.Val) }
func (d Dyn64) Value() uint64 { return d.Val }

// WithValue truncates v to the 32-bit word.
func (d Dyn32) WithValue(v uint64) Dyn32 {
	d.Val = Word32(v)
	return d
}

func (d Dyn64) WithValue(v uint64) Dyn64 {
	d.Val = v
	return d
}

// Layout describes the structural shapes of one ELF class.
type Layout struct {
	Class             elf.Class
	WordSize          uintptr
	HeaderSize        uintptr
	SectionHeaderSize uintptr
	ProgHeaderSize    uintptr
	DynSize           uintptr
}

var Layout32 = Layout{
	Class:             elf.ELFCLASS32,
	WordSize:          unsafe.Sizeof(Word32(0)),
	HeaderSize:        Header32Size,
	SectionHeaderSize: Section32Size,
	ProgHeaderSize:    Prog32Size,
	DynSize:           Dyn32Size,
}

var Layout64 = Layout{
	Class:             elf.ELFCLASS64,
	WordSize:          unsafe.Sizeof(Word64(0)),
	HeaderSize:        Header64Size,
	SectionHeaderSize: Section64Size,
	ProgHeaderSize:    Prog64Size,
	DynSize:           Dyn64Size,
}

// ForClass returns the layout for class, or false for anything other than
// ELFCLASS32 and ELFCLASS64.
func ForClass(class elf.Class) (Layout, bool) {
	switch class {
	case elf.ELFCLASS32:
		return Layout32, true
	case elf.ELFCLASS64:
		return Layout64, true
	}
	return Layout{}, false
}

// MinFileSize is the smallest file that can hold any ELF header.
const MinFileSize = Header32Size
