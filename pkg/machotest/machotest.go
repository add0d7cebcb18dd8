// Package machotest builds minimal Mach-O images, fat binaries and static
// archives for tests.
package machotest

import (
	"bytes"
	"debug/macho"
	"encoding/binary"
	"fmt"

	"github.com/blakesmith/ar"
)

const (
	headerSize64  = 32
	segmentSize64 = 72
	sectionSize64 = 80
	symtabSize    = 16 + 8
	nlistSize64   = 16
)

type Sym struct {
	Name  string
	Type  uint8
	Sect  uint8
	Desc  uint16
	Value uint64
}

// Defined is a global definition in the given 1-based section.
func Defined(name string, sect uint8) Sym {
	return Sym{Name: name, Type: 0x0f, Sect: sect}
}

// Weak is a global weak definition in the given 1-based section.
func Weak(name string, sect uint8) Sym {
	return Sym{Name: name, Type: 0x0f, Sect: sect, Desc: 0x0080}
}

func Undefined(name string) Sym {
	return Sym{Name: name, Type: 0x01}
}

// Absolute is a global absolute symbol (n_sect == 0).
func Absolute(name string, value uint64) Sym {
	return Sym{Name: name, Type: 0x03, Value: value}
}

type Section struct {
	Seg  string
	Name string
}

// TextAndData is the usual section table of a compiled object.
var TextAndData = []Section{
	{Seg: "__TEXT", Name: "__text"},
	{Seg: "__DATA", Name: "__data"},
}

type File struct {
	Cpu      macho.Cpu
	Type     macho.Type
	Sections []Section
	Syms     []Sym
	// Gap is the number of filler bytes placed after the load commands and
	// again between the symbol table and the string table.
	Gap int
}

// Object returns an ARM64 relocatable object.
func Object(syms ...Sym) File {
	return File{
		Cpu:      macho.CpuArm64,
		Type:     macho.TypeObj,
		Sections: TextAndData,
		Syms:     syms,
	}
}

func putName(b []byte, s string) {
	copy(b[:16], s)
}

// Bytes encodes the file as a little-endian 64-bit Mach-O image with one
// unnamed segment holding all sections, a symbol table and a string table.
func (f File) Bytes() []byte {
	le := binary.LittleEndian
	segSize := segmentSize64 + sectionSize64*len(f.Sections)
	cmdsSize := segSize + symtabSize
	symOff := headerSize64 + cmdsSize + f.Gap

	strtab := []byte{0}
	nlists := make([]byte, nlistSize64*len(f.Syms))
	for i, s := range f.Syms {
		e := nlists[i*nlistSize64:]
		le.PutUint32(e, uint32(len(strtab)))
		e[4] = s.Type
		e[5] = s.Sect
		le.PutUint16(e[6:], s.Desc)
		le.PutUint64(e[8:], s.Value)
		strtab = append(strtab, s.Name...)
		strtab = append(strtab, 0)
	}
	strOff := symOff + len(nlists) + f.Gap

	b := make([]byte, symOff)
	le.PutUint32(b, macho.Magic64)
	le.PutUint32(b[4:], uint32(f.Cpu))
	le.PutUint32(b[12:], uint32(f.Type))
	le.PutUint32(b[16:], 2)
	le.PutUint32(b[20:], uint32(cmdsSize))

	seg := b[headerSize64:]
	le.PutUint32(seg, uint32(macho.LoadCmdSegment64))
	le.PutUint32(seg[4:], uint32(segSize))
	le.PutUint32(seg[64:], uint32(len(f.Sections)))
	for i, s := range f.Sections {
		sec := seg[segmentSize64+i*sectionSize64:]
		putName(sec, s.Name)
		putName(sec[16:], s.Seg)
	}

	symtab := b[headerSize64+segSize:]
	le.PutUint32(symtab, uint32(macho.LoadCmdSymtab))
	le.PutUint32(symtab[4:], symtabSize)
	le.PutUint32(symtab[8:], uint32(symOff))
	le.PutUint32(symtab[12:], uint32(len(f.Syms)))
	le.PutUint32(symtab[16:], uint32(strOff))
	le.PutUint32(symtab[20:], uint32(len(strtab)))

	for i := headerSize64 + cmdsSize; i < symOff; i++ {
		b[i] = 0xee
	}
	b = append(b, nlists...)
	b = append(b, bytes.Repeat([]byte{0xee}, f.Gap)...)
	b = append(b, strtab...)
	return b
}

type Slice struct {
	Cpu  macho.Cpu
	Data []byte
}

// Fat encodes a fat binary with 4096-byte aligned slices.
func Fat(slices ...Slice) []byte {
	const align = 12
	be := binary.BigEndian
	b := make([]byte, 8+20*len(slices))
	be.PutUint32(b, macho.MagicFat)
	be.PutUint32(b[4:], uint32(len(slices)))
	for i, s := range slices {
		off := (len(b) + (1<<align - 1)) &^ (1<<align - 1)
		b = append(b, make([]byte, off-len(b))...)
		e := b[8+20*i:]
		be.PutUint32(e, uint32(s.Cpu))
		be.PutUint32(e[8:], uint32(off))
		be.PutUint32(e[12:], uint32(len(s.Data)))
		be.PutUint32(e[16:], align)
		b = append(b, s.Data...)
	}
	return b
}

type Member struct {
	Name string
	Data []byte
}

// Archive encodes a BSD-style static archive, including an empty
// "__.SYMDEF SORTED" symbol table member.
func Archive(members ...Member) []byte {
	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	if err := w.WriteGlobalHeader(); err != nil {
		panic(err)
	}
	all := append([]Member{{Name: "__.SYMDEF SORTED", Data: make([]byte, 8)}}, members...)
	for _, m := range all {
		name := m.Name
		for len(name)%8 != 0 {
			name += "\x00"
		}
		payload := append([]byte(name), m.Data...)
		hdr := &ar.Header{
			Name: fmt.Sprintf("#1/%d", len(name)),
			Mode: 0o644,
			Size: int64(len(payload)),
		}
		if err := w.WriteHeader(hdr); err != nil {
			panic(err)
		}
		if _, err := w.Write(payload); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}
