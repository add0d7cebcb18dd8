package object

import (
	"bytes"
	"debug/macho"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/machop-dev/machop/pkg/arch"
	"github.com/machop-dev/machop/pkg/logutil"
	"github.com/machop-dev/machop/pkg/tbd"
)

const archiveMagic = "!<arch>\n"

func isFat(b []byte) bool {
	return len(b) >= 4 && binary.BigEndian.Uint32(b) == macho.MagicFat
}

func isMachO(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		switch order.Uint32(b) {
		case macho.Magic32, macho.Magic64:
			return true
		}
	}
	return false
}

func isArchive(b []byte) bool {
	return bytes.HasPrefix(b, []byte(archiveMagic))
}

func isELF(b []byte) bool {
	return bytes.HasPrefix(b, []byte("\x7fELF"))
}

func isPE(b []byte) bool {
	return bytes.HasPrefix(b, []byte("MZ"))
}

// Classify parses the content of the input file name for the architecture a.
//
// Content that is neither Mach-O, an archive, ELF nor PE is parsed as a tbd
// document. If that fails too, a *FormatError is returned, except for
// tbd.ErrNoValidDocument, which is returned as is.
func Classify(a arch.Architecture, name string, b []byte) (*Input, error) {
	switch {
	case isFat(b):
		return classifyFat(a, name, b)
	case isMachO(b):
		obj, dep, err := parseThin(a, name, b, false)
		if err != nil {
			return nil, err
		}
		in := &Input{Name: name, Kind: KindSingle, Dependency: dep}
		if obj != nil {
			in.Objects = []*Object{obj}
		}
		return in, nil
	case isArchive(b):
		objs, err := parseArchive(a, name, b)
		if err != nil {
			return nil, err
		}
		return &Input{Name: name, Kind: KindArchive, Objects: objs}, nil
	case isELF(b):
		return nil, &UnsupportedInputError{Kind: UnsupportedELF, Name: name}
	case isPE(b):
		return nil, &UnsupportedInputError{Kind: UnsupportedPE, Name: name}
	}
	dylib, err := tbd.Parse(a, b)
	if err != nil {
		var perr *tbd.ParseError
		if errors.As(err, &perr) {
			return nil, &FormatError{Name: name, Err: err}
		}
		return nil, fmt.Errorf("failed to parse tbd %q: %w", name, err)
	}
	return &Input{
		Name: name,
		Kind: KindTbd,
		Dependency: &Dependency{
			Name: name,
			Tbd:  dylib,
		},
	}, nil
}

// parseThin parses a single-architecture Mach-O image. Relocatable objects
// are returned as *Object, executables and dylibs as *Dependency.
func parseThin(a arch.Architecture, name string, b []byte, owned bool) (*Object, *Dependency, error) {
	f, err := macho.NewFile(bytes.NewReader(b))
	if err != nil {
		return nil, nil, &FormatError{Name: name, Err: err}
	}
	if f.Cpu != a.Cpu() {
		return nil, nil, fmt.Errorf("%q is built for %s, not %s: %w",
			name, arch.CpuName(f.Cpu), a, ErrArchitectureMismatch)
	}
	switch f.Type {
	case macho.TypeObj:
		obj := &Object{
			Name:  name,
			Owned: owned,
		}
		for _, sec := range f.Sections {
			obj.Sections = append(obj.Sections, Section{Seg: sec.Seg, Name: sec.Name})
		}
		if f.Symtab != nil {
			obj.syms = f.Symtab.Syms
			if err := restoreSymbolNames(b, f); err != nil {
				return nil, nil, &FormatError{Name: name, Err: err}
			}
		}
		logutil.Trace("Parsed object", "name", name, "owned", owned,
			"sections", len(obj.Sections), "symbols", len(obj.syms))
		return obj, nil, nil
	case macho.TypeExec, macho.TypeDylib:
		slog.Debug("Treating Mach-O image as a dynamic dependency", "name", name, "type", f.Type)
		return nil, &Dependency{Name: name, Native: f.Type}, nil
	}
	return nil, nil, &UnsupportedInputError{
		Kind:   UnsupportedFiletype,
		Name:   name,
		Detail: f.Type.String(),
	}
}

// restoreSymbolNames re-reads the symbol names from the string table.
// debug/macho strips the leading underscore of every name containing a dot
// (Go issue 33808), which would corrupt names such as
// "_OBJC_IVAR_$_Foo.bar" or "__ZN3foo3barE.llvm.123".
func restoreSymbolNames(b []byte, f *macho.File) error {
	st, bo := f.Symtab, f.ByteOrder
	nlistSize := uint64(16)
	if f.Magic == macho.Magic32 {
		nlistSize = 12
	}
	// debug/macho does not fill st.SymtabCmd
	var hdr macho.SymtabCmd
	if err := binary.Read(bytes.NewReader(st.Raw()), bo, &hdr); err != nil {
		return fmt.Errorf("failed to read the symtab command: %w", err)
	}
	strtab := b[min(uint64(hdr.Stroff), uint64(len(b))):]
	strtab = strtab[:min(uint64(hdr.Strsize), uint64(len(strtab)))]
	for i := range st.Syms {
		off := uint64(hdr.Symoff) + uint64(i)*nlistSize
		if off+4 > uint64(len(b)) {
			return fmt.Errorf("symbol %d is out of range", i)
		}
		strx := uint64(bo.Uint32(b[off:]))
		if strx >= uint64(len(strtab)) {
			return fmt.Errorf("invalid name of symbol %d", i)
		}
		name := strtab[strx:]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		st.Syms[i].Name = string(name)
	}
	return nil
}
