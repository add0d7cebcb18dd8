// Package object classifies linker inputs and extracts the relocatable
// Mach-O objects and dynamic library dependencies they contain.
package object

import (
	"debug/macho"
	"errors"
	"fmt"

	"github.com/machop-dev/machop/pkg/symbol"
	"github.com/machop-dev/machop/pkg/tbd"
)

var (
	ErrArchitectureMismatch = errors.New("no matching architecture")
	ErrNotImplemented       = errors.New("not implemented")
)

type FormatError struct {
	Name string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unrecognized file format %q: %v", e.Name, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

type Unsupported int

const (
	UnsupportedELF Unsupported = iota
	UnsupportedPE
	UnsupportedFiletype
	UnsupportedArchiveMember
	UnsupportedNativeDylib
)

func (u Unsupported) String() string {
	switch u {
	case UnsupportedELF:
		return "ELF object"
	case UnsupportedPE:
		return "PE object"
	case UnsupportedFiletype:
		return "Mach-O filetype"
	case UnsupportedArchiveMember:
		return "non-object archive member"
	case UnsupportedNativeDylib:
		return "native dylib dependency"
	}
	return fmt.Sprintf("Unsupported(%d)", int(u))
}

// UnsupportedInputError is returned for inputs the linker recognizes but
// cannot handle yet. It wraps ErrNotImplemented.
type UnsupportedInputError struct {
	Kind   Unsupported
	Name   string
	Detail string
}

func (e *UnsupportedInputError) Error() string {
	s := fmt.Sprintf("unsupported input %q: %s", e.Name, e.Kind)
	if e.Detail != "" {
		s += " (" + e.Detail + ")"
	}
	return s
}

func (e *UnsupportedInputError) Unwrap() error {
	return ErrNotImplemented
}

type Kind int

const (
	KindSingle Kind = iota
	KindFat
	KindArchive
	KindTbd
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindFat:
		return "fat"
	case KindArchive:
		return "archive"
	case KindTbd:
		return "tbd"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Section is an entry of the flattened section table of an object.
// Symbols refer to it by 1-based index.
type Section struct {
	Seg  string
	Name string
}

// Object is a relocatable Mach-O object.
type Object struct {
	ID   int
	Name string
	// Owned is set for objects extracted from a fat binary or an archive.
	Owned    bool
	Sections []Section

	syms []macho.Symbol
}

// Symbols returns the symbol table of the object.
func (o *Object) Symbols() []symbol.Symbol {
	res := make([]symbol.Symbol, len(o.syms))
	for i, s := range o.syms {
		res[i] = symbol.FromMachO(o.ID, i, s)
	}
	return res
}

// Dependency is a dynamic library the output is linked against.
// Exactly one of Tbd and Native is set.
type Dependency struct {
	Name   string
	Tbd    *tbd.Dylib
	Native macho.Type
}

func (d *Dependency) IsNative() bool {
	return d.Tbd == nil
}

// Input is the classified content of one input file.
type Input struct {
	Name       string
	Kind       Kind
	Objects    []*Object
	Dependency *Dependency
}
