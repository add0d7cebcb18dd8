// Package symbol defines the linker's view of a Mach-O symbol table entry.
package symbol

import (
	"debug/macho"
	"fmt"
	"strings"
)

// nlist n_type masks and values (<mach-o/nlist.h>).
const (
	nStab = 0xe0
	nType = 0x0e
	nExt  = 0x01
	nUndf = 0x0
)

// nlist n_desc bits.
const (
	nWeakRef = 0x0040
	nWeakDef = 0x0080
)

type Flags uint8

const (
	FlagUndefined Flags = 1 << iota
	FlagWeak
	FlagGlobal
	FlagStab
)

func (f Flags) String() string {
	var ss []string
	if f&FlagStab != 0 {
		ss = append(ss, "stab")
	}
	if f&FlagGlobal != 0 {
		ss = append(ss, "global")
	}
	if f&FlagWeak != 0 {
		ss = append(ss, "weak")
	}
	if f&FlagUndefined != 0 {
		ss = append(ss, "undefined")
	} else {
		ss = append(ss, "defined")
	}
	return strings.Join(ss, "|")
}

// Ref locates a symbol as the index into the symbol table of an object.
// Object is the object's ID in its object.Set.
type Ref struct {
	Object int
	Index  int
}

func (r Ref) String() string {
	return fmt.Sprintf("%d:%d", r.Object, r.Index)
}

type Symbol struct {
	Name  string
	Ref   Ref
	Flags Flags
	// Sect is the 1-based section number, 0 for absolute and common symbols.
	Sect  uint8
	Value uint64
}

func (s Symbol) IsUndefined() bool { return s.Flags&FlagUndefined != 0 }
func (s Symbol) IsWeak() bool      { return s.Flags&FlagWeak != 0 }
func (s Symbol) IsGlobal() bool    { return s.Flags&FlagGlobal != 0 }
func (s Symbol) IsStab() bool      { return s.Flags&FlagStab != 0 }

func (s Symbol) String() string {
	return fmt.Sprintf("%s (%s, sect=%d, ref=%s)", s.Name, s.Flags, s.Sect, s.Ref)
}

// DecodeFlags classifies a raw nlist entry.
func DecodeFlags(typ uint8, sect uint8, desc uint16) Flags {
	var f Flags
	if typ&nStab != 0 {
		return FlagStab
	}
	if typ&nExt != 0 {
		f |= FlagGlobal
	}
	if sect == 0 && typ&nType == nUndf {
		f |= FlagUndefined
	}
	if desc&(nWeakRef|nWeakDef) != 0 {
		f |= FlagWeak
	}
	return f
}

// FromMachO converts the symbol at index in the symbol table of the object
// identified by objectID.
func FromMachO(objectID, index int, s macho.Symbol) Symbol {
	return Symbol{
		Name:  s.Name,
		Ref:   Ref{Object: objectID, Index: index},
		Flags: DecodeFlags(s.Type, s.Sect, s.Desc),
		Sect:  s.Sect,
		Value: s.Value,
	}
}
