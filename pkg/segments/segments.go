// Package segments groups resolved definitions by segment and section for
// reporting.
package segments

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/machop-dev/machop/pkg/object"
	"github.com/machop-dev/machop/pkg/symbol"
)

// SectionTable looks up the index-th (0-based) section of an object.
// *object.Set implements it.
type SectionTable interface {
	Section(id, index int) (object.Section, bool)
}

// Map is segment name -> section name -> symbol name -> symbol.
type Map map[string]map[string]map[string]symbol.Symbol

func (m Map) add(sec object.Section, sym symbol.Symbol) {
	sections, ok := m[sec.Seg]
	if !ok {
		sections = make(map[string]map[string]symbol.Symbol)
		m[sec.Seg] = sections
	}
	syms, ok := sections[sec.Name]
	if !ok {
		syms = make(map[string]symbol.Symbol)
		sections[sec.Name] = syms
	}
	syms[sym.Name] = sym
}

// Group buckets every defined symbol that lives in a section.
// Stab, undefined, absolute and common symbols are skipped.
func Group(symbols []symbol.Symbol, table SectionTable) Map {
	m := make(Map)
	for _, sym := range symbols {
		if sym.IsStab() || sym.IsUndefined() || sym.Sect == 0 {
			continue
		}
		sec, ok := table.Section(sym.Ref.Object, int(sym.Sect)-1)
		if !ok {
			slog.Warn("Symbol refers to a nonexistent section", "symbol", sym.Name,
				"ref", sym.Ref, "sect", sym.Sect)
			continue
		}
		m.add(sec, sym)
	}
	return m
}

// Print writes the map sorted by segment, section and symbol name.
func Print(w io.Writer, m Map) error {
	for _, seg := range slices.Sorted(maps.Keys(m)) {
		if _, err := fmt.Fprintln(w, seg); err != nil {
			return err
		}
		sections := m[seg]
		for _, sect := range slices.Sorted(maps.Keys(sections)) {
			if _, err := fmt.Fprintf(w, "\t%s\n", sect); err != nil {
				return err
			}
			syms := sections[sect]
			for _, name := range slices.Sorted(maps.Keys(syms)) {
				if _, err := fmt.Fprintf(w, "\t\t%s\n", name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
