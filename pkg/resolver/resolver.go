// Package resolver merges the symbol tables of every input object into one
// global table under the weak/strong override rules, and tracks the names
// that are referenced but not defined.
package resolver

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/emirpasic/gods/sets/treeset"

	"github.com/machop-dev/machop/pkg/logutil"
	"github.com/machop-dev/machop/pkg/object"
	"github.com/machop-dev/machop/pkg/symbol"
)

// UnresolvedError lists the names still undefined after resolution.
type UnresolvedError struct {
	Names []string
}

func (e *UnresolvedError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined symbol: %s", e.Names[0])
	}
	return fmt.Sprintf("%d undefined symbols: %s", len(e.Names), strings.Join(e.Names, ", "))
}

// Resolver owns the global symbol table and the set of undefined names.
// The zero value is not usable; use New.
type Resolver struct {
	table     map[string]symbol.Symbol
	undefined *treeset.Set
}

func New() *Resolver {
	return &Resolver{
		table:     make(map[string]symbol.Symbol),
		undefined: treeset.NewWithStringComparator(),
	}
}

// Add folds one symbol into the table.
//
// An undefined reference is recorded unless the name is already defined.
// A definition is stored when the name is new, or when it is strong and the
// stored one is weak. Of two strong definitions the first is kept and a
// warning is logged; of two weak ones the first is kept.
func (r *Resolver) Add(sym symbol.Symbol) {
	if sym.IsStab() {
		return
	}
	if sym.IsUndefined() {
		if _, ok := r.table[sym.Name]; !ok {
			r.undefined.Add(sym.Name)
		}
		return
	}
	existing, ok := r.table[sym.Name]
	switch {
	case !ok:
		r.table[sym.Name] = sym
	case existing.IsWeak() && !sym.IsWeak():
		logutil.Trace("Strong definition overrides weak one", "symbol", sym.Name,
			"old", existing.Ref, "new", sym.Ref)
		r.table[sym.Name] = sym
	case !existing.IsWeak() && !sym.IsWeak():
		slog.Warn("Duplicate strong definition, keeping the first one", "symbol", sym.Name,
			"first", existing.Ref, "duplicate", sym.Ref)
		return
	default:
		logutil.Trace("Weak definition ignored", "symbol", sym.Name,
			"stored", existing.Ref, "ignored", sym.Ref)
		return
	}
	r.undefined.Remove(sym.Name)
}

func (r *Resolver) AddObject(obj *object.Object) {
	syms := obj.Symbols()
	logutil.Trace("Adding symbols", "object", obj.Name, "count", len(syms))
	for _, sym := range syms {
		r.Add(sym)
	}
}

// AddSet adds the objects extracted from containers, then the standalone
// ones, each group in input order.
func (r *Resolver) AddSet(set *object.Set) {
	for _, obj := range set.Owned {
		r.AddObject(obj)
	}
	for _, obj := range set.Standalone {
		r.AddObject(obj)
	}
	slog.Debug("Built symbol table", "objects", set.Len(), "symbols", len(r.table),
		"undefined", r.undefined.Size())
}

func (r *Resolver) Lookup(name string) (symbol.Symbol, bool) {
	sym, ok := r.table[name]
	return sym, ok
}

// Len returns the number of stored definitions.
func (r *Resolver) Len() int {
	return len(r.table)
}

// Symbols returns the stored definitions sorted by name.
func (r *Resolver) Symbols() []symbol.Symbol {
	res := make([]symbol.Symbol, 0, len(r.table))
	for _, sym := range r.table {
		res = append(res, sym)
	}
	slices.SortFunc(res, func(a, b symbol.Symbol) int {
		return strings.Compare(a.Name, b.Name)
	})
	return res
}

// Undefined returns the undefined names in sorted order.
func (r *Resolver) Undefined() []string {
	res := make([]string, 0, r.undefined.Size())
	it := r.undefined.Iterator()
	for it.Next() {
		res = append(res, it.Value().(string))
	}
	return res
}

// IsUndefined reports whether name is referenced but not defined.
func (r *Resolver) IsUndefined(name string) bool {
	return r.undefined.Contains(name)
}

// Err returns an *UnresolvedError if any name is still undefined.
func (r *Resolver) Err() error {
	if r.undefined.Empty() {
		return nil
	}
	return &UnresolvedError{Names: r.Undefined()}
}
