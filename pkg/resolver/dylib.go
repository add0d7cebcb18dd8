package resolver

import (
	"log/slog"

	"github.com/machop-dev/machop/pkg/logutil"
	"github.com/machop-dev/machop/pkg/object"
	"github.com/machop-dev/machop/pkg/tbd"
)

// ResolveDylibs removes from the undefined set every name exported by one of
// deps, checked in order. Native dylib dependencies are not supported yet.
func (r *Resolver) ResolveDylibs(deps []object.Dependency) error {
	for _, dep := range deps {
		if dep.IsNative() {
			return &object.UnsupportedInputError{
				Kind:   object.UnsupportedNativeDylib,
				Name:   dep.Name,
				Detail: dep.Native.String(),
			}
		}
		n := r.resolveTbd(dep.Name, dep.Tbd)
		slog.Debug("Resolved against dylib", "dylib", dep.Tbd.InstallName, "symbols", n,
			"remaining", r.undefined.Size())
	}
	return nil
}

func (r *Resolver) resolveTbd(name string, d *tbd.Dylib) int {
	var found []string
	for _, undef := range r.Undefined() {
		if d.Exported(undef) {
			logutil.Trace("Symbol defined by dylib", "symbol", undef, "dylib", name)
			found = append(found, undef)
		}
	}
	for _, s := range found {
		r.undefined.Remove(s)
	}
	return len(found)
}
