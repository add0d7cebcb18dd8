// Package librarypath resolves "-l" library names against the search path.
package librarypath

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/machop-dev/machop/pkg/logutil"
)

// Extensions are tried in this order within each directory.
var Extensions = []string{"tbd", "dylib", "a"}

// DefaultSearchPaths are appended to the user-supplied search paths.
var DefaultSearchPaths = []string{"/usr/lib", "/usr/local/lib"}

// SearchPaths returns the effective library search path.
// The defaults are appended, the list is sorted and deduplicated, and then
// every absolute entry is re-rooted under sysroot when sysroot is set.
func SearchPaths(user []string, sysroot string) []string {
	paths := make([]string, 0, len(user)+len(DefaultSearchPaths))
	paths = append(paths, user...)
	paths = append(paths, DefaultSearchPaths...)
	slices.Sort(paths)
	paths = slices.Compact(paths)
	if sysroot == "" {
		return paths
	}
	for i, p := range paths {
		paths[i] = Reroot(sysroot, p)
	}
	return paths
}

// Reroot joins an absolute path under root. Relative paths are returned as is.
func Reroot(root, p string) string {
	if !filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, strings.TrimLeft(p, string(filepath.Separator)))
}

// Find returns the first existing lib<name>.<ext>.
// Directory order takes precedence over extension order.
func Find(searchPaths []string, name string) (string, bool) {
	logutil.Trace("Discovering library", "library", name)
	for _, dir := range searchPaths {
		for _, ext := range Extensions {
			candidate := filepath.Join(dir, "lib"+name+"."+ext)
			logutil.Trace("Trying candidate", "library", name, "candidate", candidate)
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
				logutil.Trace("Using candidate", "library", name, "candidate", candidate)
				return candidate, true
			}
		}
	}
	return "", false
}
