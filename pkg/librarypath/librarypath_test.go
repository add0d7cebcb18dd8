package librarypath

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func touch(t *testing.T, p string) {
	t.Helper()
	assert.NilError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	assert.NilError(t, os.WriteFile(p, nil, 0o644))
}

func TestFindDirectoryBeatsExtension(t *testing.T) {
	td := t.TempDir()
	a := filepath.Join(td, "a")
	b := filepath.Join(td, "b")
	touch(t, filepath.Join(a, "libfoo.a"))
	touch(t, filepath.Join(b, "libfoo.tbd"))

	p, ok := Find([]string{a, b}, "foo")
	assert.Assert(t, ok)
	assert.Equal(t, filepath.Join(a, "libfoo.a"), p)
}

func TestFindExtensionOrder(t *testing.T) {
	td := t.TempDir()
	touch(t, filepath.Join(td, "libfoo.a"))
	touch(t, filepath.Join(td, "libfoo.dylib"))
	touch(t, filepath.Join(td, "libfoo.tbd"))

	p, ok := Find([]string{td}, "foo")
	assert.Assert(t, ok)
	assert.Equal(t, filepath.Join(td, "libfoo.tbd"), p)
}

func TestFindMiss(t *testing.T) {
	td := t.TempDir()
	assert.NilError(t, os.Mkdir(filepath.Join(td, "libdir.tbd"), 0o755))
	_, ok := Find([]string{td, filepath.Join(td, "nonexistent")}, "dir")
	assert.Assert(t, !ok)
}

func TestSearchPaths(t *testing.T) {
	type testCase struct {
		name     string
		user     []string
		sysroot  string
		expected []string
	}
	testCases := []testCase{
		{
			name:     "defaults",
			expected: []string{"/usr/lib", "/usr/local/lib"},
		},
		{
			name:     "dedup",
			user:     []string{"/usr/lib", "/opt/lib", "/opt/lib"},
			expected: []string{"/opt/lib", "/usr/lib", "/usr/local/lib"},
		},
		{
			name:     "sysroot",
			user:     []string{"vendor/lib"},
			sysroot:  "/sdk",
			expected: []string{"/sdk/usr/lib", "/sdk/usr/local/lib", "vendor/lib"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.DeepEqual(t, tc.expected, SearchPaths(tc.user, tc.sysroot))
		})
	}
}

func TestReroot(t *testing.T) {
	assert.Equal(t, "/sdk/usr/lib", Reroot("/sdk", "/usr/lib"))
	assert.Equal(t, "vendor/lib", Reroot("/sdk", "vendor/lib"))
}
