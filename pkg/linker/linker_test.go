package linker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/machop-dev/machop/pkg/arch"
	"github.com/machop-dev/machop/pkg/machotest"
	"github.com/machop-dev/machop/pkg/resolver"
)

func writeFile(t *testing.T, p string, b []byte) string {
	t.Helper()
	assert.NilError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	assert.NilError(t, os.WriteFile(p, b, 0o644))
	return p
}

// captureLog redirects the default logger to the returned buffer, without
// timestamps, until the test ends.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

func TestLinkWeakHelper(t *testing.T) {
	td := t.TempDir()
	a := writeFile(t, filepath.Join(td, "a.o"), machotest.Object(
		machotest.Defined("_main", 1),
		machotest.Undefined("_helper"),
	).Bytes())
	weakHelper := machotest.Object(machotest.Weak("_helper", 1))
	weakHelper.Gap = 24
	b := writeFile(t, filepath.Join(td, "b.o"), weakHelper.Bytes())
	out := filepath.Join(td, "a.out")

	var stdout bytes.Buffer
	err := Link(context.Background(), &Args{
		Arch:        arch.ARM64,
		Output:      out,
		ObjectFiles: []string{a, b},
		Deduplicate: true,
	}, &stdout)
	assert.NilError(t, err)
	assert.Equal(t, "__TEXT\n\t__text\n\t\t_helper\n\t\t_main\n", stdout.String())

	st, err := os.Stat(out)
	assert.NilError(t, err)
	assert.Equal(t, int64(0), st.Size())
	assert.Equal(t, os.FileMode(0o777), st.Mode().Perm())
}

func TestLinkMissing(t *testing.T) {
	td := t.TempDir()
	a := writeFile(t, filepath.Join(td, "a.o"), machotest.Object(
		machotest.Defined("_main", 1),
		machotest.Undefined("_missing"),
	).Bytes())
	out := filepath.Join(td, "a.out")
	logBuf := captureLog(t)

	err := Link(context.Background(), &Args{
		Arch:        arch.ARM64,
		Output:      out,
		ObjectFiles: []string{a},
	}, &bytes.Buffer{})
	var uerr *resolver.UnresolvedError
	assert.Assert(t, errors.As(err, &uerr), err)
	assert.DeepEqual(t, []string{"_missing"}, uerr.Names)
	assert.Assert(t, strings.Contains(logBuf.String(), "level=ERROR msg=\"_missing is undefined\"\n"), logBuf.String())
	_, err = os.Stat(out)
	assert.Assert(t, os.IsNotExist(err))
}

func TestLinkTbd(t *testing.T) {
	td := t.TempDir()
	a := writeFile(t, filepath.Join(td, "a.o"), machotest.Object(
		machotest.Defined("_main", 1),
		machotest.Undefined("_puts"),
	).Bytes())
	writeFile(t, filepath.Join(td, "sdk", "usr", "lib", "libSystem.tbd"), []byte(`--- !tapi-tbd
tbd-version:     4
targets:         [ arm64-macos ]
install-name:    '/usr/lib/libSystem.B.dylib'
exports:
  - targets:         [ arm64-macos ]
    symbols:         [ _puts ]
...
`))
	out := filepath.Join(td, "a.out")

	err := Link(context.Background(), &Args{
		Arch:        arch.ARM64,
		Output:      out,
		Sysroot:     filepath.Join(td, "sdk"),
		Libraries:   []string{"System", "nonexistent"},
		ObjectFiles: []string{a},
	}, &bytes.Buffer{})
	assert.NilError(t, err)
	_, err = os.Stat(out)
	assert.NilError(t, err)
}

func TestLinkUnreadableInput(t *testing.T) {
	td := t.TempDir()
	err := Link(context.Background(), &Args{
		Arch:        arch.ARM64,
		Output:      filepath.Join(td, "a.out"),
		ObjectFiles: []string{filepath.Join(td, "missing.o")},
	}, &bytes.Buffer{})
	assert.Assert(t, os.IsNotExist(err), err)
}

func TestFindLibraries(t *testing.T) {
	td := t.TempDir()
	foo := writeFile(t, filepath.Join(td, "lib", "libfoo.a"), nil)
	paths := FindLibraries(context.Background(), &Args{
		LibrarySearchPaths: []string{filepath.Join(td, "lib")},
		Libraries:          []string{"foo", "bar"},
	})
	assert.DeepEqual(t, []string{foo}, paths)
}
