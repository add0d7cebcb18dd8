package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/machop-dev/machop/pkg/ldargs"
	"github.com/machop-dev/machop/pkg/machotest"
	"github.com/machop-dev/machop/pkg/resolver"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestHelp(t *testing.T) {
	_, stderr, err := execute(t, "-help")
	assert.Assert(t, errors.Is(err, ldargs.ErrHelp))
	assert.Assert(t, bytes.Contains([]byte(stderr), []byte("-arch <ARCH>")), stderr)
}

func TestLink(t *testing.T) {
	td := t.TempDir()
	obj := filepath.Join(td, "main.o")
	assert.NilError(t, os.WriteFile(obj, machotest.Object(
		machotest.Defined("_main", 1),
		machotest.Undefined("_missing"),
	).Bytes(), 0o644))

	var logBuf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})))
	t.Cleanup(func() { slog.SetDefault(old) })

	_, _, err := execute(t, "-arch", "arm64", "-o", filepath.Join(td, "a.out"), obj)
	var uerr *resolver.UnresolvedError
	assert.Assert(t, errors.As(err, &uerr), err)
	assert.DeepEqual(t, []string{"_missing"}, uerr.Names)
	assert.Assert(t, strings.Contains(logBuf.String(), "level=ERROR msg=\"_missing is undefined\"\n"), logBuf.String())
}

func TestMissingOutput(t *testing.T) {
	_, _, err := execute(t, "-arch", "arm64", "main.o")
	var cerr *ldargs.ConfigurationError
	assert.Assert(t, errors.As(err, &cerr), err)
}
