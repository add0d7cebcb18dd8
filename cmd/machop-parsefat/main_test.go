package main

import (
	"bytes"
	"debug/macho"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/machop-dev/machop/pkg/machotest"
)

func TestParseFat(t *testing.T) {
	lib := machotest.Archive(machotest.Member{
		Name: "a.o",
		Data: machotest.Object(machotest.Defined("_a", 1)).Bytes(),
	})
	b := machotest.Fat(
		machotest.Slice{Cpu: macho.CpuArm64, Data: machotest.Object(machotest.Defined("_a", 1)).Bytes()},
		machotest.Slice{Cpu: macho.CpuAmd64, Data: lib},
		machotest.Slice{Cpu: macho.Cpu386, Data: []byte("garbage")},
	)
	p := filepath.Join(t.TempDir(), "universal")
	assert.NilError(t, os.WriteFile(p, b, 0o644))

	var stdout bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{p})
	assert.NilError(t, cmd.Execute())

	out := stdout.String()
	assert.Assert(t, bytes.Contains(stdout.Bytes(), []byte("Parsing entry 0 for arch arm64\n\tarm64 Obj,")), out)
	assert.Assert(t, bytes.Contains(stdout.Bytes(), []byte("Parsing entry 1 for arch x86_64\n\tarchive,")), out)
	assert.Assert(t, bytes.Contains(stdout.Bytes(), []byte("Parsing entry 2 for arch i386\nFailed to get entry 2")), out)
}

func TestParseFatNotFat(t *testing.T) {
	p := filepath.Join(t.TempDir(), "thin.o")
	assert.NilError(t, os.WriteFile(p, machotest.Object().Bytes(), 0o644))
	cmd := newRootCommand()
	cmd.SetArgs([]string{p})
	assert.ErrorContains(t, cmd.Execute(), "expected a fat Mach-O file")
}
