package arch

import (
	"debug/macho"
	"testing"

	"gotest.tools/v3/assert"
)

func TestParse(t *testing.T) {
	a, err := Parse("arm64")
	assert.NilError(t, err)
	assert.Equal(t, ARM64, a)

	a, err = Parse("ARM64")
	assert.NilError(t, err)
	assert.Equal(t, ARM64, a)

	_, err = Parse("x86_64")
	assert.ErrorContains(t, err, "unknown architecture")
}

func TestMatchTriple(t *testing.T) {
	type testCase struct {
		triple   string
		expected bool
	}
	testCases := []testCase{
		{triple: "arm64", expected: true},
		{triple: "arm64-apple-macos13", expected: true},
		{triple: "arm64-macos", expected: true},
		{triple: "x86_64-apple-macos13", expected: false},
		{triple: "arm64e-macos", expected: false},
		{triple: "", expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.triple, func(t *testing.T) {
			assert.Equal(t, tc.expected, ARM64.MatchTriple(tc.triple))
		})
	}
	assert.Assert(t, ARM64.MatchAny([]string{"x86_64-macos", "arm64-macos"}))
	assert.Assert(t, !ARM64.MatchAny(nil))
}

func TestCpuName(t *testing.T) {
	assert.Equal(t, "arm64", CpuName(macho.CpuArm64))
	assert.Equal(t, "x86_64", CpuName(macho.CpuAmd64))
	assert.Equal(t, "0x42", CpuName(macho.Cpu(0x42)))
}
