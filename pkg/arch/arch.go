// Package arch defines the target architectures understood by the linker.
package arch

import (
	"debug/macho"
	"fmt"
	"strings"
)

type Architecture int

const (
	ARM64 Architecture = iota
)

var known = []Architecture{
	ARM64,
}

func Parse(s string) (Architecture, error) {
	for _, a := range known {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown architecture %q", s)
}

func (a Architecture) String() string {
	switch a {
	case ARM64:
		return "arm64"
	}
	return fmt.Sprintf("Architecture(%d)", int(a))
}

// Cpu returns the Mach-O CPU type of the architecture.
func (a Architecture) Cpu() macho.Cpu {
	switch a {
	case ARM64:
		return macho.CpuArm64
	}
	return 0
}

// MatchTriple reports whether a tbd target triple such as "arm64-macos"
// designates the architecture. "arm64e-macos" does not match ARM64.
func (a Architecture) MatchTriple(triple string) bool {
	name := a.String()
	return triple == name || strings.HasPrefix(triple, name+"-")
}

// MatchAny reports whether any of the triples matches the architecture.
func (a Architecture) MatchAny(triples []string) bool {
	for _, t := range triples {
		if a.MatchTriple(t) {
			return true
		}
	}
	return false
}

// CpuName returns a printable name for a Mach-O CPU type, falling back to
// the hexadecimal value for CPUs this package does not model.
func CpuName(cpu macho.Cpu) string {
	for _, a := range known {
		if a.Cpu() == cpu {
			return a.String()
		}
	}
	switch cpu {
	case macho.CpuAmd64:
		return "x86_64"
	case macho.Cpu386:
		return "i386"
	case macho.CpuArm:
		return "arm"
	case macho.CpuPpc:
		return "ppc"
	case macho.CpuPpc64:
		return "ppc64"
	}
	return fmt.Sprintf("%#x", uint32(cpu))
}
