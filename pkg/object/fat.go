package object

import (
	"debug/macho"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/machop-dev/machop/pkg/arch"
)

const (
	fatHeaderSize = 8
	fatArchSize   = 20
	maxFatArches  = 128
)

// ReadFatArches reads the slice table of a fat (universal) binary.
//
// debug/macho.NewFatFile cannot be used here: it parses every slice as a
// Mach-O image, while fat static libraries carry archive slices.
func ReadFatArches(b []byte) ([]macho.FatArchHeader, error) {
	if len(b) < fatHeaderSize {
		return nil, fmt.Errorf("fat header: %w", io.ErrUnexpectedEOF)
	}
	if magic := binary.BigEndian.Uint32(b); magic != macho.MagicFat {
		return nil, fmt.Errorf("fat header: invalid magic number %#x", magic)
	}
	n := binary.BigEndian.Uint32(b[4:])
	if n == 0 {
		return nil, fmt.Errorf("fat header: file contains no images")
	}
	if n > maxFatArches {
		return nil, fmt.Errorf("fat header: too many images (%d)", n)
	}
	if uint64(len(b)) < fatHeaderSize+uint64(n)*fatArchSize {
		return nil, fmt.Errorf("fat header: %w", io.ErrUnexpectedEOF)
	}
	res := make([]macho.FatArchHeader, n)
	for i := range res {
		e := b[fatHeaderSize+i*fatArchSize:]
		res[i] = macho.FatArchHeader{
			Cpu:    macho.Cpu(binary.BigEndian.Uint32(e)),
			SubCpu: binary.BigEndian.Uint32(e[4:]),
			Offset: binary.BigEndian.Uint32(e[8:]),
			Size:   binary.BigEndian.Uint32(e[12:]),
			Align:  binary.BigEndian.Uint32(e[16:]),
		}
		if end := uint64(res[i].Offset) + uint64(res[i].Size); end > uint64(len(b)) {
			return nil, fmt.Errorf("fat header: image %d is out of range (end=%d, size=%d)", i, end, len(b))
		}
	}
	return res, nil
}

func classifyFat(a arch.Architecture, name string, b []byte) (*Input, error) {
	arches, err := ReadFatArches(b)
	if err != nil {
		return nil, &FormatError{Name: name, Err: err}
	}
	var (
		slice []byte
		found bool
	)
	for _, fa := range arches {
		if fa.Cpu == a.Cpu() {
			slice = b[fa.Offset : fa.Offset+fa.Size]
			found = true
			break
		}
	}
	if !found {
		names := make([]string, len(arches))
		for i, fa := range arches {
			names[i] = arch.CpuName(fa.Cpu)
		}
		return nil, fmt.Errorf("%q contains %v, not %s: %w", name, names, a, ErrArchitectureMismatch)
	}
	slog.Debug("Selected fat slice", "name", name, "arch", a, "size", len(slice))

	in := &Input{Name: name, Kind: KindFat}
	if isArchive(slice) {
		in.Objects, err = parseArchive(a, name, slice)
		if err != nil {
			return nil, err
		}
		return in, nil
	}
	obj, dep, err := parseThin(a, name, slice, true)
	if err != nil {
		return nil, err
	}
	if obj != nil {
		in.Objects = []*Object{obj}
	}
	in.Dependency = dep
	return in, nil
}
