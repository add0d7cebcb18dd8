package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/blakesmith/ar"

	"github.com/machop-dev/machop/pkg/arch"
)

type member struct {
	Name     string
	Contents []byte
}

func isSymtabMember(name string) bool {
	switch name {
	case "/", "/SYM64", "__.SYMDEF", "__.SYMDEF SORTED", "__.SYMDEF_64", "__.SYMDEF_64 SORTED":
		return true
	}
	return false
}

// readArchiveMembers returns the members of a static archive, skipping the
// symbol table and the GNU long name table.
func readArchiveMembers(b []byte) ([]member, error) {
	r := ar.NewReader(bytes.NewReader(b))
	var (
		members []member
		strTab  []byte
	)
	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		name := hdr.Name
		switch {
		case strings.HasPrefix(name, "#1/"):
			// BSD: the name is stored in front of the data
			n, err := strconv.Atoi(strings.TrimPrefix(name, "#1/"))
			if err != nil || n < 0 || n > len(data) {
				return nil, fmt.Errorf("invalid BSD member name %q", name)
			}
			name = strings.TrimRight(string(data[:n]), "\x00")
			data = data[n:]
		case name == "//":
			strTab = data
			continue
		case len(name) > 1 && name[0] == '/' && name[1] >= '0' && name[1] <= '9':
			// GNU: offset into the long name table
			off, err := strconv.Atoi(name[1:])
			if err != nil || off >= len(strTab) {
				return nil, fmt.Errorf("invalid GNU member name %q", name)
			}
			rest := strTab[off:]
			if i := bytes.IndexByte(rest, '\n'); i >= 0 {
				rest = rest[:i]
			}
			name = strings.TrimSuffix(string(rest), "/")
		default:
			if name != "/" {
				name = strings.TrimSuffix(name, "/")
			}
		}
		if isSymtabMember(name) {
			continue
		}
		members = append(members, member{Name: name, Contents: data})
	}
	return members, nil
}

// parseArchive parses every member of an archive as an independent
// relocatable object.
func parseArchive(a arch.Architecture, name string, b []byte) ([]*Object, error) {
	members, err := readArchiveMembers(b)
	if err != nil {
		return nil, &FormatError{Name: name, Err: err}
	}
	objs := make([]*Object, 0, len(members))
	for _, m := range members {
		memberName := fmt.Sprintf("%s(%s)", name, m.Name)
		if !isMachO(m.Contents) {
			return nil, &UnsupportedInputError{Kind: UnsupportedArchiveMember, Name: memberName}
		}
		obj, dep, err := parseThin(a, memberName, m.Contents, true)
		if err != nil {
			return nil, err
		}
		if dep != nil {
			return nil, &UnsupportedInputError{
				Kind:   UnsupportedArchiveMember,
				Name:   memberName,
				Detail: dep.Native.String(),
			}
		}
		objs = append(objs, obj)
	}
	return objs, nil
}
