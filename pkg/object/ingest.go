package object

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/machop-dev/machop/pkg/arch"
)

// File is the raw content of an input path.
type File struct {
	Name     string
	Contents []byte
}

// ReadFiles reads every path into memory.
func ReadFiles(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: p, Contents: b})
	}
	return files, nil
}

// Set owns every relocatable object of a link, indexed by Object.ID.
type Set struct {
	objects []*Object
	// Owned lists the objects extracted from fat binaries and archives,
	// Standalone the thin objects given directly, both in input order.
	Owned      []*Object
	Standalone []*Object
}

func (s *Set) add(obj *Object) {
	obj.ID = len(s.objects)
	s.objects = append(s.objects, obj)
	if obj.Owned {
		s.Owned = append(s.Owned, obj)
	} else {
		s.Standalone = append(s.Standalone, obj)
	}
}

func (s *Set) Len() int {
	return len(s.objects)
}

// Get returns the object with the given ID, or nil.
func (s *Set) Get(id int) *Object {
	if id < 0 || id >= len(s.objects) {
		return nil
	}
	return s.objects[id]
}

// Section returns the index-th (0-based) section of the object with the
// given ID.
func (s *Set) Section(id, index int) (Section, bool) {
	obj := s.Get(id)
	if obj == nil || index < 0 || index >= len(obj.Sections) {
		return Section{}, false
	}
	return obj.Sections[index], true
}

// Ingest classifies every file in order.
// Dependencies are returned in input order.
func Ingest(a arch.Architecture, files []File) (*Set, []Dependency, error) {
	set := &Set{}
	var deps []Dependency
	for _, f := range files {
		in, err := Classify(a, f.Name, f.Contents)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %q: %w", f.Name, err)
		}
		slog.Debug("Classified input", "name", f.Name, "kind", in.Kind,
			"objects", len(in.Objects), "dependency", in.Dependency != nil)
		for _, obj := range in.Objects {
			set.add(obj)
		}
		if in.Dependency != nil {
			deps = append(deps, *in.Dependency)
		}
	}
	return set, deps, nil
}
