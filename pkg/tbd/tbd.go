// Package tbd parses text-based dynamic library stubs (.tbd files).
//
// Only the v4 schema is understood:
// https://github.com/apple-oss-distributions/tapi/blob/main/docs/TextStubV4.rst
package tbd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/machop-dev/machop/pkg/arch"
	"github.com/machop-dev/machop/pkg/logutil"
)

// CurrentVersion is the only schema version that is processed.
const CurrentVersion = 4

var ErrNoValidDocument = errors.New("no valid documents found")

type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "failed to parse tbd: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Dylib is the exported surface of one dynamic library, filtered for a
// single architecture.
type Dylib struct {
	InstallName          string
	CurrentVersion       string
	CompatibilityVersion string
	// ReexportedLibraries lists the install names of reexported libraries
	// that were not inlined from the same document.
	ReexportedLibraries []string
	Exports             []string
	WeakExports         []string
}

// Exported reports whether name is one of the exported or weak-exported symbols.
func (d *Dylib) Exported(name string) bool {
	for _, e := range d.Exports {
		if e == name {
			return true
		}
	}
	for _, e := range d.WeakExports {
		if e == name {
			return true
		}
	}
	return false
}

type record struct {
	Version              int            `yaml:"tbd-version"`
	Targets              []string       `yaml:"targets"`
	InstallName          string         `yaml:"install-name"`
	CurrentVersion       string         `yaml:"current-version"`
	CompatibilityVersion string         `yaml:"compatibility-version"`
	ReexportedLibraries  []libraryGroup `yaml:"reexported-libraries"`
	Exports              []symbolGroup  `yaml:"exports"`
	Reexports            []symbolGroup  `yaml:"re-exports"`
}

type libraryGroup struct {
	Targets   []string `yaml:"targets"`
	Libraries []string `yaml:"libraries"`
}

type symbolGroup struct {
	Targets            []string `yaml:"targets"`
	Symbols            []string `yaml:"symbols"`
	WeakSymbols        []string `yaml:"weak-symbols"`
	ObjCClasses        []string `yaml:"objc-classes"`
	ObjCEHTypes        []string `yaml:"objc-eh-types"`
	ObjCIvars          []string `yaml:"objc-ivars"`
	ThreadLocalSymbols []string `yaml:"thread-local-symbols"`
}

// symbols returns the plain and weak symbol names of the group, with the
// Objective-C entries expanded to their linker-visible names.
func (g *symbolGroup) symbols() (exports, weak []string) {
	exports = append(exports, g.Symbols...)
	for _, c := range g.ObjCClasses {
		exports = append(exports, "_OBJC_CLASS_$_"+c, "_OBJC_METACLASS_$_"+c)
	}
	for _, c := range g.ObjCEHTypes {
		exports = append(exports, "_OBJC_EHTYPE_$_"+c)
	}
	for _, c := range g.ObjCIvars {
		exports = append(exports, "_OBJC_IVAR_$_"+c)
	}
	exports = append(exports, g.ThreadLocalSymbols...)
	weak = append(weak, g.WeakSymbols...)
	return exports, weak
}

// schemaVersion derives the schema version from the document tag.
// v1 documents carry no tag; v4 carries "!tapi-tbd" plus a tbd-version key.
func schemaVersion(n *yaml.Node) int {
	switch n.Tag {
	case "!tapi-tbd":
		return CurrentVersion
	case "!tapi-tbd-v3":
		return 3
	case "!tapi-tbd-v2":
		return 2
	}
	return 1
}

func decodeRecords(content []byte) ([]record, error) {
	if !utf8.Valid(content) {
		return nil, &ParseError{Err: errors.New("invalid UTF-8")}
	}
	var res []record
	dec := yaml.NewDecoder(bytes.NewReader(content))
	for i := 0; ; i++ {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Err: err}
		}
		if len(doc.Content) == 0 {
			continue
		}
		root := doc.Content[0]
		if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
			continue
		}
		if root.Kind != yaml.MappingNode {
			return nil, &ParseError{Err: fmt.Errorf("document %d is not a mapping", i)}
		}
		if v := schemaVersion(root); v != CurrentVersion {
			logutil.Trace("Skipping tbd document with an old schema", "index", i, "version", v)
			continue
		}
		var rec record
		if err := root.Decode(&rec); err != nil {
			return nil, &ParseError{Err: err}
		}
		if rec.Version != CurrentVersion {
			logutil.Trace("Skipping tbd document", "index", i, "tbd-version", rec.Version)
			continue
		}
		res = append(res, rec)
	}
	return res, nil
}

// filter returns the record restricted to a, or nil if the record does not
// target a at all.
func filter(a arch.Architecture, rec *record) *Dylib {
	if !a.MatchAny(rec.Targets) {
		return nil
	}
	d := &Dylib{
		InstallName:          rec.InstallName,
		CurrentVersion:       rec.CurrentVersion,
		CompatibilityVersion: rec.CompatibilityVersion,
	}
	for _, g := range rec.ReexportedLibraries {
		if a.MatchAny(g.Targets) {
			d.ReexportedLibraries = append(d.ReexportedLibraries, g.Libraries...)
		}
	}
	for _, groups := range [][]symbolGroup{rec.Exports, rec.Reexports} {
		for _, g := range groups {
			if !a.MatchAny(g.Targets) {
				continue
			}
			exports, weak := g.symbols()
			d.Exports = append(d.Exports, exports...)
			d.WeakExports = append(d.WeakExports, weak...)
		}
	}
	return d
}

// Parse parses a tbd document stream into the dylib described by its first
// record that targets a.
//
// The other records of the stream are the libraries the first one may
// reexport. Their exports are inlined into the result one level deep only:
// the reexports of an inlined library are not followed.
func Parse(a arch.Architecture, content []byte) (*Dylib, error) {
	recs, err := decodeRecords(content)
	if err != nil {
		return nil, err
	}
	var dylibs []*Dylib
	for i := range recs {
		if d := filter(a, &recs[i]); d != nil {
			dylibs = append(dylibs, d)
		}
	}
	if len(dylibs) == 0 {
		return nil, ErrNoValidDocument
	}
	top, children := dylibs[0], dylibs[1:]
	byInstallName := make(map[string]*Dylib, len(children))
	for _, c := range children {
		byInstallName[c.InstallName] = c
	}
	var unresolved []string
	inlined := 0
	for _, lib := range top.ReexportedLibraries {
		child, ok := byInstallName[lib]
		if !ok {
			unresolved = append(unresolved, lib)
			continue
		}
		top.Exports = append(top.Exports, child.Exports...)
		top.WeakExports = append(top.WeakExports, child.WeakExports...)
		inlined++
	}
	top.ReexportedLibraries = unresolved
	slog.Debug("Parsed tbd", "installName", top.InstallName, "currentVersion", top.CurrentVersion,
		"exports", len(top.Exports), "weakExports", len(top.WeakExports),
		"inlined", inlined, "unresolvedReexports", len(unresolved))
	return top, nil
}
