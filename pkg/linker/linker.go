// Package linker drives a link: library discovery, input ingestion, symbol
// resolution and the creation of the output.
package linker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/go-units"

	"github.com/machop-dev/machop/pkg/arch"
	"github.com/machop-dev/machop/pkg/librarypath"
	"github.com/machop-dev/machop/pkg/object"
	"github.com/machop-dev/machop/pkg/resolver"
	"github.com/machop-dev/machop/pkg/segments"
)

type PlatformVersion struct {
	Platform   string
	MinVersion string
	SDKVersion string
}

// Args is the configuration of one link.
type Args struct {
	Arch               arch.Architecture
	Output             string
	LibrarySearchPaths []string
	// Libraries are names as given to -l, without "lib" and extension.
	Libraries       []string
	Sysroot         string
	ObjectFiles     []string
	Demangle        bool
	Dynamic         bool
	Deduplicate     bool
	PlatformVersion *PlatformVersion
}

// FindLibraries returns the paths of the libraries that could be found.
// Missing libraries are logged and skipped; any symbol they should have
// provided is reported as undefined later.
func FindLibraries(ctx context.Context, args *Args) []string {
	searchPaths := librarypath.SearchPaths(args.LibrarySearchPaths, args.Sysroot)
	slog.DebugContext(ctx, "Library search paths", "paths", searchPaths)
	var res []string
	for _, name := range args.Libraries {
		p, ok := librarypath.Find(searchPaths, name)
		if !ok {
			slog.WarnContext(ctx, "Library not found", "library", name)
			continue
		}
		slog.DebugContext(ctx, "Found library", "library", name, "path", p)
		res = append(res, p)
	}
	return res
}

// Link resolves every symbol of the inputs and creates the output.
// The segment report is written to stdout.
func Link(ctx context.Context, args *Args, stdout io.Writer) error {
	paths := append(append([]string{}, args.ObjectFiles...), FindLibraries(ctx, args)...)
	files, err := object.ReadFiles(paths)
	if err != nil {
		return err
	}
	var total int64
	for _, f := range files {
		total += int64(len(f.Contents))
	}
	slog.DebugContext(ctx, "Read inputs", "files", len(files), "size", units.HumanSize(float64(total)))

	set, deps, err := object.Ingest(args.Arch, files)
	if err != nil {
		return err
	}
	r := resolver.New()
	r.AddSet(set)
	if err = r.ResolveDylibs(deps); err != nil {
		return err
	}

	if err = segments.Print(stdout, segments.Group(r.Symbols(), set)); err != nil {
		return err
	}

	if err = r.Err(); err != nil {
		for _, name := range r.Undefined() {
			slog.ErrorContext(ctx, name+" is undefined")
		}
		return err
	}
	if err = createOutput(args.Output); err != nil {
		return fmt.Errorf("failed to create %q: %w", args.Output, err)
	}
	slog.InfoContext(ctx, "Linked", "output", args.Output, "symbols", r.Len(), "dylibs", len(deps))
	return nil
}
