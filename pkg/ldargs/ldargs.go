// Package ldargs reads an ld64-style command line into linker.Args.
//
// ld64 options are single-dash long options ("-arch arm64"), so they are
// read by hand rather than with pflag.
package ldargs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/machop-dev/machop/pkg/arch"
	"github.com/machop-dev/machop/pkg/linker"
	"github.com/machop-dev/machop/pkg/logutil"
)

var (
	// ErrHelp is returned for -help.
	ErrHelp = errors.New("help requested")
	// ErrVersion is returned for -v and -version.
	ErrVersion = errors.New("version requested")
)

// ConfigurationError is returned when a required option is missing or
// malformed.
type ConfigurationError struct {
	Option string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("option %s: %v", e.Option, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

var errMissing = errors.New("required")

// ignoredArgOptions take one value, ignoredFlagOptions none. They are listed
// so that -l and -L do not read them in the joined form.
var ignoredArgOptions = []string{
	"-lto_library",
	"-lazy_library",
	"-lazy_framework",
	"-load_hidden",
	"-needed_library",
	"-reexport_library",
	"-upward_library",
	"-weak_library",
	"-object_path_lto",
	"-rpath",
	"-install_name",
	"-framework",
	"-exported_symbols_list",
	"-order_file",
}

var ignoredFlagOptions = []string{
	"-ld_classic",
	"-ld_new",
}

// ObjectExtensions are the extensions of the positional arguments that are
// kept as inputs.
var ObjectExtensions = []string{"o", "rlib", "a"}

func isObjectFile(p string) bool {
	ext := strings.TrimPrefix(filepath.Ext(p), ".")
	for _, e := range ObjectExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Parse reads args, without the program name.
func Parse(args []string) (*linker.Args, error) {
	res := &linker.Args{Deduplicate: true}
	var (
		archSet bool
		val     string
	)
	// readArgs consumes opt and its n values.
	readArgs := func(opt string, n int) ([]string, bool, error) {
		if args[0] != opt {
			return nil, false, nil
		}
		if len(args) <= n {
			return nil, true, &ConfigurationError{Option: opt, Err: errors.New("argument missing")}
		}
		vals := args[1 : n+1]
		args = args[n+1:]
		return vals, true, nil
	}
	readArg := func(opt string) (bool, error) {
		vals, ok, err := readArgs(opt, 1)
		if ok && err == nil {
			val = vals[0]
		}
		return ok, err
	}
	// readJoinedArg also accepts the value glued to opt, as in "-lSystem".
	readJoinedArg := func(opt string) (bool, error) {
		if len(args[0]) > len(opt) && strings.HasPrefix(args[0], opt) {
			val = args[0][len(opt):]
			args = args[1:]
			return true, nil
		}
		return readArg(opt)
	}
	// readIgnored consumes an accepted but unsupported option and its value,
	// if any.
	// It sets val to the option name.
	readIgnored := func() (bool, error) {
		opt := args[0]
		for _, o := range ignoredFlagOptions {
			if opt == o {
				val = opt
				args = args[1:]
				return true, nil
			}
		}
		for _, o := range ignoredArgOptions {
			if ok, err := readArg(o); ok {
				val = opt
				return true, err
			}
		}
		return false, nil
	}
	readFlag := func(opt string) bool {
		if args[0] == opt {
			args = args[1:]
			return true
		}
		return false
	}

	for len(args) > 0 {
		if readFlag("-help") {
			return nil, ErrHelp
		}
		if readFlag("-v") || readFlag("-version") {
			return nil, ErrVersion
		}
		if ok, err := readArg("-arch"); ok {
			if err != nil {
				return nil, err
			}
			a, err := arch.Parse(val)
			if err != nil {
				return nil, &ConfigurationError{Option: "-arch", Err: err}
			}
			res.Arch = a
			archSet = true
			continue
		}
		if ok, err := readArg("-o"); ok {
			if err != nil {
				return nil, err
			}
			res.Output = val
			continue
		}
		if ok, err := readIgnored(); ok {
			if err != nil {
				return nil, err
			}
			slog.Debug("Ignoring unsupported option", "option", val)
			continue
		}
		if ok, err := readJoinedArg("-L"); ok {
			if err != nil {
				return nil, err
			}
			res.LibrarySearchPaths = append(res.LibrarySearchPaths, filepath.Clean(val))
			continue
		}
		if ok, err := readJoinedArg("-l"); ok {
			if err != nil {
				return nil, err
			}
			res.Libraries = append(res.Libraries, val)
			continue
		}
		if ok, err := readArg("-syslibroot"); ok {
			if err != nil {
				return nil, err
			}
			res.Sysroot = val
			continue
		}
		if vals, ok, err := readArgs("-platform_version", 3); ok {
			if err != nil {
				return nil, err
			}
			pv, err := parsePlatformVersion(vals)
			if err != nil {
				return nil, &ConfigurationError{Option: "-platform_version", Err: err}
			}
			res.PlatformVersion = pv
			continue
		}
		switch {
		case readFlag("-demangle"):
			res.Demangle = true
		case readFlag("-dynamic"):
			res.Dynamic = true
		case readFlag("-no_deduplicate"):
			res.Deduplicate = false
		case strings.HasPrefix(args[0], "-"):
			slog.Debug("Ignoring unsupported option", "option", args[0])
			args = args[1:]
		default:
			if isObjectFile(args[0]) {
				res.ObjectFiles = append(res.ObjectFiles, args[0])
			} else {
				logutil.Trace("Ignoring input with an unsupported extension", "path", args[0])
			}
			args = args[1:]
		}
	}

	if !archSet {
		return nil, &ConfigurationError{Option: "-arch", Err: errMissing}
	}
	if res.Output == "" {
		return nil, &ConfigurationError{Option: "-o", Err: errMissing}
	}
	return res, nil
}

func parsePlatformVersion(vals []string) (*linker.PlatformVersion, error) {
	pv := &linker.PlatformVersion{
		Platform:   vals[0],
		MinVersion: vals[1],
		SDKVersion: vals[2],
	}
	if pv.Platform == "" {
		return nil, errors.New("empty platform")
	}
	for _, v := range []string{pv.MinVersion, pv.SDKVersion} {
		if !semver.IsValid("v" + v) {
			return nil, fmt.Errorf("invalid version %q", v)
		}
	}
	if semver.Compare("v"+pv.MinVersion, "v"+pv.SDKVersion) > 0 {
		slog.Warn("Minimum platform version is newer than the SDK",
			"min", pv.MinVersion, "sdk", pv.SDKVersion)
	}
	return pv, nil
}

const usage = `Usage: %s [options] file...

Options:
  -help                    Print this message
  -v, -version             Print the version
  -arch <ARCH>             Specify the target architecture (arm64)
  -o <FILE>                Set the output file
  -L <DIR>, -L<DIR>        Add directory to library search path
  -l <LIB>, -l<LIB>        Search for library
  -syslibroot <DIR>        Prefix absolute library search paths with DIR
  -platform_version <PLATFORM> <MIN> <SDK>
                           Set the target platform and versions
  -demangle, -dynamic, -no_deduplicate
                           Accepted for compatibility with ld64

Any other arguments are treated as the input object files. Those that
don't end in the extension .o, .rlib or .a are ignored.

Environment variables:
  MACHOP_LOG               Log level (trace, debug, info, warn, error)
  DEBUG                    Same as MACHOP_LOG=debug
`

// Usage writes the usage text for the program name prog.
func Usage(w io.Writer, prog string) {
	fmt.Fprintf(w, usage, prog)
}
