// machop-parsefat lists the slices of a fat (universal) Mach-O binary or
// static library.
package main

import (
	"bytes"
	"debug/macho"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/machop-dev/machop/cmd/machop/version"
	"github.com/machop-dev/machop/pkg/arch"
	"github.com/machop-dev/machop/pkg/object"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("exiting with an error", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "machop-parsefat FILE",
		Short:         "List the slices of a fat Mach-O file",
		Version:       version.GetVersion(),
		Args:          cobra.ExactArgs(1),
		RunE:          action,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return cmd
}

func action(cmd *cobra.Command, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	arches, err := object.ReadFatArches(b)
	if err != nil {
		return fmt.Errorf("expected a fat Mach-O file: %w", err)
	}
	w := cmd.OutOrStdout()
	for i, fa := range arches {
		fmt.Fprintf(w, "Parsing entry %d for arch %s\n", i, arch.CpuName(fa.Cpu))
		desc, err := describeSlice(b[fa.Offset : fa.Offset+fa.Size])
		if err != nil {
			fmt.Fprintf(w, "Failed to get entry %d: %v\n", i, err)
			continue
		}
		fmt.Fprintf(w, "\t%s, %d bytes at offset %d\n", desc, fa.Size, fa.Offset)
	}
	return nil
}

func describeSlice(b []byte) (string, error) {
	if bytes.HasPrefix(b, []byte("!<arch>\n")) {
		return "archive", nil
	}
	f, err := macho.NewFile(bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s", arch.CpuName(f.Cpu), f.Type), nil
}
