package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/machop-dev/machop/cmd/machop/version"
	"github.com/machop-dev/machop/pkg/ldargs"
	"github.com/machop-dev/machop/pkg/linker"
	"github.com/machop-dev/machop/pkg/logutil"
)

var logLevel = new(slog.LevelVar)

func main() {
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       logLevel,
		ReplaceAttr: logutil.ReplaceAttr,
	})
	slog.SetDefault(slog.New(logHandler))
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, ldargs.ErrHelp) {
			os.Exit(1)
		}
		slog.Error("exiting with an error", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "machop [options] file...",
		Short:   "Mach-O linker for arm64",
		Example: "  machop -arch arm64 -o hello -syslibroot $(xcrun --show-sdk-path) -lSystem hello.o",
		Version: version.GetVersion(),
		Args:    cobra.ArbitraryArgs,
		// ld64 options are single-dash long options
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE:               action,
	}
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if env.Bool("DEBUG") {
			logLevel.Set(slog.LevelDebug)
		}
		if s := env.Str("MACHOP_LOG"); s != "" {
			lvl, err := logutil.ParseLevel(s)
			if err != nil {
				return fmt.Errorf("invalid $MACHOP_LOG: %w", err)
			}
			logLevel.Set(lvl)
		}
		return nil
	}
	return cmd
}

func action(cmd *cobra.Command, args []string) error {
	linkArgs, err := ldargs.Parse(args)
	switch {
	case errors.Is(err, ldargs.ErrHelp):
		ldargs.Usage(cmd.ErrOrStderr(), cmd.Root().Name())
		return err
	case errors.Is(err, ldargs.ErrVersion):
		fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", cmd.Root().Name(), cmd.Root().Version)
		return nil
	case err != nil:
		return err
	}
	slog.DebugContext(cmd.Context(), "Parsed arguments", "args", fmt.Sprintf("%+v", linkArgs))
	return linker.Link(cmd.Context(), linkArgs, cmd.OutOrStdout())
}
