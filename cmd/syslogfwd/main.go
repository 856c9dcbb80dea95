package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syslogfwd/internal/cli"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func main() {
	cliOpts := cli.DefineOptions()

	// Flags without a command run the forwarder
	command := "run"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	// Root level flags only decide the initial log level
	rootFlags := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	rootFlags.ParseErrorsWhitelist.UnknownFlags = true
	cli.SetGlobalArguments(rootFlags)
	rootFlags.Usage = func() {}
	rootFlags.SetOutput(io.Discard)
	_ = rootFlags.Parse(args)

	// Setting global logging
	ctx, cancel := context.WithCancel(context.Background())
	logger := logctx.NewLogger("global", global.Verbosity, ctx.Done()) // New logger tied to global
	logger.ShowTimestamps = term.IsTerminal(int(os.Stdout.Fd()))      // journald stamps its own
	ctx = logctx.WithLogger(ctx, logger)                               // Add logger to global ctx
	logctx.StartWatcher(logger, os.Stdout)                             // Send received output to stdout

	// Process commands
	var err error
	switch command {
	case "run":
		err = cli.RunMode(ctx, cliOpts, command, args)
	case "check":
		err = cli.CheckMode(cliOpts, command, args)
	case "configure":
		err = cli.SetupMode(cliOpts, command, args)
	case "version":
		cli.VersionMode(args)
	case "help":
		cli.PrintHelpMenu(nil, cli.RootCLICommand, cliOpts)
	default:
		cli.PrintHelpMenu(nil, cli.RootCLICommand, cliOpts)
		err = fmt.Errorf("unknown command %q", command)
	}

	// Finish up any stdout writes for global logger
	cancel()
	logger.Wake()
	logger.Wait()

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
