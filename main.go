package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/mcncl/domtools/internal/cli"
	"github.com/mcncl/domtools/internal/config"
	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// exitStatus carries a kong exit request (help, version) out of parsing.
type exitStatus int

// run executes one command line and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (status int) {
	var root cli.CLI
	parser, err := kong.New(&root,
		kong.Name("domtools"),
		kong.Description("Tools for filtering, pruning, analyzing and splitting DOM captures stored as JSON."),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("domtools version %s", Version)},
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitStatus(code)) }),
	)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}

	defer func() {
		if r := recover(); r != nil {
			code, ok := r.(exitStatus)
			if !ok {
				panic(r)
			}
			status = int(code)
		}
	}()

	ctx, err := parser.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(errors.NewArgumentError(err.Error(), nil)))
		_, _ = fmt.Fprintf(stderr, "\nFor help, run: domtools --help\n")
		return 2
	}

	cfg, configPath, err := config.LoadConfigWithCLI(root.Config, root.Overrides())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		return errors.ExitCode(err)
	}

	logger, cleanup, err := logging.Setup(cfg.Logging, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		return errors.ExitCode(err)
	}
	defer func() { _ = cleanup() }()

	if configPath != "" {
		logger.Debug("using config file", slog.String("path", configPath))
	}
	logger.Debug("running command", slog.String("command", ctx.Command()))

	rt := cli.NewRuntime(cfg, logger, stdin, stdout, stderr)
	if err := ctx.Run(rt); err != nil {
		_, _ = fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		return errors.ExitCode(err)
	}
	return 0
}
