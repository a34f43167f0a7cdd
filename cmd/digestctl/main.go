// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/digestd/lib/config"
	"github.com/bureau-foundation/digestd/lib/process"
	"github.com/bureau-foundation/digestd/lib/service"
	"github.com/bureau-foundation/digestd/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	terminal := term.IsTerminal(int(os.Stdout.Fd()))
	if err := run(ctx, os.Args[1:], os.Stdout, terminal); err != nil {
		process.Fatal(err)
	}
}

// cli carries what every subcommand needs.
type cli struct {
	client   *service.ServiceClient
	stdout   io.Writer
	terminal bool
}

const usage = `usage: digestctl [--socket PATH] COMMAND [ARGS]

commands:
  hash FILE [--encoding none|zstd|lz4] [--requester N]
  resize N
  status
`

func run(ctx context.Context, args []string, stdout io.Writer, terminal bool) error {
	defaults := config.Default()
	defaults.ExpandDefaults()

	flags := pflag.NewFlagSet("digestctl", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	var (
		socketPath  string
		showVersion bool
	)
	flags.StringVar(&socketPath, "socket", defaults.SocketPath, "digestd socket path")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("digestctl")
		return nil
	}

	rest := flags.Args()
	if len(rest) == 0 {
		return errors.New("missing command\n" + usage)
	}

	c := &cli{
		client:   service.NewServiceClient(socketPath),
		stdout:   stdout,
		terminal: terminal,
	}
	switch command, commandArgs := rest[0], rest[1:]; command {
	case "hash":
		return c.hash(ctx, commandArgs)
	case "resize":
		return c.resize(ctx, commandArgs)
	case "status":
		return c.status(ctx, commandArgs)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}
