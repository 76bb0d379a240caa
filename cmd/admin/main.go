package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"WeaveSync/internal/cli/commands"
	"WeaveSync/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), commands.FormatGlobalUsage()) }

	// та же конфигурация, что у сервера (env + flags)
	cfg := config.NewConfig()

	if cfg.Version {
		printVersion()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// dispatcher
	exitCode := commands.Dispatch(ctx, cfg, flag.Args())
	if exitCode == 0 {
		return
	}
	os.Exit(exitCode)
}

func printVersion() {
	fmt.Printf("WeaveSync admin\nVersion: %s\nBuild date: %s\n", version, buildDate)
}
