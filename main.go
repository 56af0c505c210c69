package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"casino/cmd"
	"casino/config"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

func main() {
	var cli cmd.CLI
	kctx := kong.Parse(&cli,
		kong.Name("casino"),
		kong.Description("Settlement engine for blackjack, roulette and slots on a hash-chained ledger"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)
	config.Set(cfg)
	cmd.ConfigureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	globals := &cmd.Globals{Ctx: ctx, Config: cfg}
	err = kctx.Run(globals)
	globals.Close()
	kctx.FatalIfErrorf(err)
}
