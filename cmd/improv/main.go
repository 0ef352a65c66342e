package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leandrodaf/improv/internal/app"
	"github.com/leandrodaf/improv/internal/cli"
	"github.com/leandrodaf/improv/internal/logger"
	"github.com/leandrodaf/improv/sdk/midi"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.NewZapLogger()
	defer log.Sync()

	cfg, err := cli.Parse("improv", os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Error("Invalid arguments", log.Field().Error("error", err))
		return 1
	}
	if err := cli.ConfigureLogger(log, cfg); err != nil {
		log.Error("Failed to configure logging", log.Field().Error("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start session", log.Field().Error("error", err))
		return 1
	}
	fmt.Println("Playing generated MIDI in output port names:", midi.PortNames(session.Ports))

	runErr := session.Run(ctx)
	if ctx.Err() != nil {
		fmt.Println("Stopping")
	}
	if err := session.Close(); err != nil {
		log.Warn("Errors while releasing the MIDI output", log.Field().Error("error", err))
	}
	if runErr != nil {
		log.Error("Generation loop failed", log.Field().Error("error", runErr))
		return 1
	}
	return 0
}
