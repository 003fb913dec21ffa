package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/liut/campus-assistant/pkg/settings"
)

func main() {
	app := &cli.App{
		Name:    "campus",
		Usage:   "USTC campus assistant: chat widget server and terminal client",
		Version: settings.Current.Version,
		Before: func(*cli.Context) error {
			setupLogger()
			return nil
		},
		After: func(*cli.Context) error {
			_ = zap.L().Sync()
			return nil
		},
		Commands: []*cli.Command{
			webCommand,
			chatCommand,
			historyCommand,
			{
				Name:  "usage",
				Usage: "show the environment settings",
				Action: func(*cli.Context) error {
					return settings.Usage()
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("%s: %s", app.Name, err)
		stop()
		os.Exit(1)
	}
}

func setupLogger() {
	var zlogger *zap.Logger
	var err error
	if settings.InDevelop() {
		zlogger, err = zap.NewDevelopment()
	} else {
		zlogger, err = zap.NewProduction()
	}
	if err != nil {
		log.Printf("init logger fail: %s", err)
		return
	}
	zap.ReplaceGlobals(zlogger)
}
