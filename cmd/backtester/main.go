package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tickforge/backtester/signaler"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signaler.WithInterrupt(context.Background(), func(sig os.Signal) {
		fmt.Fprintf(os.Stderr, "received %s, stopping runs\n", sig)
	})

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
	cancel()
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "backtester"
	app.Usage = "replays historical bars against trade signals and reports performance"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "loglevel",
			Usage: "overrides the config's log levels, eg DEBUG|INFO|WARN|ERROR",
		},
	}
	app.Commands = []*cli.Command{
		runCommand,
		sweepCommand,
		validateCommand,
	}
	return app
}
