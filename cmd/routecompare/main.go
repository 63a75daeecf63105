package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/truckmatch/routecompare/internal/config"
	"github.com/truckmatch/routecompare/internal/playback"
)

// build info, set via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const AppName = "routecompare"

type options struct {
	configDir   string
	id          string
	port        string
	dest        string
	orig        string
	speed       float64
	serve       bool
	addr        string
	headless    bool
	interactive bool
	fakeRouter  bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.StringVar(&o.configDir, "config", ".", "directory containing "+config.ConfigFileName)
	fs.StringVar(&o.id, "id", "", "scenario identifier")
	fs.StringVar(&o.port, "port", "", "port coordinate as \"lat,lon\"")
	fs.StringVar(&o.dest, "dest", "", "destination coordinate as \"lat,lon\"")
	fs.StringVar(&o.orig, "orig", "", "origin coordinate as \"lat,lon\"")
	fs.Float64Var(&o.speed, "speed", 0, "initial playback multiplier (0.5, 1, 2 or 4)")
	fs.BoolVar(&o.serve, "serve", false, "expose the session over HTTP and WebSocket")
	fs.StringVar(&o.addr, "addr", "", "listen address, overrides server.addr")
	fs.BoolVar(&o.headless, "headless", false, "play the scenario to the end and print JSON frames")
	fs.BoolVar(&o.interactive, "interactive", false, "read host commands from stdin")
	fs.BoolVar(&o.fakeRouter, "fake-router", false, "answer route requests with an in-process mock service")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.speed != 0 && !playback.ValidSpeed(o.speed) {
		err := fmt.Errorf("%w: -speed %v, want 0.5, 1, 2 or 4", playback.ErrInvalidSpeed, o.speed)
		fmt.Fprintln(fs.Output(), err)
		fs.Usage()
		return o, err
	}
	if !o.serve && !o.headless && !o.interactive {
		o.headless = true
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	err = a.run(ctx)
	a.shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
