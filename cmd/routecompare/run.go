package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/truckmatch/routecompare/internal/commands"
	"github.com/truckmatch/routecompare/internal/config"
	"github.com/truckmatch/routecompare/internal/dispatcher"
	"github.com/truckmatch/routecompare/internal/server"
	"github.com/truckmatch/routecompare/internal/session"
	"github.com/truckmatch/routecompare/internal/stream"
	"github.com/truckmatch/routecompare/internal/util"
	"github.com/truckmatch/routecompare/pkg/core"
)

var (
	errIncomplete = errors.New(session.PlaceholderIncomplete)
	errNoRoutes   = errors.New("scenario has no port coordinate")
)

func (a *app) run(ctx context.Context) error {
	if a.hasScenario() {
		if _, err := a.dispatcher.Dispatch(ctx, dispatcher.Event{
			Command: commands.LoadScenario,
			Args:    a.scenarioArgs(),
		}); err != nil {
			return fmt.Errorf("loading scenario: %w", err)
		}
	}

	switch {
	case a.opts.serve:
		if a.opts.interactive {
			go func() {
				if err := a.interactive(ctx, os.Stdin, os.Stdout); err != nil {
					a.logger.Error("Interactive input stopped", "error", err)
				}
			}()
		}
		return a.serve(ctx)
	case a.opts.interactive:
		return a.interactive(ctx, os.Stdin, os.Stdout)
	default:
		return playHeadless(ctx, a.engine, os.Stdout)
	}
}

func (a *app) hasScenario() bool {
	return a.opts.id != "" || a.opts.port != "" || a.opts.dest != "" || a.opts.orig != ""
}

// scenarioArgs renders the coordinate flags in scenario:load argument order.
func (a *app) scenarioArgs() []string {
	arg := func(v string) string {
		if v == "" {
			return commands.Missing
		}
		return v
	}
	return []string{arg(a.opts.id), arg(a.opts.dest), arg(a.opts.orig), arg(a.opts.port)}
}

func (a *app) serve(ctx context.Context) error {
	hub := stream.NewHub(a.engine, a.dispatcher, a.logger)
	hub.Start()
	defer hub.Close()

	addr := a.opts.addr
	if addr == "" {
		addr = config.GetServerConfig().Addr
	}
	return server.New(a.dispatcher, hub, a.logger).Run(ctx, addr)
}

// interactive reads one host command per line ("playback:speed 2") and
// prints each result as a JSON line.
func (a *app) interactive(ctx context.Context, in io.Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		e, ok := dispatcher.ParseEvent(line, time.Now())
		if !ok {
			continue
		}

		result, err := a.dispatcher.Dispatch(ctx, e)
		if err != nil {
			a.slogManager.WriteLog(e.Command, err.Error(), "WARN")
			_ = enc.Encode(map[string]string{"command": e.Command, "error": err.Error()})
			continue
		}
		if f, ok := result.(session.Frame); ok {
			result = stream.ProgressOf(f)
		}
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// playHeadless plays the loaded scenario from start to finish, printing one
// progress line per frame and a distance summary at the end.
func playHeadless(ctx context.Context, engine *session.Engine, out io.Writer) error {
	f := engine.Frame()
	if f.Placeholder != "" {
		fmt.Fprintln(out, f.Placeholder)
		return errIncomplete
	}
	if f.Dest == nil {
		return errors.New("no scenario: pass -dest, -orig and -port")
	}

	if err := engine.WaitReady(ctx); err != nil {
		return err
	}
	if len(engine.Frame().Routes) == 0 {
		fmt.Fprintln(out, "no port coordinate, routes not built")
		return errNoRoutes
	}

	finished := make(chan session.Frame, 1)
	lines := make(chan []byte, 256)
	unsubscribe := engine.Subscribe(func(f session.Frame) {
		if b, err := json.Marshal(stream.ProgressOf(f)); err == nil {
			select {
			case lines <- b:
			default:
			}
		}
		if !f.Playing && f.Progress >= 100 {
			select {
			case finished <- f:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := engine.Reset(ctx); err != nil {
		return err
	}
	if err := engine.TogglePlay(ctx); err != nil {
		return err
	}

	for {
		select {
		case b := <-lines:
			fmt.Fprintln(out, string(b))
		case last := <-finished:
			for len(lines) > 0 {
				fmt.Fprintln(out, string(<-lines))
			}
			printSummary(out, last)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printSummary(out io.Writer, f session.Frame) {
	tri, _ := f.Route(core.Triangulation)
	via, _ := f.Route(core.ViaPort)
	fmt.Fprintf(out, "%s: %s (%d points)\n", tri.Strategy, util.FormatKm(tri.LengthKm), tri.Points)
	fmt.Fprintf(out, "%s: %s (%d points)\n", via.Strategy, util.FormatKm(via.LengthKm), via.Points)
	fmt.Fprintf(out, "saving: %s\n", util.FormatKm(util.SavingKm(tri.LengthKm, via.LengthKm)))
}
