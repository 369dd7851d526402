package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/authlock/pkg/intercept"
	"github.com/entrhq/authlock/pkg/logging"
	"github.com/entrhq/authlock/pkg/session"
)

// pageSource reports the URL of the page the user is looking at
type pageSource interface {
	ActiveURL() (string, error)
}

// errQuit ends the console loop
var errQuit = errors.New("quit")

// runCommand launches the browser and serves console commands until the
// user quits or the browser goes away
func runCommand(ctx context.Context, a *app, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(out)
	profilePath := fs.String("profile", "", "Path to the browser profile (YAML)")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	profile := intercept.DefaultProfile()
	if *profilePath != "" {
		var err error
		if profile, err = intercept.LoadProfile(*profilePath); err != nil {
			return err
		}
	}

	scope, err := intercept.NewScope(a.patterns)
	if err != nil {
		return err
	}
	a.logger.Infof("Intercepting %s", strings.Join(scope.Patterns(), " "))

	// Requests are let through until the stored lock has been read
	a.controller.Start()
	defer a.controller.Wait()

	var routerOpts []intercept.RouterOption
	if *metricsAddr != "" {
		metrics := intercept.NewMetrics()
		routerOpts = append(routerOpts, intercept.WithMetrics(metrics))

		server := serveMetrics(*metricsAddr, metrics, a.logger)
		defer server.Close()
	}

	router, err := intercept.NewRouter(a.engine, a.controller, scope, a.logger.With("intercept"), routerOpts...)
	if err != nil {
		return err
	}

	browser, err := intercept.Launch(profile, router, a.logger.With("browser"))
	if err != nil {
		return err
	}
	defer browser.Shutdown()

	<-a.controller.Ready()
	printState(out, a.controller.Snapshot())
	if path := a.logger.LogPath(); path != "" {
		fmt.Fprintf(out, "Log: %s\n", path)
	}
	fmt.Fprintln(out, "Commands: lock [url|index], unlock, status, quit")

	return serveConsole(ctx, a.controller, browser, browser.Done(), in, out)
}

// serveMetrics exposes metrics on addr until the returned server is closed
func serveMetrics(addr string, metrics *intercept.Metrics, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
	logger.Infof("Serving metrics on %s/metrics", addr)
	return server
}

// serveConsole executes commands read from in until one of the exit
// conditions of runCommand occurs
func serveConsole(ctx context.Context, c *session.Controller, pages pageSource, closed <-chan struct{}, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			fmt.Fprintln(out, "Browser closed")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := executeLine(c, pages, line, out)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}
	}
}

// executeLine runs one console command
func executeLine(c *session.Controller, pages pageSource, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "lock":
		target := ""
		if len(fields) > 1 {
			target = fields[1]
		} else {
			url, err := pages.ActiveURL()
			if err != nil {
				return err
			}
			target = url
		}
		state, err := lockTarget(c, target)
		if err != nil {
			return err
		}
		printState(out, state)

	case "unlock":
		printState(out, c.Unlock())

	case "status":
		printState(out, c.Snapshot())

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}
