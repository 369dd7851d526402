package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/entrhq/authlock/pkg/account"
	appconfig "github.com/entrhq/authlock/pkg/config"
	"github.com/entrhq/authlock/pkg/intercept"
	"github.com/entrhq/authlock/pkg/redirect"
	"github.com/entrhq/authlock/pkg/session"
)

// lockCommand locks to the account encoded in a URL, or to a bare index
func lockCommand(_ context.Context, a *app, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: authlock lock <url|index>")
	}

	a.controller.Load()
	state, err := lockTarget(a.controller, args[0])
	if err != nil {
		return err
	}
	a.controller.Wait()

	printState(out, state)
	return nil
}

// lockTarget locks c to target, which is either an app URL or an index
func lockTarget(c *session.Controller, target string) (session.State, error) {
	if n, err := strconv.Atoi(target); err == nil {
		return c.LockIndex(account.Index(n))
	}
	return c.Lock(target)
}

func unlockCommand(_ context.Context, a *app, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: authlock unlock")
	}

	a.controller.Load()
	state := a.controller.Unlock()
	a.controller.Wait()

	printState(out, state)
	return nil
}

func statusCommand(_ context.Context, a *app, args []string, _ io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(out)
	verbose := fs.Bool("v", false, "Also show the config file, its sections and the match scope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("usage: authlock status [-v]")
	}

	a.controller.Load()
	printState(out, a.controller.Snapshot())
	if *verbose {
		return printSettings(out, a)
	}
	return nil
}

// resetCommand restores every config section to its defaults
func resetCommand(_ context.Context, a *app, args []string, _ io.Reader, out io.Writer) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: authlock reset")
	}

	a.manager.ResetAll()
	if err := a.manager.SaveAll(); err != nil {
		return err
	}
	a.logger.Infof("Config restored to defaults")

	a.controller.Load()
	printState(out, a.controller.Snapshot())
	return nil
}

// checkCommand dry-runs one request against the stored state
func checkCommand(_ context.Context, a *app, args []string, _ io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(out)
	method := fs.String("method", redirect.MethodGet, "HTTP method of the request")
	resourceType := fs.String("type", redirect.TypeMainFrame, "Resource type (main_frame, sub_frame, xmlhttprequest, script, ...)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: authlock check [-method GET] [-type main_frame] <url>")
	}

	a.controller.Load()
	state := a.controller.Snapshot()

	req := redirect.Request{
		URL:          fs.Arg(0),
		Method:       strings.ToUpper(*method),
		ResourceType: *resourceType,
	}
	printDecision(out, req, state, a.engine.Decide(req, state))
	return nil
}

func printState(w io.Writer, state session.State) {
	fmt.Fprintf(w, "Account lock: %s\n", state)
	if label := state.Label(); label != "" {
		fmt.Fprintf(w, "Indicator: [%s]\n", label)
	}
}

func printSettings(w io.Writer, a *app) error {
	if fileStore, ok := a.manager.Store().(*appconfig.FileStore); ok {
		fmt.Fprintf(w, "Config: %s\n", fileStore.Path())
	}
	if path := a.logger.LogPath(); path != "" {
		fmt.Fprintf(w, "Log: %s\n", path)
	}
	for _, section := range a.manager.GetSections() {
		fmt.Fprintf(w, "  %s (%s): %s\n", section.Title(), section.ID(), section.Description())
	}

	scope, err := intercept.NewScope(a.patterns)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Patterns: %s\n", strings.Join(scope.Patterns(), " "))
	return nil
}

func printDecision(w io.Writer, req redirect.Request, state session.State, d redirect.Decision) {
	fmt.Fprintf(w, "Request:  %s %s (%s)\n", req.Method, req.URL, req.ResourceType)
	fmt.Fprintf(w, "State:    %s\n", state)

	if !d.Known {
		fmt.Fprintf(w, "App:      not a supported app\n")
	} else {
		fmt.Fprintf(w, "App:      %s (%s)\n", d.App.Host, d.App.Convention)
		fmt.Fprintf(w, "Eligible: %t\n", d.Eligible)
		if d.Outcome.Changed {
			fmt.Fprintf(w, "Rewrite:  %s\n", d.Outcome.URL)
		} else if d.Eligible {
			fmt.Fprintf(w, "Rewrite:  none\n")
		}
	}

	if d.Action.IsRedirect() {
		fmt.Fprintf(w, "Action:   redirect to %s\n", d.Action.RedirectURL)
	} else {
		fmt.Fprintf(w, "Action:   none\n")
	}
}
