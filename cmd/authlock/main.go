// Package main provides the authlock command line tool.
// authlock keeps Google apps on one signed-in account: while locked, every
// navigation to a supported app is redirected to the same page under the
// locked account index.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	appconfig "github.com/entrhq/authlock/pkg/config"
	"github.com/entrhq/authlock/pkg/logging"
	"github.com/entrhq/authlock/pkg/redirect"
	"github.com/entrhq/authlock/pkg/session"
)

const version = "0.1.0" // Version of authlock

// Config holds the global command line configuration
type Config struct {
	ConfigPath  string
	RedisURL    string
	ShowVersion bool
}

func main() {
	config, args := parseFlags(os.Args[1:])

	if config.ShowVersion {
		fmt.Printf("authlock v%s\n", version)
		return
	}

	if len(args) == 0 {
		usage(os.Stderr)
		os.Exit(2)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := dispatch(ctx, config, args, os.Stdin, os.Stdout); err != nil {
		cancel()
		log.Fatalf("Error: %v", err)
	}
}

// parseFlags parses the global flags and returns the remaining arguments
func parseFlags(argv []string) (*Config, []string) {
	config := &Config{}

	fs := flag.NewFlagSet("authlock", flag.ExitOnError)
	fs.StringVar(&config.ConfigPath, "config", "", "Path to the config file (default: ~/.authlock/config.json)")
	fs.StringVar(&config.RedisURL, "redis", os.Getenv("AUTHLOCK_REDIS_URL"), "Share the account lock through Redis (or set AUTHLOCK_REDIS_URL env var)")
	fs.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")
	fs.Usage = func() { usage(os.Stderr) }

	_ = fs.Parse(argv)
	return config, fs.Args()
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "authlock - keep Google apps on one account\n\n")
	fmt.Fprintf(w, "Usage: authlock [-config path] [-redis url] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  run [-profile browser.yaml] [-metrics-addr :9090]\n")
	fmt.Fprintf(w, "                                Launch a browser and redirect its requests\n")
	fmt.Fprintf(w, "  lock <url|index>              Lock to the account in <url>, or to an index\n")
	fmt.Fprintf(w, "  unlock                        Stop redirecting\n")
	fmt.Fprintf(w, "  status [-v]                   Show the stored lock\n")
	fmt.Fprintf(w, "  reset                         Restore the config file defaults\n")
	fmt.Fprintf(w, "  check [-method GET] [-type main_frame] <url>\n")
	fmt.Fprintf(w, "                                Show the decision for a request\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  authlock lock https://mail.google.com/mail/u/1/#inbox\n")
	fmt.Fprintf(w, "  authlock check https://meet.google.com/abc-defg\n")
	fmt.Fprintf(w, "  authlock run -profile browser.yaml\n")
	fmt.Fprintf(w, "  authlock -redis redis://localhost:6379/0 lock 2\n")
}

// command is one authlock subcommand
type command func(ctx context.Context, a *app, args []string, in io.Reader, out io.Writer) error

var commands = map[string]command{
	"run":    runCommand,
	"lock":   lockCommand,
	"unlock": unlockCommand,
	"status": statusCommand,
	"reset":  resetCommand,
	"check":  checkCommand,
}

// dispatch runs one subcommand
func dispatch(ctx context.Context, config *Config, args []string, in io.Reader, out io.Writer) error {
	name, rest := args[0], args[1:]
	command, ok := commands[name]
	if !ok {
		if name == "help" {
			usage(out)
			return nil
		}
		return fmt.Errorf("unknown command %q (see authlock help)", name)
	}

	logger := openLogger()
	defer logger.Close()

	a, err := newApp(config.ConfigPath, logger)
	if err != nil {
		return err
	}

	if config.RedisURL != "" {
		store, err := a.useRedis(ctx, config.RedisURL)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	return command(ctx, a, rest, in, out)
}

// app bundles the components every command works with
type app struct {
	manager    *appconfig.Manager
	controller *session.Controller
	engine     *redirect.Engine
	logger     *logging.Logger

	// patterns is the request match scope from the intercept section
	patterns []string
}

// newApp opens the config file and wires the session controller and engine.
// The persisted state is not loaded yet.
func newApp(configPath string, logger *logging.Logger) (*app, error) {
	manager, err := appconfig.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}

	store, err := session.NewConfigStore(manager)
	if err != nil {
		return nil, err
	}

	intercept := appconfig.GetIntercept(manager)
	if intercept == nil {
		return nil, fmt.Errorf("config has no %s section", appconfig.SectionIDIntercept)
	}
	if err := intercept.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s settings: %w", appconfig.SectionIDIntercept, err)
	}
	requireLock, logRewrites, patterns := intercept.Settings()

	opts := []redirect.Option{redirect.WithRequireLock(requireLock)}
	if logRewrites {
		opts = append(opts, redirect.WithLogger(logger.With("engine")))
	}

	return &app{
		manager:    manager,
		controller: session.New(store, logger.With("session")),
		engine:     redirect.New(opts...),
		logger:     logger,
		patterns:   patterns,
	}, nil
}

// useRedis replaces the config file store with a shared Redis store
func (a *app) useRedis(ctx context.Context, redisURL string) (*session.RedisStore, error) {
	store, err := session.NewRedisStore(redisURL, "")
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	a.controller = session.New(store, a.logger.With("session"))
	a.logger.Infof("Account lock shared through redis key %s", session.DefaultRedisKey)
	return store, nil
}

// openLogger returns the run logger. File problems fall back to stderr.
func openLogger() *logging.Logger {
	logger, err := logging.NewLogger("cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging to stderr: %v\n", err)
	}
	return logger
}
