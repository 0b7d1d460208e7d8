package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3/ffcli"

	wifilog "github.com/hidraeco/gatewayd/internal/log"
	"github.com/hidraeco/gatewayd/internal/tui"
)

var (
	// Version is the version of the application. It is set at build time.
	Version string = "dev"
)

// main is the entry point of the application
func main() {
	var (
		cfg         Config
		rootFlagSet = flag.NewFlagSet("gatewayd", flag.ExitOnError)
		_           = rootFlagSet.String("config", "", "path to toml config file (env: GATEWAYD_CONFIG)")
		version     = rootFlagSet.Bool("version", false, "display version")
	)
	cfg.RegisterFlags(rootFlagSet)

	var logs *wifilog.RecentHandler
	setupLogging := func(quiet bool) *slog.Logger {
		opts := wifilog.Options{Debug: cfg.Debug, Verbose: cfg.Verbose, File: cfg.LogFile}
		if quiet && cfg.LogFile == "" {
			// The monitor owns the terminal; records still reach its log pane.
			opts.Output = io.Discard
		}
		logger := wifilog.Init(opts)
		logs = wifilog.Default()
		return logger
	}

	// withApp composes the gateway for one command and closes it afterwards.
	withApp := func(quiet bool, daemon bool, fn func(a *app) error) error {
		logger := setupLogging(quiet)
		radio, err := GetRadio()
		if err != nil {
			return err
		}
		var options []appOption
		if daemon {
			options = append(options, withDaemon())
		}
		a, err := newApp(cfg, radio, logger, options...)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Warn("could not close credential store", "error", err)
			}
		}()
		return fn(a)
	}

	serveCmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "gatewayd [flags] serve",
		ShortHelp:  "Run the gateway: access point, auto-connect and web pages",
		Exec: func(ctx context.Context, args []string) error {
			return withApp(false, true, func(a *app) error {
				return runServe(ctx, a, logs)
			})
		},
	}

	monitorCmd := &ffcli.Command{
		Name:       "monitor",
		ShortUsage: "gatewayd [flags] monitor",
		ShortHelp:  "Run the gateway with a terminal monitor",
		Exec: func(ctx context.Context, args []string) error {
			if cfg.Theme != "" {
				f, err := os.Open(cfg.Theme)
				if err != nil {
					return fmt.Errorf("error loading theme: %w", err)
				}
				theme, err := tui.LoadTheme(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("error loading theme: %w", err)
				}
				tui.CurrentTheme = theme
			}
			return withApp(true, true, func(a *app) error {
				return runMonitor(ctx, a, logs)
			})
		},
	}

	statusFlagSet := flag.NewFlagSet("status", flag.ExitOnError)
	statusJSON := statusFlagSet.Bool("json", false, "output in JSON format")
	statusCmd := &ffcli.Command{
		Name:      "status",
		ShortHelp: "Show the station link and access point",
		FlagSet:   statusFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			return withApp(false, false, func(a *app) error {
				return runStatus(os.Stdout, *statusJSON, a.manager)
			})
		},
	}

	networksFlagSet := flag.NewFlagSet("networks", flag.ExitOnError)
	networksJSON := networksFlagSet.Bool("json", false, "output in JSON format")
	networksScan := networksFlagSet.Bool("scan", false, "scan and merge with nearby networks")
	networksCmd := &ffcli.Command{
		Name:      "networks",
		ShortHelp: "List saved networks",
		FlagSet:   networksFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			return withApp(false, false, func(a *app) error {
				return runNetworks(os.Stdout, *networksJSON, *networksScan, a.manager)
			})
		},
	}

	addFlagSet := flag.NewFlagSet("add", flag.ExitOnError)
	addPassword := addFlagSet.String("password", "", "password for the network")
	addCmd := &ffcli.Command{
		Name:       "add",
		ShortUsage: "gatewayd add [-password <password>] <ssid>",
		ShortHelp:  "Save a network for auto-connect",
		FlagSet:    addFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("add requires an ssid")
			}
			return withApp(false, false, func(a *app) error {
				return runAdd(os.Stdout, a.manager, args[0], *addPassword)
			})
		},
	}

	forgetFlagSet := flag.NewFlagSet("forget", flag.ExitOnError)
	forgetAll := forgetFlagSet.Bool("all", false, "forget every saved network")
	forgetCmd := &ffcli.Command{
		Name:       "forget",
		ShortUsage: "gatewayd forget [-all] [index]",
		ShortHelp:  "Forget a saved network",
		FlagSet:    forgetFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			return withApp(false, false, func(a *app) error {
				return runForget(os.Stdout, a.manager, *forgetAll, args)
			})
		},
	}

	connectFlagSet := flag.NewFlagSet("connect", flag.ExitOnError)
	connectPassword := connectFlagSet.String("password", "", "password for the network")
	connectCmd := &ffcli.Command{
		Name:       "connect",
		ShortUsage: "gatewayd connect [-password <password>] [ssid]",
		ShortHelp:  "Connect to a network, or to the saved networks without an ssid",
		FlagSet:    connectFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			var ssid string
			if len(args) > 0 {
				ssid = args[0]
			}
			return withApp(false, false, func(a *app) error {
				return runConnect(os.Stdout, a.manager, cfg, ssid, *connectPassword)
			})
		},
	}

	apCmd := &ffcli.Command{
		Name:       "ap",
		ShortUsage: "gatewayd ap <start|stop|qr>",
		ShortHelp:  "Control the local access point",
		Exec: func(ctx context.Context, args []string) error {
			var action string
			if len(args) > 0 {
				action = args[0]
			}
			return withApp(false, false, func(a *app) error {
				return runAccessPoint(os.Stdout, a.manager, action)
			})
		},
	}

	root := &ffcli.Command{
		ShortUsage: "gatewayd [flags] <subcommand> [args...]",
		FlagSet:    rootFlagSet,
		Options:    parseOptions(),
		Subcommands: []*ffcli.Command{
			serveCmd, monitorCmd, statusCmd, networksCmd, addCmd, forgetCmd, connectCmd, apCmd,
		},
		Exec: func(ctx context.Context, args []string) error {
			if *version {
				fmt.Println(Version)
				return nil
			}
			return flag.ErrHelp
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if err := root.Run(ctx); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			root.FlagSet.Usage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
