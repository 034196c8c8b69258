package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"socsync/internal/app"
	"socsync/internal/config"
	"socsync/internal/errors"
	"socsync/pkg/contracts"
)

// options are the command line flags
type options struct {
	configFile  string
	schedule    string
	showVersion bool
	help        bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("socsync", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.configFile, "config", "", "path to a YAML config file (defaults to socsync.yaml or configs/socsync.yaml)")
	fs.StringVar(&opts.schedule, "schedule", "", "cron expression; when set, run on a schedule and serve /healthz, /status and /metrics")
	fs.BoolVar(&opts.showVersion, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return &options{help: true}, nil
		}
		return nil, errors.NewConfigError("invalid command line", err)
	}
	if fs.NArg() > 0 {
		return nil, errors.NewConfigError(fmt.Sprintf("unexpected arguments: %v", fs.Args()), nil)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}

	switch {
	case opts.help:
		return nil
	case opts.showVersion:
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if opts.schedule != "" {
		cfg.Scheduler.Schedule = opts.schedule
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	if err != nil {
		slog.Error("socsync failed",
			slog.String("error_kind", string(errors.KindOf(err))),
			slog.String("error", err.Error()))
	}
	stop()
	os.Exit(errors.ExitCode(err))
}
