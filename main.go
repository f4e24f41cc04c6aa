package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sevlyar/go-daemon"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/rgeorgiev/filemon/internal/config"
	fdaemon "github.com/rgeorgiev/filemon/internal/daemon"
	"github.com/rgeorgiev/filemon/internal/filter"
	"github.com/rgeorgiev/filemon/internal/logging"
	"github.com/rgeorgiev/filemon/internal/notify"
	"github.com/rgeorgiev/filemon/pkg/telegram"
)

// Set at build time: go build -ldflags "-X main.version=1.2.3"
var version = "dev"

func newCommand() *cli.Command {
	// -v belongs to --verbose; keep the version flag long-only
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}

	return &cli.Command{
		Name:    "filemon",
		Usage:   "Watch a folder and report new files to a Telegram chat",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Aliases:  []string{"e"},
				Usage:    "environment to run in: dev or live",
				Sources:  cli.EnvVars("FILEMON_ENV"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"c"},
				Usage:   "path to the dot-env file",
				Sources: cli.EnvVars("FILEMON_ENV_FILE"),
				Value:   ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "echo logs to the console",
			},
			&cli.BoolFlag{
				Name:    "daemonize",
				Usage:   "run as daemon",
				Sources: cli.EnvVars("FILEMON_DAEMONIZE"),
			},
			&cli.BoolFlag{
				Name:    "notify",
				Usage:   "also raise desktop notifications",
				Sources: cli.EnvVars("FILEMON_DESKTOP_NOTIFY"),
			},
			&cli.DurationFlag{
				Name:    "delay",
				Usage:   "settle delay before processing new files",
				Sources: cli.EnvVars("FILEMON_DELAY"),
				Value:   0,
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	env := config.Environment(cmd.String("env"))
	if env != config.EnvDev && env != config.EnvLive {
		return fmt.Errorf("invalid --env value %q (expected %q or %q)", env, config.EnvDev, config.EnvLive)
	}

	// The default .env is optional, but an explicitly named file must exist.
	envFile := cmd.String("env-file")
	if cmd.IsSet("env-file") {
		if _, err := os.Stat(envFile); err != nil {
			return fmt.Errorf("env file %s does not exist: %w", envFile, err)
		}
	}

	cfg, err := config.Load(envFile, env)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	cfg.Verbose = cmd.Bool("verbose")
	cfg.Daemonize = cmd.Bool("daemonize")
	cfg.Desktop = cmd.Bool("notify")
	cfg.Delay = cmd.Duration("delay")

	// Only daemonize if requested
	if cfg.Daemonize {
		daemonCtx := daemonContext(os.Args)

		d, err := daemonCtx.Reborn()
		if err != nil {
			log.Fatalf("Unable to run: %s", err)
		}
		if d != nil {
			return nil // Parent process exits
		}
		defer daemonCtx.Release()
	}

	// Only the surviving process sets up logging and the watcher.
	logFile, err := logging.Setup(cfg.LogLevel, cfg.LogFolder, cfg.Verbose)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	if cfg.Daemonize {
		log.Info("Daemon started")
	} else {
		log.Info("Running in foreground (not daemonized)")
	}

	flt, err := filter.New(cfg.Extensions, cfg.Exclude)
	if err != nil {
		log.Fatalf("Failed to compile exclude patterns: %v", err)
	}

	client := telegram.New(cfg.BotToken, cfg.ChatID)
	notifier := notify.New(client, string(cfg.Environment), cfg.Desktop)

	return fdaemon.Run(ctx, cfg, flt, notifier)
}

// daemonContext builds the detach context for --daemonize. The original CLI
// arguments are passed through so the reborn child runs with the same flags.
func daemonContext(argv []string) *daemon.Context {
	return &daemon.Context{
		PidFileName: "filemon.pid",
		PidFilePerm: 0644,
		LogFileName: "filemon.log",
		LogFilePerm: 0640,
		WorkDir:     "./",
		Umask:       027,
		Args:        append([]string{"[filemon-daemon]"}, argv[1:]...),
	}
}

func main() {
	app := newCommand()
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
