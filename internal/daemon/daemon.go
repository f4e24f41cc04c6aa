package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/farmergreg/rfsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/fsnotify.v1"

	"github.com/rgeorgiev/filemon/internal/config"
	"github.com/rgeorgiev/filemon/internal/filter"
	"github.com/rgeorgiev/filemon/internal/notify"
)

// Notifier delivers file-detection and lifecycle messages.
type Notifier interface {
	FileDetected(ev notify.Event) error
	Startup() error
	Shutdown() error
	Crashed(err error) error
}

// Run watches the configured folder and notifies on qualifying files; it
// blocks until a termination signal, context cancellation, or unrecoverable
// watcher failure.
func Run(ctx context.Context, cfg *config.Config, flt *filter.Filter, n Notifier) error {
	dir := cfg.WatchFolder

	watcher, err := rfsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.AddRecursive(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// Signal handling for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	log.Infof("Monitoring folder: %s", dir)
	if err := n.Startup(); err != nil {
		log.Errorf("Failed to send startup message: %v", err)
	}

	// Main event handler loop. Transient backend errors are logged and
	// watching continues; a closed channel is unrecoverable.
	fatal := make(chan error, 1)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					fatal <- fmt.Errorf("watch backend closed the event stream")
					return
				}
				if event.Op != fsnotify.Create {
					continue
				}
				// Settle delay addresses files still being written by
				// their producer when the event fires.
				if cfg.Delay > 0 {
					time.Sleep(cfg.Delay)
				}
				handleCreate(event.Name, flt, n)
			case err, ok := <-watcher.Errors:
				if !ok {
					fatal <- fmt.Errorf("watch backend closed the error stream")
					return
				}
				log.Errorf("Watch error: %v", err)
			}
		}
	}()

	select {
	case sig := <-signals:
		log.Infof("Received signal: %s, shutting down...", sig)
		if err := n.Shutdown(); err != nil {
			log.Errorf("Failed to send shutdown message: %v", err)
		}
		cleanup(cfg)
		return nil
	case err := <-fatal:
		log.Errorf("Watcher failed: %v", err)
		if nerr := n.Crashed(err); nerr != nil {
			log.Errorf("Failed to send crash message: %v", nerr)
		}
		cleanup(cfg)
		return err
	case <-ctx.Done():
		if err := n.Shutdown(); err != nil {
			log.Errorf("Failed to send shutdown message: %v", err)
		}
		cleanup(cfg)
		return ctx.Err()
	}
}

// handleCreate processes a single create event to completion. A path that
// vanished before the stat (created then immediately renamed or deleted)
// is skipped; directories never notify.
func handleCreate(path string, flt *filter.Filter, n Notifier) {
	info, err := os.Stat(path)
	if err != nil {
		log.Debugf("Skipping %s: %v", path, err)
		return
	}
	if info.IsDir() {
		log.Debugf("Ignoring new directory: %s", path)
		return
	}

	log.Infof("New file: %s", path)

	if !flt.Match(path) {
		log.Debugf("Extension not monitored: %s", path)
		return
	}

	log.Warnf("Detected monitored file: %s", path)
	ev := notify.Event{
		Path: path,
		Ext:  strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")),
		Time: time.Now(),
	}
	if err := n.FileDetected(ev); err != nil {
		log.Errorf("Failed to send Telegram message: %v", err)
		return
	}
	log.Info("Telegram message sent successfully")
}

func cleanup(cfg *config.Config) {
	if cfg.Daemonize {
		if err := os.Remove("filemon.pid"); err != nil && !os.IsNotExist(err) {
			log.Warnf("Error removing PID file: %v", err)
		}
	}
	log.Info("Cleanup complete. Exiting.")
}
