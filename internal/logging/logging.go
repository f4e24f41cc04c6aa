package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

// ParseLevel maps a LOG_TYPE value to a logrus level.
func ParseLevel(name string) (log.Level, error) {
	switch name {
	case "ERROR":
		return log.ErrorLevel, nil
	case "WARNING":
		return log.WarnLevel, nil
	case "INFO":
		return log.InfoLevel, nil
	case "DEBUG":
		return log.DebugLevel, nil
	default:
		return 0, fmt.Errorf("unrecognized log level %q (expected ERROR, WARNING, INFO or DEBUG)", name)
	}
}

// Setup configures the global logger: a timestamped log file inside folder,
// severity filtering, and an optional console mirror. The log folder is
// created if it does not exist. Returns the open log file; the caller owns
// closing it on shutdown.
func Setup(levelName, folder string, verbose bool) (*os.File, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log folder %s: %w", folder, err)
	}

	name := fmt.Sprintf("filemon-%s.log", time.Now().Format("2006-01-02_15-04-05"))
	file, err := os.OpenFile(filepath.Join(folder, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = file
	if verbose {
		out = io.MultiWriter(file, os.Stderr)
	}

	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		},
	})
	// DEBUG lines additionally carry the caller
	log.SetReportCaller(level == log.DebugLevel)

	return file, nil
}
