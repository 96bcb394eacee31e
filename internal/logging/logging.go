// Package logging configures the commonlog backend shared by the engine
// and the CLI.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// Name is the root logger name used by the engine.
const Name = "slate"

var levels = map[string]commonlog.Level{
	"none":     commonlog.None,
	"critical": commonlog.Critical,
	"error":    commonlog.Error,
	"warning":  commonlog.Warning,
	"warn":     commonlog.Warning,
	"notice":   commonlog.Notice,
	"info":     commonlog.Info,
	"debug":    commonlog.Debug,
}

// ParseLevel maps a level name (case-insensitive) to a commonlog level.
func ParseLevel(name string) (commonlog.Level, error) {
	level, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return commonlog.None, fmt.Errorf("invalid log level: %s", name)
	}
	return level, nil
}

// Configure sets the maximum level and destination of all engine loggers.
// An empty file logs to stderr.
func Configure(level string, file string) error {
	max, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var path *string
	if file != "" {
		// The backend exits the process on an unwritable file, so check first.
		f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", file, err)
		}
		f.Close()
		path = &file
	}

	commonlog.Configure(verbosity(max), path)
	commonlog.SetMaxLevel(max)
	return nil
}

// Logger returns the logger for a sub-component, e.g. Logger("vm") is
// "slate.vm".
func Logger(component ...string) commonlog.Logger {
	if len(component) == 0 {
		return commonlog.GetLogger(Name)
	}
	return commonlog.GetLogger(Name + "." + strings.Join(component, "."))
}

func verbosity(level commonlog.Level) int {
	return int(level) - 4
}
