// Package logger configures the process-wide zerolog logger.
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup parses the level, installs it globally and returns the root logger.
// With pretty enabled, logs go through the human-readable console writer.
func Setup(level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	root := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if pretty {
		root = root.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	log.Logger = root
	return root, nil
}
