package config

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig configures logging behavior
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" default:"warn"`
	Debug bool   `yaml:"debug" env:"DEBUG" default:"false"`
}

// ConfigureZerolog sets the global zerolog level from the configuration.
// Debug wins over Level; unknown levels fall back to warn.
func (c *LogConfig) ConfigureZerolog() {
	level := zerolog.WarnLevel
	if c.Debug {
		level = zerolog.DebugLevel
	} else {
		switch strings.ToLower(c.Level) {
		case "trace":
			level = zerolog.TraceLevel
		case "debug":
			level = zerolog.DebugLevel
		case "info":
			level = zerolog.InfoLevel
		case "warn", "warning":
			level = zerolog.WarnLevel
		case "error":
			level = zerolog.ErrorLevel
		case "fatal":
			level = zerolog.FatalLevel
		case "panic":
			level = zerolog.PanicLevel
		case "disabled", "off":
			level = zerolog.Disabled
		}
	}
	zerolog.SetGlobalLevel(level)
}

// UseConsoleWriter routes the global logger to a human-friendly console
// writer. Command output goes to stdout, so w is normally os.Stderr.
func UseConsoleWriter(w io.Writer) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
}
