package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Settings controls where and how the global zerolog logger writes.
type Settings struct {
	Level      string
	Format     string
	File       string
	WithCaller bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init configures log.Logger. With an empty File, logs go to stderr;
// otherwise they go to a rotated file (the TUI always uses a file, since
// anything written to stderr would tear the screen).
func Init(s Settings) (io.Closer, error) {
	zerolog.SetGlobalLevel(ParseLevel(s.Level))
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if s.File != "" {
		path, err := homedir.Expand(s.File)
		if err != nil {
			return nil, errors.Wrapf(err, "expand log file %q", s.File)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    orDefault(s.MaxSizeMB, 10),
			MaxBackups: orDefault(s.MaxBackups, 3),
			MaxAge:     orDefault(s.MaxAgeDays, 28),
		}
		w, closer = lj, lj
	}

	switch strings.ToLower(s.Format) {
	case "", FormatText:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: s.File != ""}
	case FormatJSON:
	default:
		return nil, errors.Errorf("unknown log format %q", s.Format)
	}

	ctx := zerolog.New(w).With().Timestamp()
	if s.WithCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	return closer, nil
}

// ParseLevel converts a level name into a zerolog.Level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	case "info":
		fallthrough
	default:
		return zerolog.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
