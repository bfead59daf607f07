package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/talgya/starmarket/internal/config"
)

// newLogger picks a text handler for terminals and JSON otherwise, unless
// the format is set explicitly.
func newLogger(lc config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(lc.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", lc.Level)
	}
	opts := &slog.HandlerOptions{Level: level}

	format := lc.Format
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = "text"
		}
	}

	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want auto, text or json)", lc.Format)
	}
}
