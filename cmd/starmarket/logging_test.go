package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/talgya/starmarket/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		lc      config.LoggingConfig
		wantErr bool
		json    bool
	}{
		{"auto on a buffer is json", config.LoggingConfig{Level: "info", Format: "auto"}, false, true},
		{"explicit text", config.LoggingConfig{Level: "debug", Format: "text"}, false, false},
		{"explicit json", config.LoggingConfig{Level: "warn", Format: "json"}, false, true},
		{"bad level", config.LoggingConfig{Level: "loud", Format: "text"}, true, false},
		{"bad format", config.LoggingConfig{Level: "info", Format: "xml"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(tt.lc, &buf)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			logger.Error("probe", "k", 1)
			line := strings.TrimSpace(buf.String())
			isJSON := json.Valid([]byte(line))
			if isJSON != tt.json {
				t.Errorf("output %q: json = %v, want %v", line, isJSON, tt.json)
			}
		})
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be enabled")
	}
}
