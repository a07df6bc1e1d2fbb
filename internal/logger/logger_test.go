package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jwebster45206/goblin-king/internal/config"
)

func TestSetupWriter(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{name: "production uses json", environment: "production", wantJSON: true},
		{name: "development uses text", environment: "development", wantJSON: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := SetupWriter(&config.Config{Environment: tt.environment, LogLevel: slog.LevelInfo}, &buf)
			log.Debug("hidden")
			log.Info("hello")

			out := buf.String()
			if strings.Contains(out, "hidden") {
				t.Error("Debug output should be filtered at info level")
			}
			if isJSON := strings.HasPrefix(out, "{"); isJSON != tt.wantJSON {
				t.Errorf("Expected json=%v, got output %q", tt.wantJSON, out)
			}
		})
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	id := uuid.New()

	WithError(WithGameID(log, id), errors.New("boom")).Info("failed")

	out := buf.String()
	if !strings.Contains(out, "game_id="+id.String()) {
		t.Errorf("Expected game_id in %q", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("Expected error in %q", out)
	}
}
