package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogger_Levels(t *testing.T) {
	t.Setenv("SOCKIT_LOG_LEVEL", "")

	var buf bytes.Buffer
	logger := NewWithWriter("socket", &buf)

	// Debug is filtered at the default info level.
	logger.Debug().Msg("debug message")
	if buf.Len() > 0 {
		t.Errorf("debug message should be filtered at info level, got: %s", buf.String())
	}

	logger.Info().Msg("info message")
	if buf.Len() == 0 {
		t.Fatal("info message should be logged")
	}

	output := buf.String()
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected info level in log, got: %s", output)
	}
	if !strings.Contains(output, "info message") {
		t.Errorf("expected message in log, got: %s", output)
	}
}

func TestLogger_Component(t *testing.T) {
	t.Setenv("SOCKIT_LOG_LEVEL", "")

	var buf bytes.Buffer
	logger := NewWithWriter("transport", &buf)

	logger.Info().Msg("test message")

	if !strings.Contains(buf.String(), `"component":"transport"`) {
		t.Errorf("expected component field in log, got: %s", buf.String())
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.value, func(t *testing.T) {
			t.Setenv("SOCKIT_LOG_LEVEL", tt.value)
			if got := LevelFromEnv(); got != tt.want {
				t.Errorf("LevelFromEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger_EnvLevelFiltersOutput(t *testing.T) {
	t.Setenv("SOCKIT_LOG_LEVEL", "error")

	var buf bytes.Buffer
	logger := NewWithWriter("socket", &buf)

	logger.Warn().Msg("warn message")
	if buf.Len() > 0 {
		t.Errorf("warn should be filtered at error level, got: %s", buf.String())
	}

	logger.Error().Msg("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("expected error message, got: %s", buf.String())
	}
}

func TestNop(t *testing.T) {
	logger := Nop()

	// Must be safe to use and produce nothing.
	logger.Error().Str("key", "value").Msg("discarded")
	if logger.GetLevel() != zerolog.Disabled {
		t.Errorf("Nop() level = %v, want disabled", logger.GetLevel())
	}
}
