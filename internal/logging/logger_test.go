package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("pather").SetOutput(&buf).SetMinLevel(LogLevelInfo)

	logger.Debug("hidden")
	logger.Infof("node %d reached", 3)
	logger.With(map[string]interface{}{"run": "pindle"}).Warn("stuck")
	logger.Error("grab failed", errors.New("no display"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "INFO [pather] node 3 reached")
	assert.Contains(t, lines[1], "WARN [pather] stuck | run=pindle")
	assert.Contains(t, lines[2], "error=no display")
}

func TestChildLoggersShareSink(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger("bot").SetOutput(&buf)
	child := root.Named("char").With(map[string]interface{}{"class": "hammerdin"})

	var hooked []*LogEntry
	root.AddHook(func(e *LogEntry) { hooked = append(hooked, e) })

	root.SetMinLevel(LogLevelDebug)
	child.Debug("casting")

	require.Len(t, hooked, 1)
	assert.Equal(t, "char", hooked[0].Component)
	assert.Equal(t, "hammerdin", hooked[0].Context["class"])
	assert.Contains(t, buf.String(), "DEBUG [char] casting | class=hammerdin")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"", LogLevelInfo, false},
		{"verbose", LogLevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
