package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if gotLog := buf.Len() > 0; gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestVerboseFlagRaisesLevel(t *testing.T) {
	testEnv(t)
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"-v", "cache", "path"})
	root.SetOut(&bytes.Buffer{})
	c.stdout = &bytes.Buffer{}
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if c.Logger.GetLevel() != LogDebug {
		t.Errorf("level = %v, want debug", c.Logger.GetLevel())
	}
}

func TestStageDone(t *testing.T) {
	var buf bytes.Buffer
	startStage(newLogger(&buf, log.InfoLevel), "trace").done("Traced program", true, "steps", 3)
	out := buf.String()
	for _, want := range []string{"Traced program", "stage=trace", "steps=3", "cached=true", "took="} {
		if !strings.Contains(out, want) {
			t.Errorf("stage output %q missing %q", out, want)
		}
	}
}

func TestStageStartIsDebug(t *testing.T) {
	var buf bytes.Buffer
	startStage(newLogger(&buf, log.InfoLevel), "build")
	if buf.Len() != 0 {
		t.Errorf("stage start logged at info level: %q", buf.String())
	}
	startStage(newLogger(&buf, log.DebugLevel), "build")
	if !strings.Contains(buf.String(), "stage=build") {
		t.Errorf("stage start missing at debug level: %q", buf.String())
	}
}

func TestCommandLogger(t *testing.T) {
	if commandLogger(context.Background()) == nil {
		t.Error("commandLogger should fall back to the default logger")
	}
	custom := newLogger(&bytes.Buffer{}, log.InfoLevel)
	if commandLogger(withLogger(context.Background(), custom)) != custom {
		t.Error("commandLogger should return the attached logger")
	}
}
