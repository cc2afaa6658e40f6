package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// resetLevels restores the process level and drops overrides after a test.
func resetLevels(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = SetLevel("info")
		levels.mu.Lock()
		levels.byName = make(map[string]slog.Level)
		levels.mu.Unlock()
	})
}

func newBuffered(t *testing.T, cfg Config) (Logger, *bytes.Buffer) {
	t.Helper()
	resetLevels(t)
	var buf bytes.Buffer
	cfg.Output = &buf
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "json", want: `"msg":"node started"`},
		{format: "", want: `"msg":"node started"`},
		{format: "text", want: `msg="node started"`},
		{format: "console", want: `msg="node started"`},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resetLevels(t)
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: tt.format, Output: &buf})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			l.Info("node started", "node", 3)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestNew_RejectsUnknownLevels(t *testing.T) {
	resetLevels(t)
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("New() accepted level loud")
	}
	if _, err := New(Config{Level: "info", Components: map[string]string{"chat": "chatty"}}); err == nil {
		t.Error("New() accepted component level chatty")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBuffered(t, Config{Level: "warn"})

	l.Debug("wave adopted")
	l.Info("peer connected")
	if buf.Len() > 0 {
		t.Fatalf("debug and info written at warn: %s", buf.String())
	}
	l.Warn("send failed")
	l.Error("listener closed")
	got := entries(t, buf)
	if len(got) != 2 || got[0]["level"] != "WARN" || got[1]["level"] != "ERROR" {
		t.Errorf("entries = %v", got)
	}
}

func TestLogger_WithKeepsAttrsAndLevel(t *testing.T) {
	l, buf := newBuffered(t, Config{Level: "info"})

	child := l.With("node", 4).With("conn", "peer#2")
	if l.With() != l {
		t.Error("With() without args should return the receiver")
	}
	child.Debug("filtered")
	child.Info("connection closed")

	got := entries(t, buf)
	if len(got) != 1 {
		t.Fatalf("entries = %v", got)
	}
	if got[0]["node"] != float64(4) || got[0]["conn"] != "peer#2" {
		t.Errorf("entry = %v", got[0])
	}
}

func TestSetLevel_AppliesToExistingLoggers(t *testing.T) {
	l, buf := newBuffered(t, Config{Level: "error"})
	election := Component(l, ComponentElection)

	election.Info("token received")
	if buf.Len() > 0 {
		t.Fatal("info written at error level")
	}
	if err := SetLevel("debug"); err != nil {
		t.Fatal(err)
	}
	election.Debug("token received")
	if buf.Len() == 0 {
		t.Error("debug not written after SetLevel(debug)")
	}
	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q", GetLevel())
	}

	if err := SetLevel("verbose"); err == nil {
		t.Error("SetLevel(verbose) should fail")
	}
	if GetLevel() != "debug" {
		t.Errorf("failed SetLevel changed the level to %q", GetLevel())
	}
}

func TestComponent_Overrides(t *testing.T) {
	l, buf := newBuffered(t, Config{
		Level:      "warn",
		Components: map[string]string{"Election": "debug"},
	})
	election := Component(l, ComponentElection)
	chat := Component(l, ComponentChat)

	election.Debug("wave adopted", "initiator", 2)
	chat.Info("chat relayed")
	l.Info("plain")

	got := entries(t, buf)
	if len(got) != 1 {
		t.Fatalf("entries = %v, want only the election debug line", got)
	}
	if got[0][ComponentKey] != ComponentElection || got[0]["initiator"] != float64(2) {
		t.Errorf("entry = %v", got[0])
	}

	if ComponentLevel(ComponentElection) != "debug" || ComponentLevel(ComponentChat) != "warn" {
		t.Errorf("levels = %s/%s", ComponentLevel(ComponentElection), ComponentLevel(ComponentChat))
	}

	if err := SetComponentLevel(ComponentChat, "info"); err != nil {
		t.Fatal(err)
	}
	if err := SetComponentLevel(ComponentElection, ""); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	chat.Info("chat relayed")
	election.Debug("dropped again")
	got = entries(t, buf)
	if len(got) != 1 || got[0]["msg"] != "chat relayed" {
		t.Errorf("after overrides changed, entries = %v", got)
	}
	if pairs := ComponentLevels(); len(pairs) != 1 || pairs[0] != "chat=info" {
		t.Errorf("ComponentLevels() = %v", pairs)
	}
	if err := SetComponentLevel(ComponentChat, "nope"); err == nil {
		t.Error("SetComponentLevel(nope) should fail")
	}
}

func TestComponent_NilUsesDefault(t *testing.T) {
	if Component(nil, ComponentGeneral) == nil {
		t.Error("Component(nil) returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: " info ", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	l, buf := newBuffered(t, Config{Level: "debug"})
	prev := Default()
	SetDefault(l)
	t.Cleanup(func() { SetDefault(prev) })

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	if got := entries(t, buf); len(got) != 4 {
		t.Errorf("package functions wrote %d entries, want 4", len(got))
	}
}

func TestLogger_WithContext(t *testing.T) {
	l, buf := newBuffered(t, Config{Level: "info"})
	l.WithContext(context.Background()).Info("with context")
	if buf.Len() == 0 {
		t.Error("expected output")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("dropped")
	l.With("k", "v").Info("dropped")
	Component(l, ComponentChat).Error("dropped")
}
