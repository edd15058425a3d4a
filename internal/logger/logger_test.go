package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"WARN", WARN},
		{"warning", WARN},
		{"ERROR", ERROR},
		{"", INFO},
		{"verbose", INFO},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: WARN, Output: &buf})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	l.Info("hidden")
	l.Warn("shown", F("count", 3))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO entry written at WARN level: %q", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "count=3") {
		t.Errorf("missing WARN entry or field: %q", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("caller not reported: %q", out)
	}
}

func TestNamedAndSecretFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: DEBUG, Output: &buf})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	l.Named("auth").Info("login", Secret("token", "abcdef123456"))

	out := buf.String()
	if !strings.Contains(out, "component=auth") {
		t.Errorf("missing component field: %q", out)
	}
	if strings.Contains(out, "abcdef123456") {
		t.Errorf("secret leaked: %q", out)
	}
	if !strings.Contains(out, "token=abcd****") {
		t.Errorf("masked secret missing: %q", out)
	}
}

func TestLoggerRotatesLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := New(Config{Level: INFO, FilePath: path, MaxSize: 32, MaxBackups: 2})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated backup: %v", err)
	}

	l.Info("fresh")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "fresh") {
		t.Errorf("new entry not in fresh log: %q", data)
	}
}

func TestDiscard(t *testing.T) {
	// must not panic
	Discard().Error("nothing", F("k", "v"))
}
