package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFanoutToJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gtc.log")
	var text bytes.Buffer

	logger, closeLog, err := New(&text, slog.LevelInfo, path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("compiled", "file", "prog.teeny", "variables", 2)
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	if got := text.String(); !strings.Contains(got, "msg=compiled") || !strings.Contains(got, "file=prog.teeny") || strings.Contains(got, "hidden") {
		t.Errorf("text log = %q", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("JSON log has %d records, want 1:\n%s", len(lines), data)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "compiled" || rec["file"] != "prog.teeny" || rec["variables"] != float64(2) {
		t.Errorf("JSON record = %v", rec)
	}
}

func TestTextOnly(t *testing.T) {
	var text bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger, closeLog, err := New(&text, level, "")
	if err != nil {
		t.Fatal(err)
	}
	defer closeLog()

	logger.Info("quiet")
	if text.Len() != 0 {
		t.Errorf("info record logged at warn level: %q", text.String())
	}
	level.Set(slog.LevelDebug)
	logger.Debug("loud")
	if !strings.Contains(text.String(), "msg=loud") {
		t.Errorf("debug record missing after lowering the level: %q", text.String())
	}
}

func TestBadJSONPath(t *testing.T) {
	_, _, err := New(&bytes.Buffer{}, slog.LevelInfo, filepath.Join(t.TempDir(), "missing", "gtc.log"))
	if err == nil {
		t.Error("expected an error for a log file in a missing directory")
	}
}
