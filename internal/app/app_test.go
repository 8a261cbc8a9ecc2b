package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kobzarvs/tedit/internal/config"
	"github.com/kobzarvs/tedit/internal/history"
	"github.com/kobzarvs/tedit/internal/session"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TEDIT_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("TEDIT_LOG_FILE", filepath.Join(dir, "tedit.log"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := "[history]\nsync = false\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "config.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func runScript(t *testing.T, args []string, script string) string {
	t.Helper()
	var out bytes.Buffer
	a := New(args)
	a.in = strings.NewReader(script)
	a.out = &out
	if err := a.Run(); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return out.String()
}

func wantOutput(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Fatalf("output missing %q:\n%s", w, out)
		}
	}
}

func TestScriptedSession(t *testing.T) {
	dir := setupEnv(t)
	doc := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(doc, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	export := filepath.Join(dir, "export.txt")

	out := runScript(t, []string{doc}, strings.Join([]string{
		"insert hello",
		`insert 5 \nworld`,
		"show",
		"undo",
		"show",
		"redo",
		"save",
		"history",
		"history export " + export,
		"goto 2",
		"quit",
	}, "\n"))

	wantOutput(t, out,
		"Opened: "+doc,
		"--- Buffer contents ---\nhello\nworld\n--- End ---",
		"Undo.",
		"--- Buffer contents ---\nhello\n--- End ---",
		"Redo.",
		"Saved: "+doc,
		"  Operations: 2",
		"History exported to: "+export,
		"Moved to line 2",
		"Line 2, Col 1",
	)

	data, err := os.ReadFile(doc)
	if err != nil || string(data) != "hello\nworld" {
		t.Fatalf("saved doc = %q, %v", data, err)
	}
	if _, err := os.Stat(history.LogPath(doc)); err != nil {
		t.Fatalf("history log missing: %v", err)
	}
	if _, err := os.Stat(export); err != nil {
		t.Fatalf("export missing: %v", err)
	}
	logData, err := os.ReadFile(filepath.Join(dir, "tedit.log"))
	if err != nil || !strings.Contains(string(logData), "document opened") {
		t.Fatalf("log file = %q, %v", logData, err)
	}

	recent := session.Open(filepath.Join(dir, "state", "tedit", "session.toml")).Recent()
	if len(recent) != 1 || recent[0] != doc {
		t.Fatalf("recent = %v, want [%s]", recent, doc)
	}
}

func TestHistoryPersistsAcrossRuns(t *testing.T) {
	dir := setupEnv(t)
	doc := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(doc, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	runScript(t, []string{doc}, "delete 1 1\nsave\nquit\n")
	out := runScript(t, []string{doc}, "show\nundo\nshow\nundo\nquit!\n")
	wantOutput(t, out,
		"--- Buffer contents ---\nac\n--- End ---",
		"Undo.",
		"--- Buffer contents ---\nabc\n--- End ---",
		"Nothing to undo.",
	)
}

func TestQuitRefusesDirtyBuffer(t *testing.T) {
	setupEnv(t)
	out := runScript(t, nil, "insert draft\nquit\nquit!\n")
	wantOutput(t, out,
		"[Untitled *]",
		"Unsaved changes. Save first or use 'quit!' to discard.",
	)
}

func TestUntitledCommands(t *testing.T) {
	setupEnv(t)
	out := runScript(t, nil, strings.Join([]string{
		"save",
		"history",
		"history clear",
		"undo",
		"open",
		"bogus",
		"recent",
		"help",
	}, "\n"))
	wantOutput(t, out,
		"Usage: save <path>",
		"Has history: no (save file first)",
		"Error: no history (save file first)",
		"Nothing to undo.",
		"Usage: open <path>",
		"Unknown command: bogus",
		"No recent files.",
		"history trim <age|date>",
	)
}

func TestHistoryMaintenanceCommands(t *testing.T) {
	dir := setupEnv(t)
	doc := filepath.Join(dir, "doc.txt")
	archive := filepath.Join(dir, "archive.bin")
	out := runScript(t, nil, strings.Join([]string{
		"save " + doc,
		"insert one",
		"insert two",
		"delete 0 3",
		"history trim 1h",
		"history trim soon",
		"history reload",
		"history compact " + archive,
		"history",
		"quit!",
	}, "\n"))
	wantOutput(t, out,
		"Saved: "+doc,
		"Deleted 3 bytes.",
		"Trimmed 0 operations.",
		"Usage: history trim",
		"History reloaded.",
		"History archived to: "+archive,
		"  Operations: 0",
		"  Size: 32 bytes",
	)
	if _, err := os.Stat(archive); err != nil {
		t.Fatalf("archive missing: %v", err)
	}
}

func TestParseCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	got, err := parseCutoff("90m", now)
	if err != nil || !got.Equal(now.Add(-90*time.Minute)) {
		t.Fatalf("parseCutoff(90m) = %v, %v", got, err)
	}
	got, err = parseCutoff("2026-02-01", now)
	if err != nil || !got.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("parseCutoff(date) = %v, %v", got, err)
	}
	if _, err := parseCutoff("yesterday", now); err == nil {
		t.Fatalf("parseCutoff(yesterday) error = nil")
	}
}

func TestServeWithDefaultConfig(t *testing.T) {
	var out bytes.Buffer
	a := &App{in: strings.NewReader("insert x\nshow\nrecent\n"), out: &out}
	if err := a.serve(config.Default(), nil); err != nil {
		t.Fatalf("serve error: %v", err)
	}
	wantOutput(t, out.String(), "--- Buffer contents ---\nx\n--- End ---", "No session.")
}
