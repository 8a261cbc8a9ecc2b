package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kobzarvs/tedit/internal/config"
	"github.com/kobzarvs/tedit/internal/editor"
	"github.com/kobzarvs/tedit/internal/history"
	"github.com/kobzarvs/tedit/internal/logger"
	"github.com/kobzarvs/tedit/internal/session"
)

// App is the top-level runtime for tedit.
type App struct {
	args []string
	in   io.Reader
	out  io.Writer

	ed      *editor.Editor
	sess    *session.Manager
	running bool
}

func New(args []string) *App {
	return &App{args: args, in: os.Stdin, out: os.Stdout}
}

func (a *App) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.File, cfg.Log.Debug); err != nil {
		return err
	}
	defer logger.Close()

	sess, err := session.NewManager()
	if err != nil {
		logger.Warn("session unavailable", "error", err)
	}
	return a.serve(cfg, sess)
}

func (a *App) serve(cfg config.Config, sess *session.Manager) error {
	a.ed = editor.New(cfg)
	a.sess = sess
	a.running = true
	defer a.shutdown()

	fmt.Fprintln(a.out, "tedit")
	fmt.Fprintln(a.out, "Type 'help' for commands.")
	fmt.Fprintln(a.out)

	if len(a.args) > 0 {
		a.open(a.args[0])
	}

	sc := bufio.NewScanner(a.in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for a.running {
		a.printStatus()
		fmt.Fprint(a.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(a.out)
			break
		}
		a.handle(strings.TrimSpace(sc.Text()))
	}
	return sc.Err()
}

func (a *App) shutdown() {
	if err := a.ed.Close(); err != nil {
		logger.Error("closing history failed", "path", a.ed.Path(), "error", err)
	}
	if a.sess != nil {
		if err := a.sess.Save(); err != nil {
			logger.Warn("saving session failed", "path", a.sess.Path(), "error", err)
		}
	}
}

func (a *App) printStatus() {
	name := a.ed.Path()
	if name == "" {
		name = "Untitled"
	}
	mark := ""
	if a.ed.Dirty() {
		mark = " *"
	}
	line, col := a.ed.LineCol()
	fmt.Fprintf(a.out, "[%s%s] Line %d, Col %d | %d bytes\n", name, mark, line, col, a.ed.Len())
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) fail(err error) {
	a.printf("Error: %v", err)
}

func (a *App) handle(line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
	case "help", "?":
		a.help()
	case "quit", "exit", "q":
		if a.ed.Dirty() {
			a.printf("Unsaved changes. Save first or use 'quit!' to discard.")
			return
		}
		a.running = false
	case "quit!":
		a.running = false
	case "new":
		if err := a.ed.NewDocument(); err != nil {
			a.fail(err)
		}
		a.printf("Created new buffer.")
	case "open":
		if arg == "" {
			a.printf("Usage: open <path>")
			return
		}
		a.open(arg)
	case "save":
		a.save(arg)
	case "insert", "i":
		a.insert(arg)
	case "delete", "d":
		a.delete(arg)
	case "show":
		a.printf("--- Buffer contents ---\n%s\n--- End ---", a.ed.Content())
	case "goto":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			a.printf("Usage: goto <line>")
			return
		}
		a.printf("Moved to line %d", a.ed.GotoLine(n))
	case "select":
		a.ed.SelectAll()
		a.printf("Selected %d bytes", len(a.ed.Selection()))
	case "undo", "u":
		switch err := a.ed.Undo(); {
		case errors.Is(err, history.ErrNothingToUndo):
			a.printf("Nothing to undo.")
		case err != nil:
			a.fail(err)
		default:
			a.printf("Undo.")
		}
	case "redo":
		switch err := a.ed.Redo(); {
		case errors.Is(err, history.ErrNothingToRedo):
			a.printf("Nothing to redo.")
		case err != nil:
			a.fail(err)
		default:
			a.printf("Redo.")
		}
	case "history":
		a.history(arg)
	case "recent":
		a.recent()
	default:
		a.printf("Unknown command: %s (type 'help' for commands)", cmd)
	}
}

func (a *App) help() {
	a.printf("Commands:")
	a.printf("  new                      - Create new file")
	a.printf("  open <path>              - Open file")
	a.printf("  save [path]              - Save file")
	a.printf("  insert [pos] <text>      - Insert text at pos or at the cursor")
	a.printf("  delete <pos> <n>         - Delete n bytes at pos")
	a.printf("  show                     - Show buffer contents")
	a.printf("  goto <line>              - Go to line")
	a.printf("  select                   - Select all")
	a.printf("  undo                     - Undo last edit")
	a.printf("  redo                     - Redo last undone edit")
	a.printf("  history                  - Show history info")
	a.printf("  history export <out>     - Export history to file")
	a.printf("  history clear            - Clear edit history")
	a.printf("  history trim <age|date>  - Drop operations older than age or date")
	a.printf("  history compact [out]    - Archive history to out and clear it")
	a.printf("  history reload           - Reread history from disk")
	a.printf("  recent                   - List recent files")
	a.printf("  help                     - Show this help")
	a.printf("  quit                     - Exit")
}

func (a *App) open(path string) {
	if err := a.ed.OpenFile(path); err != nil {
		a.fail(err)
		if a.ed.Path() != path {
			return
		}
	}
	if a.sess != nil {
		a.sess.AddRecent(path)
	}
	a.printf("Opened: %s", path)
}

func (a *App) save(path string) {
	if path == "" && a.ed.Path() == "" {
		a.printf("Usage: save <path>")
		return
	}
	if err := a.ed.Save(path); err != nil {
		a.fail(err)
		return
	}
	if a.sess != nil {
		a.sess.AddRecent(a.ed.Path())
	}
	a.printf("Saved: %s", a.ed.Path())
}

var unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\\`, `\`)

func (a *App) insert(arg string) {
	if arg == "" {
		a.printf("Usage: insert [pos] <text>")
		return
	}
	pos := a.ed.Cursor()
	if first, rest, ok := strings.Cut(arg, " "); ok {
		if n, err := strconv.Atoi(first); err == nil {
			pos, arg = n, rest
		}
	}
	text := unescaper.Replace(arg)
	if err := a.ed.Insert(pos, []byte(text)); err != nil {
		a.fail(err)
		return
	}
	a.printf("Inserted %d bytes.", len(text))
}

func (a *App) delete(arg string) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		a.printf("Usage: delete <pos> <n>")
		return
	}
	pos, err1 := strconv.Atoi(fields[0])
	n, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		a.printf("Usage: delete <pos> <n>")
		return
	}
	before := a.ed.Len()
	if err := a.ed.Delete(pos, n); err != nil {
		a.fail(err)
		return
	}
	a.printf("Deleted %d bytes.", before-a.ed.Len())
}

func (a *App) history(arg string) {
	sub, rest, _ := strings.Cut(arg, " ")
	rest = strings.TrimSpace(rest)

	switch sub {
	case "":
		a.historyInfo()
	case "export":
		if rest == "" {
			a.printf("Usage: history export <out>")
			return
		}
		if err := a.ed.HistoryExport(rest); err != nil {
			a.fail(err)
			return
		}
		a.printf("History exported to: %s", rest)
	case "clear":
		if err := a.ed.HistoryClear(); err != nil {
			a.fail(err)
			return
		}
		a.printf("History cleared.")
	case "trim":
		before, err := parseCutoff(rest, time.Now())
		if err != nil {
			a.printf("Usage: history trim <age|date> (e.g. 24h or 2006-01-02)")
			return
		}
		n, err := a.ed.HistoryTrim(before)
		if err != nil {
			a.fail(err)
			return
		}
		a.printf("Trimmed %d operations.", n)
	case "compact":
		if err := a.ed.HistoryCompact(rest); err != nil {
			a.fail(err)
			return
		}
		if rest != "" {
			a.printf("History archived to: %s", rest)
		} else {
			a.printf("History compacted.")
		}
	case "reload":
		if err := a.ed.HistoryReload(); err != nil {
			a.fail(err)
			return
		}
		a.printf("History reloaded.")
	default:
		a.printf("Unknown history command: %s", sub)
	}
}

func (a *App) historyInfo() {
	h := a.ed.History()
	a.printf("History:")
	a.printf("  File: %s", a.ed.Path())
	if h == nil {
		a.printf("  Has history: no (save file first)")
		return
	}
	a.printf("  Log: %s", h.Path())
	a.printf("  Size: %d bytes", h.Size())
	a.printf("  Operations: %d", h.Count())
	a.printf("  Can undo: %t, can redo: %t", h.CanUndo(), h.CanRedo())
}

func (a *App) recent() {
	if a.sess == nil {
		a.printf("No session.")
		return
	}
	files := a.sess.Recent()
	if len(files) == 0 {
		a.printf("No recent files.")
		return
	}
	for i, p := range files {
		a.printf("  %d. %s", i+1, p)
	}
}

// parseCutoff reads either an age such as "24h" or a local date or date-time.
func parseCutoff(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid cutoff %q", s)
}
