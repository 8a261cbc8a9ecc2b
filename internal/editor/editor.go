package editor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kobzarvs/tedit/internal/config"
	"github.com/kobzarvs/tedit/internal/gapbuffer"
	"github.com/kobzarvs/tedit/internal/history"
	"github.com/kobzarvs/tedit/internal/logger"
)

var (
	// ErrNoPath is returned by Save when the document has never been named.
	ErrNoPath = errors.New("no file name")

	// ErrNoHistory is returned by history commands on a document without a log.
	ErrNoHistory = errors.New("no history (save file first)")
)

// Editor owns one document: its buffer, its cursor and, once the document
// has a path, its persistent history.
type Editor struct {
	cfg    config.Config
	buf    *gapbuffer.Buffer
	hist   *history.History
	path   string
	cursor int
	dirty  bool
	warned bool

	selStart int
	selEnd   int
}

func New(cfg config.Config) *Editor {
	return &Editor{
		cfg: cfg,
		buf: gapbuffer.New(cfg.Editor.InitialCapacity, cfg.Editor.GapSlack),
	}
}

func (e *Editor) historyOptions() history.Options {
	return history.Options{
		Sync:         e.cfg.HistorySync(),
		PreviewBytes: e.cfg.History.PreviewBytes,
	}
}

// OpenFile loads path into the buffer and opens its history log. If the log
// cannot be opened the document stays loaded without history and the error
// is returned.
func (e *Editor) OpenFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("open %s: %w", path, history.ErrNotFound)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := e.closeHistory(); err != nil {
		logger.Warn("closing previous history failed", "path", e.path, "error", err)
	}

	e.buf.Clear()
	if err := e.buf.Insert(0, data); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	e.path = path
	e.cursor = 0
	e.dirty = false
	e.clearSelection()
	logger.Info("document opened", "path", path, "bytes", len(data))

	if !e.cfg.HistoryEnabled() {
		return nil
	}
	h, err := history.Open(path, e.historyOptions())
	if err != nil {
		logger.Error("history unavailable", "path", path, "error", err)
		return fmt.Errorf("open history: %w", err)
	}
	e.hist = h
	e.checkThreshold()
	return nil
}

// NewDocument discards the current document and starts an untitled one.
func (e *Editor) NewDocument() error {
	err := e.closeHistory()
	e.buf.Clear()
	e.path = ""
	e.cursor = 0
	e.dirty = false
	e.clearSelection()
	return err
}

// Save writes the content to path, or to the current path when path is
// empty. Saving under a new name moves the document to a fresh history log
// at that name.
func (e *Editor) Save(path string) error {
	if path == "" {
		if e.path == "" {
			return ErrNoPath
		}
		path = e.path
	}
	if err := os.WriteFile(path, e.buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	e.dirty = false
	logger.Info("document saved", "path", path, "bytes", e.buf.Len())

	if path == e.path && e.hist != nil {
		return nil
	}
	old := e.path
	e.path = path
	if err := e.closeHistory(); err != nil {
		logger.Warn("closing previous history failed", "path", old, "error", err)
	}
	if !e.cfg.HistoryEnabled() {
		return nil
	}
	h, err := history.Open(path, e.historyOptions())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	// Whatever the log held described the previous file at this path.
	if path != old && h.Count() > 0 {
		if err := h.Clear(); err != nil {
			_ = h.Close()
			return fmt.Errorf("reset history: %w", err)
		}
	}
	e.hist = h
	logger.Info("history moved", "from", old, "to", path)
	return nil
}

// Insert places text at pos, clamped to the content. The edit is on disk in
// the history log before the buffer changes.
func (e *Editor) Insert(pos int, text []byte) error {
	if len(text) == 0 {
		return nil
	}
	if len(text) > e.buf.Room() {
		return gapbuffer.ErrTooLarge
	}
	pos = clamp(pos, 0, e.buf.Len())
	if err := e.record(history.KindInsert, pos, text); err != nil {
		return err
	}
	if err := e.buf.Insert(pos, text); err != nil {
		logger.Error("buffer insert failed after recording", "path", e.path, "pos", pos, "error", err)
		return err
	}
	e.shiftForInsert(pos, len(text))
	e.dirty = true
	return nil
}

// Delete removes up to n bytes at pos. Out of range deletes are no-ops.
func (e *Editor) Delete(pos, n int) error {
	if pos < 0 {
		pos = 0
	}
	if n <= 0 || pos >= e.buf.Len() {
		return nil
	}
	removed := e.buf.Slice(pos, n)
	if err := e.record(history.KindDelete, pos, removed); err != nil {
		return err
	}
	e.buf.Delete(pos, len(removed))
	e.shiftForDelete(pos, len(removed))
	e.dirty = true
	return nil
}

func (e *Editor) record(kind history.Kind, pos int, payload []byte) error {
	if e.hist == nil {
		return nil
	}
	if err := e.hist.Append(kind, pos, payload); err != nil {
		return fmt.Errorf("record %s: %w", kind, err)
	}
	e.checkThreshold()
	return nil
}

func (e *Editor) checkThreshold() {
	if e.warned || e.hist == nil || e.cfg.History.ThresholdMB <= 0 {
		return
	}
	limit := int64(e.cfg.History.ThresholdMB) << 20
	if size := e.hist.Size(); size > limit {
		e.warned = true
		logger.Warn("history log exceeds threshold", "path", e.hist.Path(), "size", size, "threshold_mb", e.cfg.History.ThresholdMB)
	}
}

// Undo reverses the most recent applied operation.
func (e *Editor) Undo() error {
	if e.hist == nil {
		return history.ErrNothingToUndo
	}
	op, err := e.hist.Undo()
	if err != nil {
		return err
	}
	if err := e.apply(op.Inverse()); err != nil {
		_, _ = e.hist.Redo()
		return fmt.Errorf("undo: %w", err)
	}
	e.dirty = true
	return nil
}

// Redo reapplies the most recently undone operation.
func (e *Editor) Redo() error {
	if e.hist == nil {
		return history.ErrNothingToRedo
	}
	op, err := e.hist.Redo()
	if err != nil {
		return err
	}
	if err := e.apply(op); err != nil {
		_, _ = e.hist.Undo()
		return fmt.Errorf("redo: %w", err)
	}
	e.dirty = true
	return nil
}

// apply changes the buffer without recording.
func (e *Editor) apply(op history.Operation) error {
	switch op := op.(type) {
	case history.Insert:
		if err := e.buf.Insert(op.Position, op.Text); err != nil {
			return err
		}
		e.shiftForInsert(op.Position, len(op.Text))
	case history.Delete:
		n := e.buf.Delete(op.Position, len(op.Text))
		e.shiftForDelete(op.Position, n)
	}
	return nil
}

func (e *Editor) shiftForInsert(pos, n int) {
	if e.cursor >= pos {
		e.cursor += n
	}
	e.clearSelection()
}

func (e *Editor) shiftForDelete(pos, n int) {
	if e.cursor > pos {
		e.cursor -= min(n, e.cursor-pos)
	}
	e.clearSelection()
}

func (e *Editor) CanUndo() bool { return e.hist != nil && e.hist.CanUndo() }

func (e *Editor) CanRedo() bool { return e.hist != nil && e.hist.CanRedo() }

func (e *Editor) Content() string { return e.buf.String() }

func (e *Editor) Len() int { return e.buf.Len() }

func (e *Editor) Dirty() bool { return e.dirty }

// Path returns the document path, empty for an untitled document.
func (e *Editor) Path() string { return e.path }

// History returns the document's history, nil when it has none.
func (e *Editor) History() *history.History { return e.hist }

func (e *Editor) Cursor() int { return e.cursor }

// SetCursor moves the cursor to pos, clamped to the content.
func (e *Editor) SetCursor(pos int) {
	e.cursor = clamp(pos, 0, e.buf.Len())
}

// GotoLine moves the cursor to the start of line n (1-based) and returns the
// line reached, which is the last line when n is past the end.
func (e *Editor) GotoLine(n int) int {
	if n < 1 {
		n = 1
	}
	length := e.buf.Len()
	line, start := 1, 0
	for pos := 0; pos < length && line < n; pos++ {
		if e.buf.At(pos) == '\n' {
			line++
			start = pos + 1
		}
	}
	e.cursor = start
	return line
}

// LineCol returns the 1-based line and byte column of the cursor.
func (e *Editor) LineCol() (line, col int) {
	line, col = 1, 1
	for i := 0; i < e.cursor; i++ {
		if e.buf.At(i) == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// SelectAll selects the whole content.
func (e *Editor) SelectAll() {
	e.selStart = 0
	e.selEnd = e.buf.Len()
}

// Selection returns a copy of the selected bytes, nil when nothing is selected.
func (e *Editor) Selection() []byte {
	if e.selStart >= e.selEnd {
		return nil
	}
	return e.buf.Slice(e.selStart, e.selEnd-e.selStart)
}

func (e *Editor) clearSelection() {
	e.selStart, e.selEnd = 0, 0
}

func (e *Editor) HistoryExport(outputPath string) error {
	if e.hist == nil {
		return ErrNoHistory
	}
	return e.hist.Export(outputPath)
}

func (e *Editor) HistoryClear() error {
	if e.hist == nil {
		return ErrNoHistory
	}
	e.warned = false
	return e.hist.Clear()
}

// HistoryTrim drops operations recorded before the given time.
func (e *Editor) HistoryTrim(before time.Time) (int, error) {
	if e.hist == nil {
		return 0, ErrNoHistory
	}
	return e.hist.Trim(before)
}

// HistoryCompact archives the log to archivePath and clears it.
func (e *Editor) HistoryCompact(archivePath string) error {
	if e.hist == nil {
		return ErrNoHistory
	}
	e.warned = false
	return e.hist.Compact(archivePath)
}

// HistoryReload rereads the log from disk. The buffer is left as is.
func (e *Editor) HistoryReload() error {
	if e.hist == nil {
		return ErrNoHistory
	}
	if err := e.hist.Reload(); err != nil {
		e.hist = nil
		return err
	}
	return nil
}

func (e *Editor) closeHistory() error {
	if e.hist == nil {
		return nil
	}
	err := e.hist.Close()
	e.hist = nil
	e.warned = false
	return err
}

// Close releases the history log.
func (e *Editor) Close() error {
	return e.closeHistory()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
