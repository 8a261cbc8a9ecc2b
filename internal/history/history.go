package history

import (
	"time"

	"github.com/kobzarvs/tedit/internal/logger"
)

// Suffix is appended to a document path to locate its history log.
const Suffix = ".tedit-history"

// DefaultPreviewBytes caps the payload preview written by Export.
const DefaultPreviewBytes = 50

// LogPath returns the history log path for a document.
func LogPath(docPath string) string {
	return docPath + Suffix
}

// Options controls how a history log is written.
type Options struct {
	// Sync calls fsync after every append and rewrite.
	Sync bool
	// PreviewBytes caps payload previews in exports.
	PreviewBytes int
	// Now supplies operation timestamps.
	Now func() time.Time
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Sync:         true,
		PreviewBytes: DefaultPreviewBytes,
		Now:          time.Now,
	}
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.PreviewBytes <= 0 {
		o.PreviewBytes = DefaultPreviewBytes
	}
	return o
}

// History is the persistent undo/redo history of one document. Every
// recorded operation is on disk before Append returns.
type History struct {
	docPath string
	log     *Log
	chain   *chain
	opts    Options
}

// Open loads the history of docPath, creating its log when absent. Loaded
// operations are all considered applied.
func Open(docPath string, opts Options) (*History, error) {
	opts = opts.withDefaults()
	l, ops, err := OpenLog(LogPath(docPath), opts)
	if err != nil {
		return nil, err
	}
	logger.Info("history opened", "doc", docPath, "ops", len(ops), "size", l.Size())
	return &History{
		docPath: docPath,
		log:     l,
		chain:   newChain(ops),
		opts:    opts,
	}, nil
}

func (h *History) now() time.Time {
	return time.UnixMilli(h.opts.Now().UnixMilli())
}

// Append records an operation. If operations were undone, they are dropped
// from memory and disk first and can no longer be redone.
func (h *History) Append(kind Kind, pos int, payload []byte) error {
	if h.log == nil {
		return ErrClosed
	}
	op, err := NewOperation(kind, pos, payload, h.now())
	if err != nil {
		return err
	}
	if err := checkRecord(op); err != nil {
		return err
	}
	if h.chain.canRedo() {
		if err := h.log.TruncateTo(h.sizeOf(h.chain.applied())); err != nil {
			return err
		}
		dropped := h.chain.count() - h.chain.cur
		h.chain.truncate()
		logger.Debug("redo branch discarded", "doc", h.docPath, "ops", dropped)
	}
	if err := h.log.Append(op); err != nil {
		logger.Error("history append failed", "doc", h.docPath, "error", err)
		return err
	}
	h.chain.record(op)
	return nil
}

func (h *History) sizeOf(ops []Operation) int64 {
	size := int64(HeaderSize)
	for _, op := range ops {
		size += recordSize(op)
	}
	return size
}

// Undo returns the operation to reverse, or ErrNothingToUndo.
func (h *History) Undo() (Operation, error) {
	return h.chain.undo()
}

// Redo returns the operation to reapply, or ErrNothingToRedo.
func (h *History) Redo() (Operation, error) {
	return h.chain.redo()
}

func (h *History) CanUndo() bool { return h.chain.canUndo() }

func (h *History) CanRedo() bool { return h.chain.canRedo() }

// Count returns the number of operations in the chain, undone ones included.
func (h *History) Count() int { return h.chain.count() }

// Size returns the log size in bytes.
func (h *History) Size() int64 {
	if h.log == nil {
		return 0
	}
	return h.log.Size()
}

// Path returns the log path.
func (h *History) Path() string { return LogPath(h.docPath) }

// DocPath returns the document this history belongs to.
func (h *History) DocPath() string { return h.docPath }

// Operations returns a copy of the chain in append order.
func (h *History) Operations() []Operation { return h.chain.snapshot() }

// Trim drops operations older than before from the head of the history and
// rewrites the log. It returns the number of operations removed.
func (h *History) Trim(before time.Time) (int, error) {
	if h.log == nil {
		return 0, ErrClosed
	}
	n := h.chain.countBefore(before)
	if n == 0 {
		return 0, nil
	}
	if err := h.log.Rewrite(h.chain.ops[n:]); err != nil {
		return 0, err
	}
	h.chain.dropHead(n)
	logger.Info("history trimmed", "doc", h.docPath, "removed", n, "remaining", h.chain.count())
	return n, nil
}

// Compact copies the log to archivePath and then clears the history. With an
// empty archivePath the history is only cleared. A failed copy leaves the
// history untouched.
func (h *History) Compact(archivePath string) error {
	if h.log == nil {
		return ErrClosed
	}
	if archivePath != "" {
		if err := h.log.CopyTo(archivePath); err != nil {
			return err
		}
		logger.Info("history archived", "doc", h.docPath, "archive", archivePath, "size", h.log.Size())
	}
	return h.Clear()
}

// Clear drops every operation and leaves only the header on disk.
func (h *History) Clear() error {
	if h.log == nil {
		return ErrClosed
	}
	if err := h.log.Rewrite(nil); err != nil {
		return err
	}
	h.chain.reset(nil)
	logger.Info("history cleared", "doc", h.docPath)
	return nil
}

// Reload discards the in-memory chain and replays the log from disk.
func (h *History) Reload() error {
	if h.log == nil {
		return ErrClosed
	}
	if err := h.log.Close(); err != nil {
		logger.Warn("history close before reload failed", "doc", h.docPath, "error", err)
	}
	l, ops, err := OpenLog(LogPath(h.docPath), h.opts)
	if err != nil {
		h.log = nil
		return err
	}
	h.log = l
	h.chain.reset(ops)
	return nil
}

// Close flushes and closes the log. Further changes return ErrClosed.
func (h *History) Close() error {
	if h.log == nil {
		return nil
	}
	err := h.log.Close()
	h.log = nil
	logger.Debug("history closed", "doc", h.docPath, "error", err)
	return err
}
