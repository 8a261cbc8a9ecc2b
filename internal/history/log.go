package history

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/kobzarvs/tedit/internal/logger"
)

// Log is the append-only operation file backing one document's history.
type Log struct {
	path   string
	file   *os.File
	header Header
	size   int64
	sync   bool
}

// OpenLog opens the log at path and replays its records. A missing file or
// one with an invalid header is replaced by a fresh, empty log.
func OpenLog(path string, opts Options) (*Log, []Operation, error) {
	opts = opts.withDefaults()
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err == nil {
		l := &Log{path: path, file: f, sync: opts.Sync}
		ops, err := l.replay()
		if err == nil {
			logger.Debug("history log opened", "path", path, "ops", len(ops), "size", l.size)
			return l, ops, nil
		}
		_ = f.Close()
		if !errors.Is(err, ErrInvalidFormat) {
			return nil, nil, ioErr("read", path, err)
		}
		logger.Warn("history log invalid, starting fresh", "path", path, "error", err)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, ioErr("open", path, err)
	}

	l, err := createLog(path, Header{Version: Version, Created: opts.Now()}, opts.Sync)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("history log created", "path", path)
	return l, nil, nil
}

func createLog(path string, hdr Header, sync bool) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, ioErr("create", path, err)
	}
	if _, err := f.WriteAt(encodeHeader(hdr), 0); err != nil {
		err = multierr.Combine(err, f.Close(), os.Remove(path))
		return nil, ioErr("write header", path, err)
	}
	if sync {
		if err := f.Sync(); err != nil {
			err = multierr.Combine(err, f.Close(), os.Remove(path))
			return nil, ioErr("sync", path, err)
		}
	}
	return &Log{path: path, file: f, header: hdr, size: HeaderSize, sync: sync}, nil
}

// replay reads the header and every complete record. A trailing partial or
// undecodable record is cut off so later appends start at a record boundary.
func (l *Log) replay() ([]Operation, error) {
	info, err := l.file.Stat()
	if err != nil {
		return nil, err
	}
	total := info.Size()
	r := bufio.NewReader(io.NewSectionReader(l.file, 0, total))

	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	l.header = hdr

	var ops []Operation
	offset := int64(HeaderSize)
	for {
		op, err := readRecord(r, total-offset)
		if err == io.EOF {
			break
		}
		if errors.Is(err, errTruncated) || errors.Is(err, ErrInvalidFormat) {
			logger.Warn("history log has a damaged tail, truncating",
				"path", l.path, "offset", offset, "size", total, "error", err)
			if err := l.file.Truncate(offset); err != nil {
				return nil, err
			}
			break
		}
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		offset += recordSize(op)
	}
	l.size = offset
	return ops, nil
}

// Append writes op at the end of the log and flushes it before returning.
// A failed write is rolled back so the file stays at a record boundary.
func (l *Log) Append(op Operation) error {
	if l.file == nil {
		return ErrClosed
	}
	buf, err := encodeRecord(op)
	if err != nil {
		return err
	}
	if _, err := l.file.WriteAt(buf, l.size); err != nil {
		return ioErr("append", l.path, multierr.Append(err, l.file.Truncate(l.size)))
	}
	if l.sync {
		if err := l.file.Sync(); err != nil {
			return ioErr("sync", l.path, multierr.Append(err, l.file.Truncate(l.size)))
		}
	}
	l.size += int64(len(buf))
	return nil
}

// Rewrite replaces the log contents with the header and ops. The new file is
// written next to the old one and renamed over it.
func (l *Log) Rewrite(ops []Operation) (err error) {
	if l.file == nil {
		return ErrClosed
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return ioErr("rewrite", l.path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	size, werr := writeAll(tmp, l.header, ops)
	werr = multierr.Combine(werr, tmp.Chmod(0o644), tmp.Sync(), tmp.Close())
	if werr != nil {
		return ioErr("rewrite", tmpPath, werr)
	}

	if cerr := l.file.Close(); cerr != nil {
		logger.Warn("history log close before rewrite failed", "path", l.path, "error", cerr)
	}
	l.file = nil
	if rerr := os.Rename(tmpPath, l.path); rerr != nil {
		return multierr.Append(ioErr("rename", l.path, rerr), l.reopen())
	}
	if rerr := l.reopen(); rerr != nil {
		return rerr
	}
	l.size = size
	return nil
}

func writeAll(w io.Writer, hdr Header, ops []Operation) (int64, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(encodeHeader(hdr)); err != nil {
		return 0, err
	}
	size := int64(HeaderSize)
	for _, op := range ops {
		buf, err := encodeRecord(op)
		if err != nil {
			return 0, err
		}
		if _, err := bw.Write(buf); err != nil {
			return 0, err
		}
		size += int64(len(buf))
	}
	return size, bw.Flush()
}

func (l *Log) reopen() error {
	f, err := os.OpenFile(l.path, os.O_RDWR, 0o644)
	if err != nil {
		return ioErr("open", l.path, err)
	}
	l.file = f
	return nil
}

// CopyTo writes the current log bytes to dst, replacing it.
func (l *Log) CopyTo(dst string) (err error) {
	if l.file == nil {
		return ErrClosed
	}
	if samePath(dst, l.path) {
		return ioErr("copy", dst, errors.New("destination is the log itself"))
	}
	out, err := os.Create(dst)
	if err != nil {
		return ioErr("create", dst, err)
	}
	defer func() {
		err = multierr.Append(err, ioErr("close", dst, out.Close()))
	}()
	if _, err := io.Copy(out, io.NewSectionReader(l.file, 0, l.size)); err != nil {
		return ioErr("copy", dst, err)
	}
	return ioErr("sync", dst, out.Sync())
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Size returns the log size in bytes, header included.
func (l *Log) Size() int64 { return l.size }

// Created returns the creation time stored in the header.
func (l *Log) Created() time.Time { return l.header.Created }

// Close flushes and closes the log file.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	err := multierr.Combine(l.file.Sync(), l.file.Close())
	l.file = nil
	return ioErr("close", l.path, err)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

// TruncateTo cuts the log back to size bytes. size must fall on a record
// boundary.
func (l *Log) TruncateTo(size int64) error {
	if l.file == nil {
		return ErrClosed
	}
	if size < HeaderSize || size > l.size {
		return ioErr("truncate", l.path, errors.New("size outside log"))
	}
	if err := l.file.Truncate(size); err != nil {
		return ioErr("truncate", l.path, err)
	}
	l.size = size
	if l.sync {
		return ioErr("sync", l.path, l.file.Sync())
	}
	return nil
}
