package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// Export writes a human-readable listing of the history to outputPath.
// The log itself is never a valid destination.
func (h *History) Export(outputPath string) (err error) {
	if samePath(outputPath, h.Path()) {
		return ioErr("export", outputPath, errors.New("destination is the log itself"))
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return ioErr("create", outputPath, err)
	}
	defer func() {
		err = multierr.Append(err, ioErr("close", outputPath, f.Close()))
	}()
	w := bufio.NewWriter(f)
	if err := writeExport(w, h.docPath, h.chain.ops, h.Size(), h.opts.PreviewBytes); err != nil {
		return ioErr("write", outputPath, err)
	}
	return ioErr("write", outputPath, w.Flush())
}

func writeExport(w io.Writer, source string, ops []Operation, size int64, preview int) error {
	var b strings.Builder
	b.WriteString("# tedit history export\n")
	fmt.Fprintf(&b, "# Source: %s\n", source)
	fmt.Fprintf(&b, "# Operations: %d\n", len(ops))
	fmt.Fprintf(&b, "# File size: %d bytes\n\n", size)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	for i, op := range ops {
		b.Reset()
		fmt.Fprintf(&b, "[%d] %s at pos %d, len %d (%s)\n",
			i, op.Kind(), op.Pos(), op.Len(), op.Timestamp().Local().Format(exportTimeLayout))
		if op.Len() > 0 {
			b.WriteString("    Data: ")
			b.WriteString(escapePreview(op.Payload(), preview))
			b.WriteByte('\n')
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// escapePreview renders up to limit bytes of p with control and non-ASCII
// bytes escaped, adding "..." when p is longer.
func escapePreview(p []byte, limit int) string {
	var b strings.Builder
	for i, c := range p {
		if i >= limit {
			b.WriteString("...")
			break
		}
		switch {
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c >= 32 && c < 127:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	return b.String()
}

// ExportEntry is one operation line read back from an export.
type ExportEntry struct {
	Index   int
	Kind    Kind
	Pos     int
	Len     int
	Time    time.Time
	Preview string
}

var exportLine = regexp.MustCompile(`^\[(\d+)\] (INSERT|DELETE) at pos (\d+), len (\d+) \((.+)\)$`)

// ParseExport reads the operation lines of an export produced by Export.
// Timestamps are interpreted in local time at one second resolution.
func ParseExport(r io.Reader) ([]ExportEntry, error) {
	var entries []ExportEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.HasPrefix(line, "    Data: ") {
			if len(entries) == 0 {
				return nil, fmt.Errorf("export line %d: data before operation", lineNo)
			}
			entries[len(entries)-1].Preview = strings.TrimPrefix(line, "    Data: ")
			continue
		}
		m := exportLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		e := ExportEntry{Kind: KindInsert}
		if m[2] == "DELETE" {
			e.Kind = KindDelete
		}
		var err error
		if e.Index, err = strconv.Atoi(m[1]); err != nil {
			return nil, fmt.Errorf("export line %d: %w", lineNo, err)
		}
		if e.Pos, err = strconv.Atoi(m[3]); err != nil {
			return nil, fmt.Errorf("export line %d: %w", lineNo, err)
		}
		if e.Len, err = strconv.Atoi(m[4]); err != nil {
			return nil, fmt.Errorf("export line %d: %w", lineNo, err)
		}
		if e.Time, err = time.ParseInLocation(exportTimeLayout, m[5], time.Local); err != nil {
			return nil, fmt.Errorf("export line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}
