// Package dump renders a byte stream as hex-plus-ASCII lines.
package dump

import (
	"errors"
	"fmt"
	"io"
)

// Config holds the fully resolved parameters for one dump. Callers
// are responsible for validating Cols; the zero value is not usable.
type Config struct {
	Cols   int   // bytes rendered per line; must be positive
	Length int64 // total byte budget; negative means read to end of source
	Offset int64 // byte position to seek to before the first read
}

// A SeekError reports a non-zero start offset requested on a source
// that cannot seek to it.
type SeekError struct {
	Name string
	Err  error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("dump: seek %s: %s", e.Name, e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

var errNotSeekable = errors.New("source does not support seeking")

// Dump reads up to cfg.Length bytes from r starting at cfg.Offset and
// writes them to w as lines of cfg.Cols bytes each.
//
// If cfg.Offset is positive, r must implement io.Seeker, otherwise
// Dump fails with a *SeekError before anything is read or written. A
// short read signals end of source: the final partial line is still
// emitted and the dump stops. A write error from w aborts the dump
// immediately; no further reads are attempted.
func Dump(w io.Writer, r io.Reader, cfg Config) error {
	if cfg.Offset > 0 {
		s, ok := r.(io.Seeker)
		if !ok {
			return &SeekError{Name: sourceName(r), Err: errNotSeekable}
		}
		if _, err := s.Seek(cfg.Offset, io.SeekStart); err != nil {
			return &SeekError{Name: sourceName(r), Err: err}
		}
	}

	var (
		buf       = make([]byte, cfg.Cols)
		line      = make([]byte, 0, lineWidth(cfg.Cols))
		offset    = cfg.Offset
		remaining = cfg.Length
	)
	for {
		n := cfg.Cols
		if remaining >= 0 && remaining < int64(n) {
			n = int(remaining)
		}
		if n == 0 {
			return nil
		}
		// ReadFull only returns short on end of source, so lines
		// stay full-width even on pipe-like readers.
		nr, err := io.ReadFull(r, buf[:n])
		if nr > 0 {
			line = appendLine(line[:0], offset, buf[:nr], cfg.Cols)
			if _, werr := w.Write(line); werr != nil {
				return werr
			}
			offset += int64(nr)
			if remaining > 0 {
				remaining -= int64(nr)
			}
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}
	}
}

func sourceName(r io.Reader) string {
	if n, ok := r.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", r)
}

// encoding/hex only emits lowercase
const hexUpper = "0123456789ABCDEF"

// lineWidth returns the byte length of a formatted line with cols
// byte-columns: the 6 character offset, separators, three characters
// per column, one group space before every fourth column, and at most
// one ASCII character per column plus the newline.
func lineWidth(cols int) int {
	return 6 + 2 + 3*cols + (cols-1)/4 + 3 + cols + 1
}

// appendLine formats one dump line and appends it to dst. The hex
// field is always cols columns wide; positions at or past len(buf)
// render as blanks so lines align vertically. The ASCII field covers
// only the bytes actually read.
func appendLine(dst []byte, offset int64, buf []byte, cols int) []byte {
	dst = fmt.Appendf(dst, "%6X |", offset)
	for i := 0; i < cols; i++ {
		if i > 0 && i%4 == 0 {
			dst = append(dst, ' ')
		}
		if i < len(buf) {
			c := buf[i]
			dst = append(dst, ' ', hexUpper[c>>4], hexUpper[c&0x0F])
		} else {
			dst = append(dst, ' ', ' ', ' ')
		}
	}
	dst = append(dst, " | "...)
	for _, c := range buf {
		if 32 <= c && c <= 126 {
			dst = append(dst, c)
		} else {
			dst = append(dst, '.')
		}
	}
	return append(dst, '\n')
}
