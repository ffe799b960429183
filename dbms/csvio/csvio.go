// Package csvio reads and writes the key,value CSV files exchanged with an
// index. Files whose name ends in ".sz" are snappy-framed.
package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/btree-query-bench/blockidx/dbms/pager"
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

// SnappyExt marks a snappy-framed CSV file.
const SnappyExt = ".sz"

// ErrMalformed is the cause of every LineError.
var ErrMalformed = errors.New("malformed line")

// Pair is one key/value entry.
type Pair struct {
	Key   uint64
	Value uint64
}

// LineError reports a CSV line that could not be parsed.
type LineError struct {
	Line int    // 1-based
	Text string // the raw line
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// WritePairs writes each pair as a "key,value" record.
func WritePairs(w io.Writer, pairs []Pair) error {
	cw := csv.NewWriter(w)
	rec := make([]string, 2)
	for _, p := range pairs {
		rec[0] = strconv.FormatUint(p.Key, 10)
		rec[1] = strconv.FormatUint(p.Value, 10)
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "csvio: write")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "csvio: write")
}

// Scan reads r line by line and calls fn for each non-blank line. A line
// that does not parse is passed as a *LineError with a zero Pair; scanning
// continues. Scan stops early only when fn or the reader returns an error.
func Scan(r io.Reader, fn func(p Pair, lerr *LineError) error) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		p, err := ParseLine(text)
		var lerr *LineError
		if err != nil {
			lerr = &LineError{Line: line, Text: text, Err: err}
		}
		if err := fn(p, lerr); err != nil {
			return err
		}
	}
	return errors.Wrap(sc.Err(), "csvio: scan")
}

// ParseLine parses "key,value". The line is split on its first comma and
// each field is trimmed before parsing as an unsigned decimal.
func ParseLine(text string) (Pair, error) {
	k, v, ok := strings.Cut(text, ",")
	if !ok {
		return Pair{}, errors.Wrap(ErrMalformed, "missing comma")
	}
	key, err := strconv.ParseUint(strings.TrimSpace(k), 10, 64)
	if err != nil {
		return Pair{}, errors.Wrapf(ErrMalformed, "key: %v", err)
	}
	val, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return Pair{}, errors.Wrapf(ErrMalformed, "value: %v", err)
	}
	return Pair{Key: key, Value: val}, nil
}

// ─── Files ────────────────────────────────────────────────────────────────────

type writeFile struct {
	io.Writer
	closers []io.Closer
}

func (f *writeFile) Close() error {
	var err error
	for _, c := range f.closers {
		err = errors.CombineErrors(err, c.Close())
	}
	return err
}

type readFile struct {
	io.Reader
	f *os.File
}

func (f *readFile) Close() error { return f.f.Close() }

// Create creates path for writing. It fails with pager.ErrAlreadyExists
// when the path exists. Closing the writer flushes any snappy frame.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, errors.Wrapf(pager.ErrAlreadyExists, "csvio: create %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "csvio: create")
	}
	if !strings.HasSuffix(path, SnappyExt) {
		return f, nil
	}
	sw := snappy.NewBufferedWriter(f)
	return &writeFile{Writer: sw, closers: []io.Closer{sw, f}}, nil
}

// Open opens path for reading, decoding snappy frames for ".sz" files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "csvio: open")
	}
	if !strings.HasSuffix(path, SnappyExt) {
		return f, nil
	}
	return &readFile{Reader: snappy.NewReader(f), f: f}, nil
}
