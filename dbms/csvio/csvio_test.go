package csvio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btree-query-bench/blockidx/dbms/pager"
	"github.com/cockroachdb/errors"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    Pair
		wantErr bool
	}{
		{"1,2", Pair{1, 2}, false},
		{" 10 , 100 ", Pair{10, 100}, false},
		{"18446744073709551615,0", Pair{^uint64(0), 0}, false},
		{"5", Pair{}, true},
		{"a,1", Pair{}, true},
		{"1,b", Pair{}, true},
		{"-1,5", Pair{}, true},
		{"1,2,3", Pair{}, true},
		{"18446744073709551616,1", Pair{}, true},
	}
	for _, tt := range tests {
		got, err := ParseLine(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLine(%q): unexpected error state %v", tt.line, err)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ParseLine(%q): expected ErrMalformed, got %v", tt.line, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLine(%q): expected %v, got %v", tt.line, tt.want, got)
		}
	}
}

func TestScanSkipsBadLines(t *testing.T) {
	input := "1,10\n\nbad line\n2, 20\n  \n3,x\n4,40\n"
	var pairs []Pair
	var bad []*LineError
	err := Scan(strings.NewReader(input), func(p Pair, lerr *LineError) error {
		if lerr != nil {
			bad = append(bad, lerr)
			return nil
		}
		pairs = append(pairs, p)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	want := []Pair{{1, 10}, {2, 20}, {4, 40}}
	if len(pairs) != len(want) {
		t.Fatalf("Expected %v, got %v", want, pairs)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("Pair %d: expected %v, got %v", i, want[i], pairs[i])
		}
	}
	if len(bad) != 2 || bad[0].Line != 3 || bad[1].Line != 6 {
		t.Fatalf("Expected bad lines 3 and 6, got %v", bad)
	}
	if bad[0].Text != "bad line" {
		t.Errorf("Expected raw text, got %q", bad[0].Text)
	}
	if !errors.Is(bad[1], ErrMalformed) {
		t.Errorf("Expected LineError to wrap ErrMalformed")
	}
}

func TestScanStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Scan(strings.NewReader("1,1\n2,2\n3,3\n"), func(Pair, *LineError) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || calls != 2 {
		t.Errorf("Expected stop after 2 calls, got %d calls and %v", calls, err)
	}
}

func TestWritePairs(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePairs(&buf, []Pair{{1, 2}, {30, 40}}); err != nil {
		t.Fatalf("WritePairs failed: %v", err)
	}
	if got := buf.String(); got != "1,2\n30,40\n" {
		t.Errorf("Unexpected output %q", got)
	}
}

func roundTrip(t *testing.T, path string) {
	t.Helper()
	want := []Pair{{5, 50}, {10, 100}, {20, 200}}

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := WritePairs(w, want); err != nil {
		t.Fatalf("WritePairs failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	var got []Pair
	if err := Scan(r, func(p Pair, lerr *LineError) error {
		if lerr != nil {
			t.Errorf("Unexpected bad line: %v", lerr)
		}
		got = append(got, p)
		return nil
	}); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Pair %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.csv")
	roundTrip(t, path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "5,50\n10,100\n20,200\n" {
		t.Errorf("Unexpected plain file contents %q", b)
	}
}

func TestSnappyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.csv.sz")
	roundTrip(t, path)

	// The file on disk is framed, not plain text.
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	head := make([]byte, 4)
	if _, err := io.ReadFull(f, head); err != nil {
		t.Fatal(err)
	}
	if bytes.HasPrefix(head, []byte("5,50")) {
		t.Errorf("Expected snappy framing, found plain CSV")
	}
}

func TestCreateRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taken.csv")
	if err := os.WriteFile(path, []byte("1,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Create(path); !errors.Is(err, pager.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}
