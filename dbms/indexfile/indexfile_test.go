package indexfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func newIndex(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.idx")
	if err := Create(path, nil); err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	return path
}

func TestCreateTwice(t *testing.T) {
	path := newIndex(t)
	if err := Create(path, nil); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}

func TestInsertSearchExport(t *testing.T) {
	path := newIndex(t)

	if pairs, err := Export(path); err != nil || len(pairs) != 0 {
		t.Fatalf("Expected empty export, got %v, %v", pairs, err)
	}
	if _, found, err := Search(path, 10); err != nil || found {
		t.Fatalf("Expected miss on empty index, got found=%v err=%v", found, err)
	}

	for _, p := range []Pair{{Key: 10, Value: 100}, {Key: 5, Value: 50}, {Key: 20, Value: 200}} {
		if _, err := Insert(path, p.Key, p.Value, nil); err != nil {
			t.Fatalf("Failed to insert %v: %v", p, err)
		}
	}

	v, found, err := Search(path, 5)
	if err != nil || !found || v != 50 {
		t.Errorf("Expected 5=50, got (%d, %v, %v)", v, found, err)
	}
	if _, found, _ := Search(path, 15); found {
		t.Errorf("Expected 15 to be missing")
	}

	pairs, err := Export(path)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	want := []Pair{{Key: 5, Value: 50}, {Key: 10, Value: 100}, {Key: 20, Value: 200}}
	if len(pairs) != len(want) {
		t.Fatalf("Expected %v, got %v", want, pairs)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("Pair %d: expected %v, got %v", i, want[i], pairs[i])
		}
	}
}

func TestBulkLoad(t *testing.T) {
	path := newIndex(t)
	var b strings.Builder
	for k := 1; k <= 60; k++ {
		b.WriteString(strings.Repeat(" ", k%3))
		b.WriteString(strconv.Itoa(k) + "," + strconv.Itoa(k*10) + "\n")
	}
	b.WriteString("oops\n")
	b.WriteString("7,70\n") // duplicate key

	rep, err := BulkLoad(path, strings.NewReader(b.String()), nil)
	if err != nil {
		t.Fatalf("BulkLoad failed: %v", err)
	}
	if rep.Inserted != 60 || rep.Replaced != 1 || len(rep.Skipped) != 1 {
		t.Fatalf("Unexpected report %+v", rep)
	}
	if rep.Skipped[0].Line != 61 {
		t.Errorf("Expected bad line 61, got %d", rep.Skipped[0].Line)
	}

	st, err := Check(path)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if st.Keys != 60 || st.Height != 2 {
		t.Errorf("Unexpected stats %+v", st)
	}
	if v, _, _ := Search(path, 7); v != 70 {
		t.Errorf("Expected 7=70 after overwrite, got %d", v)
	}
}

func TestExtractFile(t *testing.T) {
	path := newIndex(t)
	for k := uint64(30); k >= 1; k-- {
		if _, err := Insert(path, k, k+1, nil); err != nil {
			t.Fatal(err)
		}
	}
	out := filepath.Join(t.TempDir(), "out.csv")
	n, err := ExtractFile(path, out)
	if err != nil || n != 30 {
		t.Fatalf("Expected 30 entries extracted, got %d, %v", n, err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 30 || lines[0] != "1,2" || lines[29] != "30,31" {
		t.Errorf("Unexpected extract: first %q last %q (%d lines)", lines[0], lines[len(lines)-1], len(lines))
	}

	if _, err := ExtractFile(path, out); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	// Extract then load into a fresh index reproduces it.
	copyPath := newIndex(t)
	rep, err := LoadFile(copyPath, out, nil)
	if err != nil || rep.Inserted != 30 {
		t.Fatalf("Reload failed: %+v, %v", rep, err)
	}
	pairs, _ := Export(copyPath)
	if len(pairs) != 30 || pairs[29] != (Pair{Key: 30, Value: 31}) {
		t.Errorf("Reloaded index differs: %v", pairs)
	}
}

func TestMissingIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.idx")
	if _, _, err := Search(path, 1); err == nil {
		t.Errorf("Expected error searching a missing index")
	}
	if _, err := Insert(path, 1, 1, nil); err == nil {
		t.Errorf("Expected error inserting into a missing index")
	}
}

func TestWriteDOT(t *testing.T) {
	path := newIndex(t)
	if _, err := Insert(path, 1, 2, nil); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := WriteDOT(path, &b); err != nil {
		t.Fatalf("WriteDOT failed: %v", err)
	}
	if !strings.Contains(b.String(), "block1") {
		t.Errorf("Expected block1 in output, got %s", b.String())
	}
}
