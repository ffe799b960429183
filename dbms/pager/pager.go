package pager

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// BlockSize is the fixed unit of file storage. Block i lives at offset i*BlockSize.
const BlockSize = 512

var (
	// ErrIncompleteBlock means fewer than BlockSize bytes exist at the
	// requested offset: a read past EOF or a truncated file.
	ErrIncompleteBlock = errors.New("incomplete block")

	// ErrBlockSize is returned when a write is handed anything but exactly
	// BlockSize bytes.
	ErrBlockSize = errors.New("block must be exactly 512 bytes")

	// ErrAlreadyExists is returned by Create when the path is taken.
	ErrAlreadyExists = errors.New("file already exists")
)

// Pager reads and writes fixed-size blocks of a single file.
// It keeps no copies of blocks: every Read goes to the file.
type Pager struct {
	file *os.File
	path string
}

// Open opens the file at path for reading and writing, creating an empty
// file if none exists. An existing file is never truncated.
func Open(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "pager: open %s", path)
	}
	return &Pager{file: f, path: path}, nil
}

// Create creates a new empty file at path. It fails with ErrAlreadyExists
// if anything is already there.
func Create(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errors.Wrapf(ErrAlreadyExists, "pager: create %s", path)
		}
		return nil, errors.Wrapf(err, "pager: create %s", path)
	}
	return &Pager{file: f, path: path}, nil
}

// Path returns the path the pager was opened with.
func (p *Pager) Path() string {
	return p.path
}

// ReadBlock returns the BlockSize bytes stored at block index i.
func (p *Pager) ReadBlock(i uint64) ([]byte, error) {
	buf := make([]byte, BlockSize)
	n, err := p.file.ReadAt(buf, offset(i))
	if n < BlockSize {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(ErrIncompleteBlock, "pager: read block %d: got %d of %d bytes", i, n, BlockSize)
		}
		return nil, errors.Wrapf(err, "pager: read block %d", i)
	}
	return buf, nil
}

// WriteBlock writes data at block index i, extending the file if needed.
func (p *Pager) WriteBlock(i uint64, data []byte) error {
	if len(data) != BlockSize {
		return errors.Wrapf(ErrBlockSize, "pager: write block %d: got %d bytes", i, len(data))
	}
	if _, err := p.file.WriteAt(data, offset(i)); err != nil {
		return errors.Wrapf(err, "pager: write block %d", i)
	}
	return nil
}

// BlockCount returns the number of whole blocks currently in the file.
func (p *Pager) BlockCount() (uint64, error) {
	info, err := p.file.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "pager: stat")
	}
	return uint64(info.Size()) / BlockSize, nil
}

// Sync flushes the file to stable storage.
func (p *Pager) Sync() error {
	return errors.Wrap(p.file.Sync(), "pager: sync")
}

// Close closes the underlying file. Calling Close twice is a no-op.
func (p *Pager) Close() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return errors.Wrap(err, "pager: close")
}

// --- internal helpers ---

func offset(i uint64) int64 {
	return int64(i) * BlockSize
}
