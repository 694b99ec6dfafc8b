package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrCorrupt flags an entry whose stored record fails to read or parse
// (spec.md §7's LedgerError). Store does not verify the PoH chain while
// scanning; chain failures come only from VerifyChain, as *poh.ErrBadEntry.
var ErrCorrupt = errors.New("ledger: corrupt entry")

const (
	dataFileName  = "data"
	indexFileName = "index"
)

// Store is the two-file (data, index) on-disk ledger: data holds
// length-prefixed serialized entries concatenated; index holds one
// 8-byte little-endian byte offset per entry, pointing at the length
// prefix of the corresponding data record. Opening for append recovers
// by truncating both files to the last consistent (offset, record) pair.
type Store struct {
	dir   string
	data  *os.File
	index *os.File
	// offsets mirrors the index file's contents in memory for fast
	// length/seek lookups without re-reading the index file on every read.
	offsets []int64
}

// Open opens (creating if absent) the ledger directory's data/index file
// pair for append, running recovery first.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: mkdir %q: %w", dir, err)
	}
	dataPath := filepath.Join(dir, dataFileName)
	indexPath := filepath.Join(dir, indexFileName)

	data, err := os.OpenFile(dataPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open data file: %w", err)
	}
	index, err := os.OpenFile(indexPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("ledger: open index file: %w", err)
	}

	s := &Store{dir: dir, data: data, index: index}
	if err := s.recover(); err != nil {
		data.Close()
		index.Close()
		return nil, err
	}
	return s, nil
}

// recover reads every offset in index, validates each addresses a
// parseable record in data, and truncates both files to the largest
// prefix for which this holds. Partial trailing writes (a crash
// mid-append) are discarded.
func (s *Store) recover() error {
	indexInfo, err := s.index.Stat()
	if err != nil {
		return err
	}
	rawOffsets := indexInfo.Size() / 8
	offsets := make([]int64, 0, rawOffsets)

	buf := make([]byte, 8)
	for i := int64(0); i < rawOffsets; i++ {
		if _, err := s.index.ReadAt(buf, i*8); err != nil {
			break
		}
		off := int64(binary.LittleEndian.Uint64(buf))
		if _, err := s.readRecordAt(off); err != nil {
			break // first bad (offset, record) pair: stop here
		}
		offsets = append(offsets, off)
	}

	var dataEnd int64
	if len(offsets) > 0 {
		last := offsets[len(offsets)-1]
		length, err := s.recordLenAt(last)
		if err != nil {
			return err
		}
		dataEnd = last + 4 + int64(length)
	}

	if err := s.data.Truncate(dataEnd); err != nil {
		return err
	}
	if err := s.index.Truncate(int64(len(offsets)) * 8); err != nil {
		return err
	}
	if _, err := s.data.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	if _, err := s.index.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	s.offsets = offsets
	return nil
}

func (s *Store) recordLenAt(off int64) (uint32, error) {
	lenBuf := make([]byte, 4)
	if _, err := s.data.ReadAt(lenBuf, off); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(lenBuf), nil
}

func (s *Store) readRecordAt(off int64) (Entry, error) {
	length, err := s.recordLenAt(off)
	if err != nil {
		return Entry{}, err
	}
	body := make([]byte, length)
	if _, err := s.data.ReadAt(body, off+4); err != nil {
		return Entry{}, err
	}
	return decode(body)
}

// Append writes e to the data file and its offset to the index file.
// The data record is written first, then its offset is appended to the
// index, matching the "write data record, then append its offset"
// atomicity discipline spec.md §4.2 specifies.
func (s *Store) Append(e Entry) error {
	body := encode(e)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))

	off, err := s.data.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := s.data.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := s.data.Write(body); err != nil {
		return err
	}
	if err := s.data.Sync(); err != nil {
		return err
	}

	var offBuf [8]byte
	binary.LittleEndian.PutUint64(offBuf[:], uint64(off))
	if _, err := s.index.Write(offBuf[:]); err != nil {
		return err
	}
	if err := s.index.Sync(); err != nil {
		return err
	}

	s.offsets = append(s.offsets, off)
	return nil
}

// Len returns the number of entries currently in the ledger.
func (s *Store) Len() int {
	return len(s.offsets)
}

// Read returns the entry at position i.
func (s *Store) Read(i int) (Entry, error) {
	if i < 0 || i >= len(s.offsets) {
		return Entry{}, fmt.Errorf("ledger: index %d out of range [0,%d)", i, len(s.offsets))
	}
	e, err := s.readRecordAt(s.offsets[i])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: entry %d: %v", ErrCorrupt, i, err)
	}
	return e, nil
}

// ReadAll streams every entry in order.
func (s *Store) ReadAll() ([]Entry, error) {
	entries := make([]Entry, len(s.offsets))
	for i := range s.offsets {
		e, err := s.Read(i)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	return entries, nil
}

// Close closes the underlying files.
func (s *Store) Close() error {
	err1 := s.data.Close()
	err2 := s.index.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
