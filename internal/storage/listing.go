package storage

import (
	"errors"
	"io"
	"os"
	"sort"
)

const listBatch = 64

// Listing is a lazy, single-pass iterator over the direct children of the
// root directory. Entries are read from one open directory handle in batches;
// once drained it cannot be restarted.
type Listing struct {
	dir  *os.File
	buf  []os.DirEntry
	cur  string
	err  error
	done bool
}

func newListing(dir *os.File) *Listing {
	return &Listing{dir: dir}
}

// Next advances to the next entry. It returns false when the directory is
// exhausted or a read fails; check Err afterwards.
func (l *Listing) Next() bool {
	if l.done {
		return false
	}
	for len(l.buf) == 0 {
		entries, err := l.dir.ReadDir(listBatch)
		l.buf = entries
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.err = ioFailure(OpList, "", "failed to read stored files", err)
			}
			if len(l.buf) == 0 {
				l.finish()
				return false
			}
		}
	}
	l.cur = l.buf[0].Name()
	l.buf = l.buf[1:]
	return true
}

// Name returns the filename, relative to the root, of the current entry.
func (l *Listing) Name() string { return l.cur }

// Err returns the first read error, if any.
func (l *Listing) Err() error { return l.err }

// Close releases the directory handle. It is safe to call more than once.
func (l *Listing) Close() error {
	if l.done {
		return nil
	}
	l.done = true
	l.buf = nil
	return l.dir.Close()
}

func (l *Listing) finish() {
	if cerr := l.Close(); cerr != nil && l.err == nil {
		l.err = ioFailure(OpList, "", "failed to close root directory", cerr)
	}
}

// Collect drains the listing into a sorted slice and closes it.
func (l *Listing) Collect() ([]string, error) {
	defer l.Close()
	names := []string{}
	for l.Next() {
		names = append(names, l.Name())
	}
	if err := l.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
