package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// write copies u.Content into dest. The file is created with O_EXCL, so a
// concurrent Store of the same name that slipped past validate loses with a
// duplicate error instead of overwriting. A failed copy removes the partial
// file.
func (s *Service) write(dest string, u Upload) error {
	name := u.Filename
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return rejectf(KindDuplicateFile, name, "a file with the same name already exists")
		}
		return ioFailure(OpWrite, name, "failed to store file", err)
	}

	// One byte past the limit is enough to detect a payload larger than
	// its declared size.
	n, err := io.Copy(f, io.LimitReader(u.Content, s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.discard(dest)
		return ioFailure(OpWrite, name, "failed to store file", err)
	}
	if n > s.maxSize {
		s.discard(dest)
		return rejectf(KindFileTooLarge, name, "file content exceeds the allowed limit of %s",
			humanize.Bytes(uint64(s.maxSize)))
	}
	return nil
}

func (s *Service) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error("remove partial file", "path", path, "error", err)
	}
}

// Stat reports size and modification data for a stored file.
func (s *Service) Stat(filename string) (fs.FileInfo, error) {
	info, err := os.Stat(s.Load(filename))
	if err != nil {
		return nil, &Error{Kind: KindFileNotFound, Filename: filename, Message: "could not read file", Err: err}
	}
	if info.IsDir() {
		return nil, &Error{Kind: KindFileNotFound, Filename: filename, Message: fmt.Sprintf("%s is a directory", filepath.Base(filename))}
	}
	return info, nil
}
