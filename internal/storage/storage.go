// Package storage keeps uploaded files in a single flat directory.
//
// Every operation is a synchronous sequence of filesystem calls. Store runs a
// fixed validation pipeline before anything touches the disk; the first
// failing rule decides the returned error kind.
package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"upload-service/internal/instrument"
)

// DefaultMaxFileSize is the upload size limit when Config.MaxFileSize is unset.
const DefaultMaxFileSize int64 = 5000 * 1024

const deniedSuffix = ".txt"

// Config configures a Service.
type Config struct {
	// Location is the root directory. It must not be blank.
	Location string
	// MaxFileSize is the largest accepted upload in bytes; <= 0 means DefaultMaxFileSize.
	MaxFileSize int64
}

// Service validates uploads and stores them under one root directory.
type Service struct {
	root    string
	maxSize int64
	log     *slog.Logger
}

// New validates cfg and returns a Service. It does not touch the filesystem;
// call Init to create the root.
func New(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.Location) == "" {
		return nil, &Error{Kind: KindConfiguration, Message: "file upload location can not be empty"}
	}
	root, err := filepath.Abs(cfg.Location)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Message: "cannot resolve upload location", Err: err}
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Service{
		root:    root,
		maxSize: maxSize,
		log:     slog.Default().With("component", "storage"),
	}, nil
}

// Root returns the absolute root directory.
func (s *Service) Root() string { return s.root }

// MaxFileSize returns the effective upload size limit.
func (s *Service) MaxFileSize() int64 { return s.maxSize }

// Init creates the root directory and its parents if they are missing.
func (s *Service) Init(ctx context.Context) error {
	_, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "storage", "local", "initialize")
	defer span.End()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		span.SetStatus("error")
		return ioFailure(OpInitialize, "", "could not initialize storage", err)
	}
	span.SetStatus("ok")
	return nil
}

// Store validates u and writes it to root/u.Filename. u.Content is closed on
// every return path.
func (s *Service) Store(ctx context.Context, u Upload) error {
	defer u.close()

	inst := instrument.GetInstrumenter(ctx)
	ctx, span := inst.StartSpan(ctx, "storage", "local", "store")
	defer span.End()
	span.SetEntity("file", u.Filename)
	span.SetMetadata("size", u.Size)

	dest, err := s.validate(u)
	if err == nil {
		err = s.write(dest, u)
	}
	if err != nil {
		span.SetStatus("error")
		span.SetMetadata("error_kind", KindOf(err).String())
		s.log.Warn("store rejected", "filename", u.Filename, "size", u.Size, "error", err)
		return err
	}

	span.SetStatus("ok")
	inst.EmitBusinessEvent(ctx, "file.stored", "file", u.Filename, map[string]any{"size": u.Size})
	s.log.Info("stored file", "filename", u.Filename, "size", humanize.Bytes(uint64(u.Size)))
	return nil
}

// validate runs every rule that can be checked without writing and returns
// the destination path.
func (s *Service) validate(u Upload) (string, error) {
	name := u.Filename
	if u.IsEmpty() {
		return "", rejectf(KindEmptyFile, name, "failed to store empty file")
	}
	if u.Size > s.maxSize {
		return "", rejectf(KindFileTooLarge, name, "file size %s exceeds the allowed limit of %s",
			humanize.Bytes(uint64(u.Size)), humanize.Bytes(uint64(s.maxSize)))
	}
	if strings.HasSuffix(name, deniedSuffix) {
		return "", rejectf(KindBadFileType, name, "invalid or disallowed file type")
	}
	if strings.Contains(name, " ") {
		return "", rejectf(KindInvalidFilename, name, "filename must not contain spaces")
	}

	// Join would re-root an absolute name under s.root; it names a file
	// elsewhere, so it is rejected like any other escape.
	if filepath.IsAbs(name) || strings.HasPrefix(name, string(filepath.Separator)) {
		return "", rejectf(KindPathTraversal, name, "cannot store file outside current directory")
	}
	dest, err := filepath.Abs(filepath.Join(s.root, name))
	if err != nil {
		return "", rejectf(KindPathTraversal, name, "cannot resolve destination")
	}
	if filepath.Dir(dest) != s.root {
		return "", rejectf(KindPathTraversal, name, "cannot store file outside current directory")
	}
	if _, err := os.Lstat(dest); err == nil {
		return "", rejectf(KindDuplicateFile, name, "a file with the same name already exists")
	}
	return dest, nil
}

// Load joins filename onto the root. It checks neither existence nor
// traversal.
func (s *Service) Load(filename string) string {
	return filepath.Join(s.root, filename)
}

// LoadAsResource opens filename for reading. The caller closes the file.
func (s *Service) LoadAsResource(ctx context.Context, filename string) (*os.File, error) {
	_, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "storage", "local", "load")
	defer span.End()
	span.SetEntity("file", filename)

	notFound := func(err error) error {
		span.SetStatus("error")
		return &Error{Kind: KindFileNotFound, Filename: filename, Message: "could not read file", Err: err}
	}

	f, err := os.Open(s.Load(filename))
	if err != nil {
		return nil, notFound(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, notFound(err)
	}
	if info.IsDir() {
		f.Close()
		return nil, notFound(fs.ErrInvalid)
	}
	span.SetStatus("ok")
	return f, nil
}

// LoadAll opens a lazy listing of the files directly under the root.
func (s *Service) LoadAll(ctx context.Context) (*Listing, error) {
	_, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "storage", "local", "list")
	defer span.End()

	dir, err := os.Open(s.root)
	if err != nil {
		span.SetStatus("error")
		return nil, ioFailure(OpList, "", "failed to read stored files", err)
	}
	span.SetStatus("ok")
	return newListing(dir), nil
}

// DeleteAll removes the root directory and everything below it. A later
// LoadAll fails with a KindStorage error until Init runs again.
func (s *Service) DeleteAll(ctx context.Context) error {
	inst := instrument.GetInstrumenter(ctx)
	ctx, span := inst.StartSpan(ctx, "storage", "local", "delete_all")
	defer span.End()

	if err := os.RemoveAll(s.root); err != nil {
		span.SetStatus("error")
		s.log.Error("delete all failed", "root", s.root, "error", err)
		return ioFailure(OpDelete, "", "failed to delete stored files", err)
	}
	// RemoveAll reports success for a missing root; anything still there
	// means the delete did not complete.
	if _, err := os.Lstat(s.root); !errors.Is(err, fs.ErrNotExist) {
		span.SetStatus("error")
		if err == nil {
			err = fs.ErrExist
		}
		s.log.Error("root still present after delete", "root", s.root, "error", err)
		return ioFailure(OpDelete, "", "root directory still present", err)
	}

	span.SetStatus("ok")
	inst.EmitBusinessEvent(ctx, "files.purged", "file", "", nil)
	s.log.Info("deleted all files", "root", s.root)
	return nil
}
