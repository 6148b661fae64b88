package storage

import (
	"errors"
	"fmt"
)

// Kind classifies a storage failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindEmptyFile
	KindFileTooLarge
	KindBadFileType
	KindInvalidFilename
	KindDuplicateFile
	KindPathTraversal
	KindStorage
	KindFileNotFound
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindConfiguration:   "configuration",
	KindEmptyFile:       "empty file",
	KindFileTooLarge:    "file too large",
	KindBadFileType:     "bad file type",
	KindInvalidFilename: "invalid filename",
	KindDuplicateFile:   "duplicate file",
	KindPathTraversal:   "path traversal",
	KindStorage:         "storage",
	KindFileNotFound:    "file not found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Op tags the filesystem operation behind a KindStorage error.
type Op string

const (
	OpInitialize Op = "initialize"
	OpWrite      Op = "write"
	OpList       Op = "list"
	OpDelete     Op = "delete"
)

// Error is the error type returned by every Service operation.
type Error struct {
	Kind     Kind
	Op       Op
	Filename string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	var prefix string
	switch {
	case e.Op != "" && e.Filename != "":
		prefix = fmt.Sprintf("storage: %s %s: ", e.Op, e.Filename)
	case e.Op != "":
		prefix = fmt.Sprintf("storage: %s: ", e.Op)
	case e.Filename != "":
		prefix = fmt.Sprintf("storage: %s: ", e.Filename)
	default:
		prefix = "storage: "
	}
	if e.Err != nil {
		return prefix + msg + ": " + e.Err.Error()
	}
	return prefix + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind, so errors.Is(err, ErrDuplicateFile)
// holds for any duplicate failure regardless of filename or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Filename == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrConfiguration   = &Error{Kind: KindConfiguration}
	ErrEmptyFile       = &Error{Kind: KindEmptyFile}
	ErrFileTooLarge    = &Error{Kind: KindFileTooLarge}
	ErrBadFileType     = &Error{Kind: KindBadFileType}
	ErrInvalidFilename = &Error{Kind: KindInvalidFilename}
	ErrDuplicateFile   = &Error{Kind: KindDuplicateFile}
	ErrPathTraversal   = &Error{Kind: KindPathTraversal}
	ErrStorage         = &Error{Kind: KindStorage}
	ErrFileNotFound    = &Error{Kind: KindFileNotFound}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// OpOf returns the Op of the first *Error in err's chain.
func OpOf(err error) Op {
	var se *Error
	if errors.As(err, &se) {
		return se.Op
	}
	return ""
}

func rejectf(kind Kind, filename, format string, args ...any) *Error {
	return &Error{Kind: kind, Filename: filename, Message: fmt.Sprintf(format, args...)}
}

func ioFailure(op Op, filename, msg string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Filename: filename, Message: msg, Err: err}
}
