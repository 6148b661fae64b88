package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"upload-service/internal/storage"
)

type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

var storageCodes = map[storage.Kind]struct {
	code   string
	status int
}{
	storage.KindEmptyFile:       {"EMPTY_FILE", fiber.StatusBadRequest},
	storage.KindFileTooLarge:    {"FILE_TOO_LARGE", fiber.StatusRequestEntityTooLarge},
	storage.KindBadFileType:     {"BAD_FILE_TYPE", fiber.StatusUnsupportedMediaType},
	storage.KindInvalidFilename: {"INVALID_FILENAME", fiber.StatusBadRequest},
	storage.KindPathTraversal:   {"PATH_TRAVERSAL", fiber.StatusBadRequest},
	storage.KindDuplicateFile:   {"DUPLICATE_FILE", fiber.StatusConflict},
	storage.KindFileNotFound:    {"NOT_FOUND", fiber.StatusNotFound},
	storage.KindStorage:         {"STORAGE_ERROR", fiber.StatusInternalServerError},
}

// fromStorageError maps a storage failure onto an AppError. Errors without
// a storage kind are returned unchanged.
func fromStorageError(err error) error {
	var se *storage.Error
	if !errors.As(err, &se) {
		return err
	}
	m, ok := storageCodes[se.Kind]
	if !ok {
		return err
	}
	msg := se.Message
	if se.Kind == storage.KindStorage {
		// The wrapped cause may leak server paths.
		msg = "Storage operation failed"
	}
	if msg == "" {
		msg = se.Kind.String()
	}
	return NewAppError(m.code, m.status, msg)
}

func respondError(c *fiber.Ctx, err *AppError) error {
	return c.Status(err.Status).JSON(ErrorResponse{Error: err})
}

// ErrorHandler renders AppErrors and fiber errors as JSON and hides
// everything else behind INTERNAL_ERROR.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(fromStorageError(err), &appErr) {
		if appErr.Status >= fiber.StatusInternalServerError {
			slog.Error("request failed", "method", c.Method(), "path", c.Path(),
				"op", string(storage.OpOf(err)), "error", err)
		}
		return respondError(c, appErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return respondError(c, NewAppError(codeForStatus(fiberErr.Code), fiberErr.Code, fiberErr.Message))
	}

	slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return respondError(c, NewAppError("INTERNAL_ERROR", fiber.StatusInternalServerError, "Internal server error"))
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "FILE_TOO_LARGE"
	case fiber.StatusBadRequest:
		return "INVALID_PAYLOAD"
	default:
		return "HTTP_ERROR"
	}
}
