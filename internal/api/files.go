package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"upload-service/internal/storage"
)

// Mirror receives copies of stored uploads. *mirror.Mirror implements it.
type Mirror interface {
	Replicate(ctx context.Context, name string, r io.Reader, size int64) error
	Purge(ctx context.Context) (int, error)
}

type FileHandler struct {
	storage *storage.Service
	mirror  Mirror
}

// NewFileHandler creates a handler over svc. mirror may be nil.
func NewFileHandler(svc *storage.Service, mirror Mirror) *FileHandler {
	return &FileHandler{storage: svc, mirror: mirror}
}

func fileURL(name string) string {
	return "/files/" + url.PathEscape(name)
}

func (h *FileHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", fiber.StatusBadRequest, "Missing file in form data"))
	}

	upload, err := storage.FromFileHeader(fh)
	if err != nil {
		return fmt.Errorf("open uploaded file: %w", err)
	}

	ctx := c.UserContext()
	if err := h.storage.Store(ctx, upload); err != nil {
		return err
	}
	h.replicate(ctx, upload.Filename, upload.Size)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"filename": upload.Filename,
			"size":     upload.Size,
			"url":      fileURL(upload.Filename),
		},
	})
}

// replicate copies a freshly stored file to the mirror. Failures are logged
// only; the upload itself already succeeded.
func (h *FileHandler) replicate(ctx context.Context, name string, size int64) {
	if h.mirror == nil {
		return
	}
	f, err := h.storage.LoadAsResource(ctx, name)
	if err != nil {
		slog.Error("mirror: reopen stored file", "filename", name, "error", err)
		return
	}
	defer f.Close()
	if err := h.mirror.Replicate(ctx, name, f, size); err != nil {
		slog.Error("mirror: replicate", "filename", name, "error", err)
	}
}

func (h *FileHandler) List(c *fiber.Ctx) error {
	listing, err := h.storage.LoadAll(c.UserContext())
	if err != nil {
		return err
	}
	names, err := listing.Collect()
	if err != nil {
		return err
	}

	files := make([]fiber.Map, 0, len(names))
	for _, name := range names {
		entry := fiber.Map{"filename": name, "url": fileURL(name)}
		if info, err := h.storage.Stat(name); err == nil {
			entry["size"] = info.Size()
		}
		files = append(files, entry)
	}
	return c.JSON(fiber.Map{"data": files})
}

func (h *FileHandler) Serve(c *fiber.Ctx) error {
	name := c.Params("filename")
	// Load does not guard against traversal, so only single path
	// elements are served.
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return respondError(c, NewAppError("NOT_FOUND", fiber.StatusNotFound, fmt.Sprintf("File %s not found", name)))
	}

	f, err := h.storage.LoadAsResource(c.UserContext(), name)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat stored file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": name}))

	// fasthttp closes the stream once the body has been written.
	return c.SendStream(f, int(info.Size()))
}

// Purge removes every stored file and recreates an empty root.
func (h *FileHandler) Purge(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.storage.DeleteAll(ctx); err != nil {
		return err
	}
	if err := h.storage.Init(ctx); err != nil {
		return err
	}

	if h.mirror != nil {
		if n, err := h.mirror.Purge(ctx); err != nil {
			slog.Error("mirror: purge", "removed", n, "error", err)
		}
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}
