package storage

import (
	"io"
	"mime/multipart"
)

// Upload is an inbound file payload. Store takes ownership of Content and
// closes it before returning.
type Upload struct {
	Filename string
	Size     int64
	Content  io.ReadCloser
}

// IsEmpty reports whether the upload carries no bytes.
func (u Upload) IsEmpty() bool {
	return u.Size <= 0 || u.Content == nil
}

func (u Upload) close() {
	if u.Content != nil {
		u.Content.Close()
	}
}

// FromFileHeader opens a multipart file part as an Upload.
func FromFileHeader(fh *multipart.FileHeader) (Upload, error) {
	if fh.Size == 0 {
		return Upload{Filename: fh.Filename}, nil
	}
	f, err := fh.Open()
	if err != nil {
		return Upload{}, err
	}
	return Upload{Filename: fh.Filename, Size: fh.Size, Content: f}, nil
}
