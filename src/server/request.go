package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

const uploadField = "file"

// errUploadTooLarge is returned when the request body exceeds the configured
// upload limit.
var errUploadTooLarge = errors.New("upload exceeds size limit")

type uploadedFile struct {
	file        multipart.File
	contentType string
	size        int64
}

// Close is safe on a missing file.
func (u *uploadedFile) Close() error {
	if u.file == nil {
		return nil
	}
	return u.file.Close()
}

// reader returns nil when the form had no file part.
func (u *uploadedFile) reader() io.Reader {
	if u.file == nil {
		return nil
	}
	return u.file
}

func (u *uploadedFile) readAll() ([]byte, error) {
	if u.file == nil {
		return nil, fmt.Errorf("no file in request")
	}
	payload, err := io.ReadAll(u.file)
	if err != nil {
		return nil, fmt.Errorf("can not read uploaded file: %w", err)
	}
	return payload, nil
}

// readUpload pulls the multipart file part out of the request. A body that is
// not multipart, or has no file part, yields an empty uploadedFile so the
// validator can reject it.
func readUpload(c *gin.Context, maxBytes int64) (*uploadedFile, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
	file, header, err := c.Request.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errUploadTooLarge
		}
		return &uploadedFile{}, nil
	}
	return &uploadedFile{
		file:        file,
		contentType: header.Header.Get("Content-Type"),
		size:        header.Size,
	}, nil
}
