package app

import (
	"fmt"
	"io"
	"strings"
)

// Rejection reasons reported by the ContentValidator.
const (
	ReasonMissingFile     = "missing-file"
	ReasonUnsupportedType = "unsupported-type"
	ReasonEmptyFile       = "empty-file"
)

// DefaultContentTypes is the supported upload set when none is configured.
var DefaultContentTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/webp",
	"image/gif",
	"image/heic",
}

type (
	// UploadRequest is a submitted image ready for the pipeline.
	UploadRequest struct {
		Payload     []byte
		ContentType string
		Size        int64
	}

	// RejectionError is returned by Validate for uploads that must not reach
	// the network.
	RejectionError struct {
		Reason      string
		ContentType string
		Supported   []string
	}

	ContentValidator struct {
		supported []string
		lookup    map[string]struct{}
	}
)

func (e *RejectionError) Error() string {
	switch e.Reason {
	case ReasonMissingFile:
		return `Missing file field. Use multipart form-data with key "file".`
	case ReasonUnsupportedType:
		contentType := e.ContentType
		if contentType == "" {
			contentType = "unknown"
		}
		return fmt.Sprintf("Unsupported content type: %s", contentType)
	case ReasonEmptyFile:
		return "Uploaded file is empty."
	default:
		return fmt.Sprintf("upload rejected: %s", e.Reason)
	}
}

// NewContentValidator builds a validator over the given content types.
// Types are compared lower-cased.
func NewContentValidator(contentTypes []string) *ContentValidator {
	if len(contentTypes) == 0 {
		contentTypes = DefaultContentTypes
	}
	v := &ContentValidator{lookup: make(map[string]struct{}, len(contentTypes))}
	for _, ct := range contentTypes {
		ct = strings.ToLower(strings.TrimSpace(ct))
		if ct == "" {
			continue
		}
		if _, ok := v.lookup[ct]; ok {
			continue
		}
		v.lookup[ct] = struct{}{}
		v.supported = append(v.supported, ct)
	}
	return v
}

// Supported returns a copy of the supported content types in configured order.
func (v *ContentValidator) Supported() []string {
	out := make([]string, len(v.supported))
	copy(out, v.supported)
	return out
}

// Validate checks presence, then content type, then size. The first failing
// rule wins. A nil error means the upload is accepted.
func (v *ContentValidator) Validate(file io.Reader, contentType string, size int64) error {
	if file == nil {
		return &RejectionError{Reason: ReasonMissingFile}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := v.lookup[contentType]; !ok {
		return &RejectionError{
			Reason:      ReasonUnsupportedType,
			ContentType: contentType,
			Supported:   v.Supported(),
		}
	}
	if size <= 0 {
		return &RejectionError{Reason: ReasonEmptyFile}
	}
	return nil
}
