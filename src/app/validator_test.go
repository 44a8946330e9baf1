package app

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejectionOf(t *testing.T, err error) *RejectionError {
	t.Helper()
	var rejection *RejectionError
	require.True(t, errors.As(err, &rejection), "expected RejectionError, got %v", err)
	return rejection
}

func TestContentValidator(t *testing.T) {
	v := NewContentValidator(nil)
	file := bytes.NewReader([]byte("img"))

	t.Run("accepts supported types case-insensitively", func(t *testing.T) {
		for _, ct := range []string{"image/jpeg", "IMAGE/PNG", "image/Webp", "image/gif", "image/heic", "image/jpg"} {
			assert.NoError(t, v.Validate(file, ct, 3), ct)
		}
	})

	t.Run("missing file wins over everything", func(t *testing.T) {
		rejection := rejectionOf(t, v.Validate(nil, "application/pdf", 0))
		assert.Equal(t, ReasonMissingFile, rejection.Reason)
	})

	t.Run("unsupported type enumerates supported set", func(t *testing.T) {
		for _, ct := range []string{"application/pdf", "image/tiff", "", "text/plain"} {
			rejection := rejectionOf(t, v.Validate(file, ct, 3))
			assert.Equal(t, ReasonUnsupportedType, rejection.Reason)
			assert.Equal(t, DefaultContentTypes, rejection.Supported)
		}
	})

	t.Run("unsupported type is checked before size", func(t *testing.T) {
		rejection := rejectionOf(t, v.Validate(file, "application/pdf", 0))
		assert.Equal(t, ReasonUnsupportedType, rejection.Reason)
	})

	t.Run("empty payload", func(t *testing.T) {
		for _, size := range []int64{0, -1} {
			rejection := rejectionOf(t, v.Validate(file, "image/png", size))
			assert.Equal(t, ReasonEmptyFile, rejection.Reason)
		}
	})

	t.Run("messages", func(t *testing.T) {
		assert.Equal(t, "Unsupported content type: unknown", (&RejectionError{Reason: ReasonUnsupportedType}).Error())
		assert.Equal(t, "Unsupported content type: application/pdf", v.Validate(file, "Application/PDF", 1).Error())
		assert.Equal(t, "Uploaded file is empty.", v.Validate(file, "image/png", 0).Error())
	})
}

func TestContentValidatorConfiguredSet(t *testing.T) {
	v := NewContentValidator([]string{" Image/PNG ", "image/png", "", "image/gif"})

	assert.Equal(t, []string{"image/png", "image/gif"}, v.Supported())
	assert.NoError(t, v.Validate(bytes.NewReader(nil), "image/png", 1))
	assert.Error(t, v.Validate(bytes.NewReader(nil), "image/jpeg", 1))
}
