package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	mocking "capserv/src/app/mock"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMinioS3Client(t *testing.T) {
	ctx := context.Background()

	t.Run("GeneratePresignedURL", func(t *testing.T) {
		client := new(mocking.MockClient)
		putURL, _ := url.Parse("https://minio.local/captions/u-1/x.png?X-Amz-Signature=abc")
		client.On("PresignedPutObject", mock.Anything, "captions",
			mock.MatchedBy(func(key string) bool {
				return strings.HasPrefix(key, "u-1/") && strings.HasSuffix(key, ".png")
			}), 10*time.Minute).Return(putURL, nil)
		s3 := NewMinioS3ClientWith(client, "captions", "https://cdn.local/", 10*time.Minute, nil)

		resp, err := s3.GeneratePresignedURL(ctx, Credential{VoterID: "u-1"}, "image/png")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var target PresignedTarget
		require.NoError(t, json.Unmarshal(resp.Body, &target))
		assert.Equal(t, putURL.String(), target.PresignedURL)
		assert.True(t, strings.HasPrefix(target.CDNURL, "https://cdn.local/captions/u-1/"), target.CDNURL)
		assert.True(t, strings.HasSuffix(target.CDNURL, ".png"), target.CDNURL)
		client.AssertExpectations(t)
	})

	t.Run("GeneratePresignedURL without voter", func(t *testing.T) {
		client := new(mocking.MockClient)
		s3 := NewMinioS3ClientWith(client, "captions", "https://cdn.local", 0, nil)

		resp, err := s3.GeneratePresignedURL(ctx, Credential{}, "image/png")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		client.AssertNotCalled(t, "PresignedPutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("GeneratePresignedURL error", func(t *testing.T) {
		client := new(mocking.MockClient)
		client.On("PresignedPutObject", mock.Anything, "captions", mock.Anything, mock.Anything).
			Return(nil, errors.New("no such bucket"))
		s3 := NewMinioS3ClientWith(client, "captions", "https://cdn.local", 0, nil)

		_, err := s3.GeneratePresignedURL(ctx, Credential{VoterID: "u-1"}, "image/jpeg")
		assert.ErrorContains(t, err, "no such bucket")
	})

	t.Run("ListUploads", func(t *testing.T) {
		client := new(mocking.MockClient)
		client.On("ListObjects", mock.Anything, "captions", minio.ListObjectsOptions{
			Prefix:    "u-1/",
			Recursive: true,
		}).Return(mocking.Objects(
			minio.ObjectInfo{Key: "u-1/a.jpg", Size: 10},
			minio.ObjectInfo{Key: "u-1/notes.txt", Size: 3},
			minio.ObjectInfo{Key: "u-1/b.webp", Size: 20},
		))
		getURL, _ := url.Parse("https://minio.local/signed")
		client.On("PresignedGetObject", mock.Anything, "captions", mock.Anything, 15*time.Minute, mock.Anything).
			Return(getURL, nil)
		s3 := NewMinioS3ClientWith(client, "captions", "https://cdn.local", 0, nil)

		uploads, err := s3.ListUploads(ctx, "u-1")
		require.NoError(t, err)
		require.Len(t, uploads, 2)
		assert.Equal(t, "u-1/a.jpg", uploads[0].Key)
		assert.Equal(t, "u-1/b.webp", uploads[1].Key)
		assert.Equal(t, "https://minio.local/signed", uploads[0].URL)
		client.AssertNumberOfCalls(t, "PresignedGetObject", 2)
	})

	t.Run("ListUploads object error", func(t *testing.T) {
		client := new(mocking.MockClient)
		client.On("ListObjects", mock.Anything, "captions", mock.Anything).
			Return(mocking.Objects(minio.ObjectInfo{Err: errors.New("access denied")}))
		s3 := NewMinioS3ClientWith(client, "captions", "https://cdn.local", 0, nil)

		_, err := s3.ListUploads(ctx, "u-1")
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("checkIn", func(t *testing.T) {
		filters := []string{"jpg", "png", "gif"}
		assert.True(t, checkIn("file.JPG", filters))
		assert.False(t, checkIn("file.tiff", filters))
		assert.False(t, checkIn("jpg", filters))
	})

	t.Run("voterPrefix", func(t *testing.T) {
		assert.Equal(t, "a_b", voterPrefix(" a/b "))
		assert.Equal(t, "_", voterPrefix(".."))
	})
}
