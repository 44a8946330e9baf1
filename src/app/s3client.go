package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ClientMinio interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
}

// MinioS3Client presigns uploads into a per-voter prefix and lists them back.
type MinioS3Client struct {
	bucketName string
	publicURL  string
	presignTTL time.Duration
	client     ClientMinio
	logger     *slog.Logger
}

// UploadedImage is an object previously written through a presigned URL.
type UploadedImage struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

const defaultPresignTTL = 15 * time.Minute

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
}

// NewMinioS3Client creates a new MinioS3Client instance.
func NewMinioS3Client(endpoint, accessKeyID, secretAccessKey, bucketName string, useSSL bool, publicURL string, presignTTL time.Duration, logger *slog.Logger) (*MinioS3Client, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", endpoint, err)
	}
	return NewMinioS3ClientWith(minioClient, bucketName, publicURL, presignTTL, logger), nil
}

func NewMinioS3ClientWith(client ClientMinio, bucketName, publicURL string, presignTTL time.Duration, logger *slog.Logger) *MinioS3Client {
	if presignTTL <= 0 {
		presignTTL = defaultPresignTTL
	}
	return &MinioS3Client{
		bucketName: bucketName,
		publicURL:  strings.TrimRight(publicURL, "/"),
		presignTTL: presignTTL,
		client:     client,
		logger:     ResolveLogger(logger),
	}
}

// GeneratePresignedURL answers with the same {presignedUrl, cdnUrl} contract
// as the remote endpoint so the presign stage treats both backends alike.
func (s3 *MinioS3Client) GeneratePresignedURL(ctx context.Context, cred Credential, contentType string) (RemoteResponse, error) {
	prefix := voterPrefix(cred.VoterID)
	if prefix == "" {
		body, _ := json.Marshal(map[string]string{"error": "missing voter identity"})
		return RemoteResponse{StatusCode: http.StatusUnauthorized, Body: body}, nil
	}
	key := objectKey(prefix, contentType)
	presigned, err := s3.client.PresignedPutObject(ctx, s3.bucketName, key, s3.presignTTL)
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("can not presign %s: %w", key, err)
	}
	body, err := json.Marshal(PresignedTarget{
		PresignedURL: presigned.String(),
		CDNURL:       s3.publicURL + "/" + path.Join(s3.bucketName, key),
	})
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("can not marshal presigned target: %w", err)
	}
	s3.logger.Debug("presigned upload issued",
		"event", "minio_presign_issued",
		"bucket", s3.bucketName,
		"key", key,
	)
	return RemoteResponse{StatusCode: http.StatusOK, Body: body}, nil
}

// ListUploads lists the voter's image objects with presigned read URLs.
func (s3 *MinioS3Client) ListUploads(ctx context.Context, voterID string) ([]UploadedImage, error) {
	prefix := voterPrefix(voterID)
	if prefix == "" {
		return nil, fmt.Errorf("voter id is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make([]UploadedImage, 0)
	objectCh := s3.client.ListObjects(ctx, s3.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix + "/",
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return result, fmt.Errorf("can not list objects under %s: %w", prefix, object.Err)
		}
		if !checkIn(object.Key, supportedExtensions()) {
			continue
		}
		reqParams := make(url.Values)
		reqParams.Set("response-content-disposition", fmt.Sprintf("inline; filename=\"%s\"", path.Base(object.Key)))
		presignedURL, err := s3.client.PresignedGetObject(ctx, s3.bucketName, object.Key, s3.presignTTL, reqParams)
		if err != nil {
			return result, fmt.Errorf("can not presign read of %s: %w", object.Key, err)
		}
		result = append(result, UploadedImage{
			Key:          object.Key,
			URL:          presignedURL.String(),
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return result, nil
}

func objectKey(prefix, contentType string) string {
	ext, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%s.%s", prefix, uuid.NewString(), ext)
}

func voterPrefix(voterID string) string {
	voterID = strings.TrimSpace(voterID)
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(voterID)
}

func supportedExtensions() []string {
	seen := make(map[string]struct{}, len(imageExtensions))
	out := make([]string, 0, len(imageExtensions))
	for _, ext := range imageExtensions {
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func checkIn(key string, filters []string) bool {
	parsed := strings.Split(key, ".")
	if len(parsed) > 1 {
		for _, f := range filters {
			if strings.EqualFold(f, parsed[len(parsed)-1]) {
				return true
			}
		}
	}
	return false
}
