package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	pathPresign   = "/pipeline/generate-presigned-url"
	pathRegister  = "/pipeline/upload-image-from-url"
	pathCaptions  = "/pipeline/generate-captions"
	contentTypeJS = "application/json"

	defaultRemoteTimeout = 60 * time.Second
)

type (
	// CaptioningClient talks to the remote captioning API. Every call carries
	// the caller's bearer token.
	CaptioningClient struct {
		baseURL    string
		httpClient *http.Client
	}

	// PresignedUploader writes bytes straight to a presigned storage URL.
	PresignedUploader struct {
		httpClient *http.Client
	}

	ClientOption func(*http.Client)
)

// WithTransport replaces the transport used for outgoing requests.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *http.Client) {
		if transport != nil {
			c.Transport = transport
		}
	}
}

func newHTTPClient(timeout time.Duration, opts []ClientOption) *http.Client {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			MaxIdleConns:    10,
			IdleConnTimeout: 90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func NewCaptioningClient(baseURL string, timeout time.Duration, opts ...ClientOption) *CaptioningClient {
	return &CaptioningClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: newHTTPClient(timeout, opts),
	}
}

func NewPresignedUploader(timeout time.Duration, opts ...ClientOption) *PresignedUploader {
	return &PresignedUploader{httpClient: newHTTPClient(timeout, opts)}
}

func (c *CaptioningClient) GeneratePresignedURL(ctx context.Context, cred Credential, contentType string) (RemoteResponse, error) {
	return c.postJSON(ctx, cred, pathPresign, map[string]any{
		"contentType": contentType,
	})
}

func (c *CaptioningClient) UploadImageFromURL(ctx context.Context, cred Credential, imageURL string, isCommonUse bool) (RemoteResponse, error) {
	return c.postJSON(ctx, cred, pathRegister, map[string]any{
		"imageUrl":    imageURL,
		"isCommonUse": isCommonUse,
	})
}

func (c *CaptioningClient) GenerateCaptions(ctx context.Context, cred Credential, imageID string) (RemoteResponse, error) {
	return c.postJSON(ctx, cred, pathCaptions, map[string]any{
		"imageId": imageID,
	})
}

func (c *CaptioningClient) postJSON(ctx context.Context, cred Credential, path string, payload any) (RemoteResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("can not marshal %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("can not build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", contentTypeJS)
	req.Header.Set("Accept", contentTypeJS)
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.bearerClient(ctx, cred).Do(req)
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()
	return RemoteResponse{StatusCode: resp.StatusCode, Body: readBodySafe(resp.Body)}, nil
}

// bearerClient layers the caller's token over the shared transport.
func (c *CaptioningClient) bearerClient(ctx context.Context, cred Credential) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cred.Token,
		TokenType:   "Bearer",
	}))
	client.Timeout = c.httpClient.Timeout
	return client
}

func (u *PresignedUploader) PutObject(ctx context.Context, uploadURL, contentType string, payload []byte) (RemoteResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(payload))
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("can not build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "no-store")
	req.ContentLength = int64(len(payload))

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return RemoteResponse{}, fmt.Errorf("upload to presigned url failed: %w", err)
	}
	defer resp.Body.Close()
	return RemoteResponse{StatusCode: resp.StatusCode, Body: readBodySafe(resp.Body)}, nil
}

// readBodySafe returns nil when the body can not be read completely.
func readBodySafe(body io.Reader) []byte {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil
	}
	return data
}
