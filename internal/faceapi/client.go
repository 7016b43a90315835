package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	detectPath       = "/face/v1.0/detect"
	detectionModel   = "detection_03"
	recognitionModel = "recognition_04"

	// DefaultTimeout bounds the single detection request. The service defines
	// no retry semantics; one failed call terminates the operation.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 4 * 1024
)

// ServiceError reports a failed call to the remote detection service, either a
// non-success HTTP status or a transport failure (StatusCode 0).
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("face service unreachable: %v", e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("face service returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("face service returned %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Client calls the Azure Face REST API. It implements Detector.
type Client struct {
	endpoint string
	key      string
	http     *http.Client
	logger   *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a Client for the given service endpoint and key.
func NewClient(endpoint, key string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      key,
		http:     &http.Client{Timeout: DefaultTimeout},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detect sends the image to the remote service and returns the detected faces
// in service order. An empty result is valid. No retries are attempted.
func (c *Client) Detect(ctx context.Context, image []byte, attrs []Attribute) ([]Face, error) {
	req, err := c.newDetectRequest(ctx, image, attrs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("face detection request failed", zap.Error(err))
		return nil, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		svcErr := newStatusError(resp)
		c.logger.Error("face detection rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("code", svcErr.Code))
		return nil, svcErr
	}

	var faces []Face
	if err := json.NewDecoder(resp.Body).Decode(&faces); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: "malformed response body", Err: err}
	}

	c.logger.Info("face detection completed",
		zap.Int("faces", len(faces)),
		zap.Duration("duration", time.Since(start)))
	return faces, nil
}

func (c *Client) newDetectRequest(ctx context.Context, image []byte, attrs []Attribute) (*http.Request, error) {
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = string(a)
	}

	q := url.Values{}
	q.Set("detectionModel", detectionModel)
	q.Set("recognitionModel", recognitionModel)
	q.Set("returnFaceId", "false")
	if len(names) > 0 {
		q.Set("returnFaceAttributes", strings.Join(names, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+detectPath+"?"+q.Encode(), bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/octet-stream")
	return req, nil
}

// newStatusError parses the service error envelope {"error":{"code","message"}}.
// Unparseable bodies fall back to a raw snippet.
func newStatusError(resp *http.Response) *ServiceError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &ServiceError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}
	return &ServiceError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
