package captions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production endpoint of the Captions API.
	DefaultBaseURL = "https://api.captions.ai"
	// DefaultUserAgent identifies this client to the upstream.
	DefaultUserAgent = "adgen/1.0"
	// APIKeyEnv is the environment variable consulted when no key is passed explicitly.
	APIKeyEnv = "CAPTIONS_API_KEY"

	submitPath       = "/api/ads/submit"
	pollPath         = "/api/ads/poll"
	listCreatorsPath = "/api/ads/list-creators"

	// maxErrorBody caps how much of an error response is kept as detail.
	maxErrorBody = 4096
)

// Client defines the interface for interacting with the Captions AI Ads API.
type Client interface {
	// Submit sends an ad generation job and returns its operation ID.
	Submit(ctx context.Context, req SubmitRequest) (operationID string, err error)

	// Poll fetches the current status of an operation.
	Poll(ctx context.Context, operationID string) (PollResult, error)

	// ListCreators returns the creators supported by the upstream.
	ListCreators(ctx context.Context) (Creators, error)

	// Download streams the resource at rawURL into destPath and returns the path written.
	Download(ctx context.Context, rawURL, destPath string) (string, error)
}

// HTTPClient is the HTTP implementation of the Client interface.
// It holds only read-only configuration after construction and is safe for
// concurrent use.
type HTTPClient struct {
	apiKey         string
	baseURL        string
	baseHost       string
	userAgent      string
	httpClient     *http.Client
	downloadClient *http.Client
	logger         *slog.Logger
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithBaseURL sets a custom base URL for the Captions API.
func WithBaseURL(u string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithDownloadClient sets the HTTP client used for video downloads.
func WithDownloadClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.downloadClient = c
	}
}

// WithLogger sets the logger. Without it the client logs nothing.
func WithLogger(l *slog.Logger) ClientOption {
	return func(hc *HTTPClient) {
		if l != nil {
			hc.logger = l
		}
	}
}

// NewClient creates a new Captions HTTP client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable CAPTIONS_API_KEY.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:        DefaultBaseURL,
		userAgent:      DefaultUserAgent,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		downloadClient: &http.Client{Timeout: 10 * time.Minute},
		logger:         slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv(APIKeyEnv)
	}
	if c.apiKey == "" {
		return nil, &Error{
			Kind:   KindConfiguration,
			Op:     "new client",
			Detail: "API key is required: set " + APIKeyEnv + " or pass an explicit key",
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{
			Kind:   KindConfiguration,
			Op:     "new client",
			Detail: fmt.Sprintf("invalid base URL %q", c.baseURL),
			Err:    err,
		}
	}
	c.baseHost = u.Host

	return c, nil
}

// Submit sends an ad generation job and returns its operation ID.
func (c *HTTPClient) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	res, ok := ParseResolution(string(req.Resolution))
	if !ok {
		return "", &Error{
			Kind:   KindValidation,
			Op:     "submit",
			Detail: fmt.Sprintf("invalid resolution %q", req.Resolution),
		}
	}

	mediaURLs := req.MediaURLs
	if len(mediaURLs) == 0 {
		mediaURLs = []string{DefaultMediaURL}
	}

	body := submitRequest{
		Script:      req.Script,
		CreatorName: req.CreatorName,
		MediaURLs:   mediaURLs,
		Resolution:  string(res),
		WebhookID:   req.WebhookID,
	}

	c.logger.Info("submitting ad job",
		slog.String("creator", req.CreatorName),
		slog.String("resolution", string(res)),
		slog.Int("media_count", len(mediaURLs)),
		slog.Bool("webhook", req.WebhookID != ""),
	)

	var resp submitResponse
	if err := c.doRequest(ctx, "submit", "", submitPath, body, &resp); err != nil {
		return "", err
	}

	if resp.OperationID == "" {
		return "", &Error{Kind: KindProtocol, Op: "submit", Detail: "no operation ID received"}
	}

	c.logger.Info("ad job submitted", slog.String("operation_id", resp.OperationID))
	return resp.OperationID, nil
}

// Poll fetches the current status of an operation. Every call hits the API.
func (c *HTTPClient) Poll(ctx context.Context, operationID string) (PollResult, error) {
	if operationID == "" {
		return PollResult{}, &Error{Kind: KindValidation, Op: "poll", Detail: "operation ID is required"}
	}

	var resp pollResponse
	if err := c.doRequest(ctx, "poll", operationID, pollPath, pollRequest{OperationID: operationID}, &resp); err != nil {
		return PollResult{}, err
	}

	result := PollResult{State: State(resp.State)}
	switch result.State {
	case StateComplete:
		result.URL = resp.URL
	case StateFailed:
		result.Error = resp.Error
	}

	c.logger.Debug("polled ad job",
		slog.String("operation_id", operationID),
		slog.String("state", resp.State),
	)

	return result, nil
}

// ListCreators returns the creators supported by the upstream.
func (c *HTTPClient) ListCreators(ctx context.Context) (Creators, error) {
	var resp Creators
	if err := c.doRequest(ctx, "list creators", "", listCreatorsPath, nil, &resp); err != nil {
		return Creators{}, err
	}
	return resp, nil
}

// Download streams the resource at rawURL into destPath, creating parent
// directories as needed. Data is written to a temporary file next to destPath
// and renamed into place only after the whole body has been copied.
// The API key is sent only when rawURL points at the API host.
func (c *HTTPClient) Download(ctx context.Context, rawURL, destPath string) (string, error) {
	const op = "download"

	if rawURL == "" {
		return "", &Error{Kind: KindValidation, Op: op, Detail: "download URL is required"}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", &Error{Kind: KindValidation, Op: op, Detail: fmt.Sprintf("invalid download URL %q", rawURL), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{Kind: KindTransport, Op: op, Detail: "create request", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if u.Host == c.baseHost {
		req.Header.Set("x-api-key", c.apiKey)
	}

	c.logger.Info("downloading video", slog.String("path", destPath))

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return "", transportError(ctx, op, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", statusError(op, "", resp.StatusCode, errBody)
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", &Error{Kind: KindTransport, Op: op, Detail: "create output directory", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return "", &Error{Kind: KindTransport, Op: op, Detail: "create temp file", Err: err}
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", transportError(ctx, op, "", fmt.Errorf("copy download data: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", &Error{Kind: KindTransport, Op: op, Detail: "close temp file", Err: err}
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		_ = os.Remove(tmpName)
		return "", &Error{Kind: KindTransport, Op: op, Detail: "move download into place", Err: err}
	}

	c.logger.Info("video downloaded",
		slog.String("path", destPath),
		slog.Int64("bytes", written),
	)
	return destPath, nil
}

// doRequest performs a single authenticated POST against the API and
// decodes the JSON response into result.
func (c *HTTPClient) doRequest(ctx context.Context, op, operationID, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Op: op, OperationID: operationID, Detail: "marshal request", Err: err}
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, OperationID: operationID, Detail: "create request", Err: err}
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, op, operationID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ctx, op, operationID, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, operationID, resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &Error{Kind: KindProtocol, Op: op, OperationID: operationID, Detail: "unexpected response", Err: err}
		}
	}

	return nil
}

// transportError maps a failed round trip, telling caller cancellation
// apart from network failures.
func transportError(ctx context.Context, op, operationID string, err error) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return &Error{Kind: KindCanceled, Op: op, OperationID: operationID, Err: ctxErr}
	}
	return &Error{Kind: KindTransport, Op: op, OperationID: operationID, Err: err}
}

// statusError maps a non-2xx response to an Error.
func statusError(op, operationID string, status int, body []byte) *Error {
	e := &Error{Op: op, OperationID: operationID, StatusCode: status}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = KindAuth
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case http.StatusPaymentRequired:
		e.Kind = KindBilling
	case http.StatusBadRequest:
		e.Kind = KindBadRequest
		e.Detail = badRequestDetail(body)
	default:
		e.Kind = KindTransport
		e.Detail = truncate(strings.TrimSpace(string(body)), maxErrorBody)
	}
	return e
}

// badRequestDetail returns the compacted JSON error body when it parses,
// otherwise the raw response text.
func badRequestDetail(body []byte) string {
	if json.Valid(body) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, body); err == nil {
			return truncate(buf.String(), maxErrorBody)
		}
	}
	return truncate(strings.TrimSpace(string(body)), maxErrorBody)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
