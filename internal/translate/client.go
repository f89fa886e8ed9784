package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable wraps any network or decode failure of the translation
// endpoint. Callers recover by falling back to the untranslated text.
var ErrUnavailable = errors.New("translation service unavailable")

const defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

// Result is one translation response.
type Result struct {
	Text     string
	Detected string
}

// Client calls the Google web translation endpoint (the same one the gtx web
// client uses, no API key required). A bounded timeout wraps every call so a
// slow translator never stalls the relay.
type Client struct {
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
}

// NewClient creates a Client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   defaultEndpoint,
		timeout:    timeout,
	}
}

// SetEndpoint overrides the translation endpoint. Used by tests.
func (c *Client) SetEndpoint(endpoint string) { c.endpoint = endpoint }

// Translate translates text into targetLang with automatic source detection.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	result, err := parseResponse(body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

// parseResponse decodes the gtx array-of-arrays payload:
// [[["translated","original",...],...],null,"detectedLang",...].
func parseResponse(body []byte) (Result, error) {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("decode response: %v", err)
	}
	if len(payload) == 0 {
		return Result{}, fmt.Errorf("empty response")
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return Result{}, fmt.Errorf("unexpected response shape")
	}
	var sb strings.Builder
	for _, raw := range segments {
		segment, ok := raw.([]any)
		if !ok || len(segment) == 0 {
			continue
		}
		if part, ok := segment[0].(string); ok {
			sb.WriteString(part)
		}
	}
	result := Result{Text: sb.String()}
	if len(payload) > 2 {
		if detected, ok := payload[2].(string); ok {
			result.Detected = detected
		}
	}
	if result.Text == "" {
		return Result{}, fmt.Errorf("no translation segments")
	}
	return result, nil
}
