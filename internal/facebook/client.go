// Package facebook talks to the Facebook Graph API on behalf of configured
// fanpages: fetching sender profiles and delivering messages through the
// Send API.
package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Profile is the subset of a Graph user profile the relay needs.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ID        string `json:"id"`
}

// Name joins the profile name parts, trimming the gap when one is empty.
func (p Profile) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Client is a thin Graph API client. Page access tokens are passed per call
// because each fanpage carries its own token.
type Client struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
}

// NewClient creates a Client against the given Graph API base URL, such as
// https://graph.facebook.com/v19.0.
func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		log:     log.With(slog.String("service", "facebook")),
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchProfile loads the display name of a messenger user via the page token.
func (c *Client) FetchProfile(ctx context.Context, userID, pageToken string) (Profile, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=first_name,last_name&access_token=%s",
		c.baseURL, url.PathEscape(userID), url.QueryEscape(pageToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build profile request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, graphError("fetch profile", resp)
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

type sendRequest struct {
	Recipient recipient   `json:"recipient"`
	Message   sendMessage `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type sendMessage struct {
	Text string `json:"text"`
}

type sendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// SendText delivers a text message to a messenger user through the Send API
// and returns the platform message id.
func (c *Client) SendText(ctx context.Context, userID, pageToken, text string) (string, error) {
	payload, err := json.Marshal(sendRequest{
		Recipient: recipient{ID: userID},
		Message:   sendMessage{Text: text},
	})
	if err != nil {
		return "", fmt.Errorf("encode send request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, url.QueryEscape(pageToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", graphError("send message", resp)
	}
	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	c.log.Info("message delivered",
		slog.String("recipient", userID),
		slog.String("message_id", result.MessageID))
	return result.MessageID, nil
}

func graphError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var wrapper struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Message != "" {
		return fmt.Errorf("%s: graph error %d: %s", op, wrapper.Error.Code, wrapper.Error.Message)
	}
	return fmt.Errorf("%s: status %d", op, resp.StatusCode)
}
