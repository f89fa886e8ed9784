package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pagebridge/pagebridge/internal/relay"
)

// Relay is the inbound side of the correlation engine.
type Relay interface {
	HandleInbound(ctx context.Context, msg relay.InboundMessage) error
}

type WebhookHandler struct {
	logger      *slog.Logger
	relay       Relay
	verifyToken string
}

func NewWebhookHandler(log *slog.Logger, r Relay, verifyToken string) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger:      log.With(slog.String("handler", "webhook")),
		relay:       r,
		verifyToken: verifyToken,
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/webhook", h.Verify)
	e.POST("/webhook", h.Receive)
}

// Verify answers the Facebook subscription handshake.
func (h *WebhookHandler) Verify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")
	if mode == "subscribe" && token == h.verifyToken {
		h.logger.Info("webhook verified")
		return c.String(http.StatusOK, challenge)
	}
	return echo.NewHTTPError(http.StatusForbidden, "verification failed")
}

type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID        string           `json:"id"`
	Messaging []messagingEvent `json:"messaging"`
}

type messagingEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Timestamp int64           `json:"timestamp"`
	Message   *webhookMessage `json:"message"`
}

type webhookMessage struct {
	MID         string              `json:"mid"`
	Text        string              `json:"text"`
	IsEcho      bool                `json:"is_echo"`
	Attachments []webhookAttachment `json:"attachments"`
}

type webhookAttachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url"`
	} `json:"payload"`
}

// Receive acknowledges the event batch immediately and relays each customer
// message in the background. Facebook retries deliveries that are not
// answered quickly.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var payload webhookPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if payload.Object != "page" {
		return echo.NewHTTPError(http.StatusNotFound, "unsupported event object")
	}

	for _, msg := range collectMessages(payload) {
		go func(msg relay.InboundMessage) {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			if err := h.relay.HandleInbound(ctx, msg); err != nil {
				h.logger.Error("relay inbound failed",
					slog.String("page_id", msg.PageID), slog.Any("error", err))
			}
		}(msg)
	}
	return c.String(http.StatusOK, "EVENT_RECEIVED")
}

func collectMessages(payload webhookPayload) []relay.InboundMessage {
	var out []relay.InboundMessage
	for _, entry := range payload.Entry {
		for _, ev := range entry.Messaging {
			if ev.Message == nil || ev.Message.IsEcho {
				continue
			}
			msg := relay.InboundMessage{
				PageID:   entry.ID,
				SenderID: ev.Sender.ID,
				Text:     ev.Message.Text,
				At:       time.UnixMilli(ev.Timestamp).UTC(),
			}
			if len(ev.Message.Attachments) > 0 {
				msg.MediaKind = ev.Message.Attachments[0].Type
				msg.MediaRef = ev.Message.Attachments[0].Payload.URL
			}
			if msg.Text == "" && msg.MediaKind == "" {
				continue
			}
			out = append(out, msg)
		}
	}
	return out
}
