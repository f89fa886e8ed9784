// Package telegram drives the operator group: sending relay cards with
// inline keyboards, editing them as the workflow advances, and long-polling
// for operator replies and button presses.
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxMessageLength = 4096

// Button is one inline keyboard button carrying compact callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of buttons rendered under a group message.
type Keyboard [][]Button

// Client wraps the bot API for the single operator group.
type Client struct {
	log     *slog.Logger
	bot     *tgbotapi.BotAPI
	groupID int64
}

// NewClient authenticates the bot and binds it to the operator group chat.
func NewClient(log *slog.Logger, botToken string, groupID int64) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	log.Debug("telegram bot authorized", slog.String("username", bot.Self.UserName))
	return &Client{
		log:     log.With(slog.String("service", "telegram")),
		bot:     bot,
		groupID: groupID,
	}, nil
}

// GroupID returns the operator group chat id.
func (c *Client) GroupID() int64 {
	return c.groupID
}

// SendMessage posts an HTML message to the operator group, optionally as a
// reply to an earlier message, and returns the new message id.
func (c *Client) SendMessage(_ context.Context, text string, replyTo int, kb Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(c.groupID, truncate(text))
	msg.ParseMode = tgbotapi.ModeHTML
	if replyTo > 0 {
		msg.ReplyToMessageID = replyTo
	}
	if markup := buildMarkup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditText replaces the text and keyboard of a group message.
func (c *Client) EditText(_ context.Context, messageID int, text string, kb Keyboard) error {
	edit := tgbotapi.NewEditMessageText(c.groupID, messageID, truncate(text))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = buildMarkup(kb)
	_, err := c.bot.Send(edit)
	if isMessageNotModified(err) {
		return nil
	}
	return err
}

// EditKeyboard swaps only the inline keyboard of a group message.
func (c *Client) EditKeyboard(_ context.Context, messageID int, kb Keyboard) error {
	markup := buildMarkup(kb)
	if markup == nil {
		markup = &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(c.groupID, messageID, *markup)
	_, err := c.bot.Send(edit)
	if isMessageNotModified(err) {
		return nil
	}
	return err
}

// DeleteMessage removes a group message.
func (c *Client) DeleteMessage(_ context.Context, messageID int) error {
	_, err := c.bot.Request(tgbotapi.NewDeleteMessage(c.groupID, messageID))
	return err
}

// AnswerCallback acknowledges a button press so the client stops its
// loading spinner. The text, when non-empty, shows as a toast.
func (c *Client) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func buildMarkup(kb Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func isMessageNotModified(err error) bool {
	if err == nil {
		return false
	}
	var apiErr tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 400 && strings.Contains(apiErr.Message, "message is not modified")
	}
	return false
}

// truncate caps text at the Telegram message limit on a rune boundary. The
// bodies are sent in HTML parse mode and Telegram rejects the whole send on
// malformed markup, so the cut must not leave a partial tag, a partial entity,
// or an unclosed element behind.
func truncate(text string) string {
	if len(text) <= maxMessageLength {
		return text
	}
	const suffix = "..."
	limit := maxMessageLength - len(suffix)
	for limit > 0 {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		head := trimPartialMarkup(text[:cut])
		closers := closeOpenTags(head)
		if len(head)+len(suffix)+len(closers) <= maxMessageLength {
			return head + suffix + closers
		}
		limit -= len(head) + len(suffix) + len(closers) - maxMessageLength
	}
	return suffix
}

// trimPartialMarkup drops a trailing unterminated tag or entity left by the
// byte cut.
func trimPartialMarkup(s string) string {
	if i := strings.LastIndexByte(s, '<'); i >= 0 && !strings.Contains(s[i:], ">") {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '&'); i >= 0 && !strings.Contains(s[i:], ";") {
		s = s[:i]
	}
	return s
}

// closeOpenTags returns the closing sequence for tags still open in s,
// innermost first.
func closeOpenTags(s string) string {
	var open []string
	for {
		i := strings.IndexByte(s, '<')
		if i < 0 {
			break
		}
		s = s[i+1:]
		j := strings.IndexByte(s, '>')
		if j < 0 {
			break
		}
		tag := s[:j]
		s = s[j+1:]
		if name, ok := strings.CutPrefix(tag, "/"); ok {
			for k := len(open) - 1; k >= 0; k-- {
				if open[k] == name {
					open = append(open[:k], open[k+1:]...)
					break
				}
			}
			continue
		}
		if name, _, _ := strings.Cut(tag, " "); name != "" {
			open = append(open, name)
		}
	}
	var sb strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		sb.WriteString("</")
		sb.WriteString(open[i])
		sb.WriteString(">")
	}
	return sb.String()
}
