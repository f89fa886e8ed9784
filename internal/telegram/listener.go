package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// GroupReply is an operator replying to a relay card in the group.
type GroupReply struct {
	// RepliedToMessageID is the id of the relay card the operator replied to.
	RepliedToMessageID int
	// MessageID is the operator's own message.
	MessageID int
	Text      string
	Operator  string
}

// Callback is a button press on a relay card.
type Callback struct {
	ID        string
	Data      string
	MessageID int
	Operator  string
}

// Handler receives operator activity from the group.
type Handler interface {
	HandleOperatorReply(ctx context.Context, reply GroupReply)
	HandleCallback(ctx context.Context, cb Callback)
}

// Listener long-polls for updates and forwards operator group traffic to the
// handler. Updates from any other chat are ignored.
type Listener struct {
	log     *slog.Logger
	client  *Client
	handler Handler
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewListener(log *slog.Logger, client *Client, handler Handler) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{
		log:     log.With(slog.String("service", "telegram_listener")),
		client:  client,
		handler: handler,
	}
}

// Start begins long-polling in a background goroutine.
func (l *Listener) Start(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.cancel = cancel
	l.done = make(chan struct{})

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := l.client.bot.GetUpdatesChan(updateConfig)
	l.log.Info("listening for operator updates", slog.Int64("group_id", l.client.groupID))

	go func() {
		defer close(l.done)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					l.log.Info("updates channel closed")
					return
				}
				l.dispatch(pollCtx, update)
			}
		}
	}()
	go func() {
		<-pollCtx.Done()
		// Drain remaining updates so the library's polling goroutine can
		// finish writing and exit.
		for range updates {
		}
	}()
	return nil
}

// Stop halts polling and waits for the dispatch goroutine to exit. The
// remaining updates are drained so the library's polling goroutine can
// finish its in-flight long-poll request.
func (l *Listener) Stop(ctx context.Context) error {
	if l.cancel == nil {
		return nil
	}
	l.client.bot.StopReceivingUpdates()
	l.cancel()
	select {
	case <-l.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (l *Listener) dispatch(ctx context.Context, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != l.client.groupID {
			return
		}
		operator := ""
		if cb.From != nil {
			operator = operatorName(cb.From.FirstName, cb.From.LastName, cb.From.UserName)
		}
		l.handler.HandleCallback(ctx, Callback{
			ID:        cb.ID,
			Data:      cb.Data,
			MessageID: cb.Message.MessageID,
			Operator:  operator,
		})
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != l.client.groupID {
		return
	}
	if msg.ReplyToMessage == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	operator := ""
	if msg.From != nil {
		operator = operatorName(msg.From.FirstName, msg.From.LastName, msg.From.UserName)
	}
	l.handler.HandleOperatorReply(ctx, GroupReply{
		RepliedToMessageID: msg.ReplyToMessage.MessageID,
		MessageID:          msg.MessageID,
		Text:               text,
		Operator:           operator,
	})
}

func operatorName(first, last, username string) string {
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		name = strings.TrimSpace(username)
	}
	return name
}
