package relay

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"time"

	"github.com/pagebridge/pagebridge/internal/action"
	"github.com/pagebridge/pagebridge/internal/event"
	"github.com/pagebridge/pagebridge/internal/ledger"
	"github.com/pagebridge/pagebridge/internal/pending"
	"github.com/pagebridge/pagebridge/internal/telegram"
)

const genericFailureToast = "Có lỗi xảy ra, vui lòng thử lại."

// HandleCallback routes one operator button press. Every press is answered
// exactly once; failures surface as a toast instead of a stuck spinner.
func (s *Service) HandleCallback(ctx context.Context, cb telegram.Callback) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	act := action.Decode(cb.Data)

	var toast string
	var err error
	switch act.Kind {
	case action.KindSend:
		toast, err = s.handleSend(ctx, cb, action.JoinArgs(act.Args))
	case action.KindCancel:
		toast, err = s.handleCancel(ctx, cb, action.JoinArgs(act.Args))
	case action.KindQuickReply:
		err = s.handleQuickReplyMenu(ctx, cb, act.Args[0], act.Args[1], act.Args[2])
	case action.KindSendQR:
		toast, err = s.handleSendQuickReply(ctx, cb, act.Args)
	case action.KindAddLabel:
		toast, err = s.handleAddLabel(ctx, cb, act.Args)
	case action.KindHistory:
		err = s.handleHistoryMenu(ctx, cb, act.Args[0])
	case action.KindHistoryFilter:
		err = s.handleHistoryFilter(ctx, cb, act.Args[0], act.Args[1])
	case action.KindDone:
		toast, err = s.handleDone(ctx, cb)
	case action.KindClose:
		err = s.messenger.DeleteMessage(ctx, cb.MessageID)
	case action.KindNoop:
	}
	if err != nil {
		s.log.Error("callback failed",
			slog.String("data", cb.Data),
			slog.String("operator", cb.Operator),
			slog.Any("error", err))
		toast = genericFailureToast
	}
	if ackErr := s.messenger.AnswerCallback(ctx, cb.ID, toast); ackErr != nil {
		s.log.Warn("answer callback failed", slog.Any("error", ackErr))
	}
}

func (s *Service) handleSend(ctx context.Context, cb telegram.Callback, token string) (string, error) {
	var customerID int64
	if mapping, err := s.threads.Mapping(ctx, int64(cb.MessageID)); err == nil {
		customerID = mapping.CustomerID
	}

	reply, err := s.pendings.Confirm(ctx, token, customerID)
	if errors.Is(err, pending.ErrNotFound) {
		return "Tin nhắn đã được xử lý trước đó.", nil
	}
	if err != nil {
		return "", fmt.Errorf("confirm reply: %w", err)
	}

	if err := s.messenger.EditText(ctx, cb.MessageID, sentCard(reply.TranslatedText), nil); err != nil {
		s.log.Warn("edit confirm card failed", slog.Any("error", err))
	}
	s.hub.Publish(event.Event{
		Type:   event.TypeOperatorReply,
		PageID: reply.PageID,
		Text:   reply.TranslatedText,
	})
	return "Đã gửi cho khách.", nil
}

func (s *Service) handleCancel(ctx context.Context, cb telegram.Callback, token string) (string, error) {
	if err := s.pendings.Cancel(ctx, token); err != nil {
		return "", fmt.Errorf("cancel reply: %w", err)
	}
	if err := s.messenger.EditText(ctx, cb.MessageID, cancelledCard(), nil); err != nil {
		s.log.Warn("edit confirm card failed", slog.Any("error", err))
	}
	return "Đã hủy.", nil
}

// handleQuickReplyMenu posts the quick reply picker under the customer card.
func (s *Service) handleQuickReplyMenu(ctx context.Context, cb telegram.Callback, pageID, fbUserID, lang string) error {
	replies, err := s.catalog.ListQuickReplies(ctx)
	if err != nil {
		return fmt.Errorf("list quick replies: %w", err)
	}
	if len(replies) == 0 {
		_, err := s.messenger.SendMessage(ctx, "<i>Chưa có câu trả lời nhanh nào.</i>", cb.MessageID, nil)
		return err
	}

	kb := make(telegram.Keyboard, 0, len(replies)+1)
	for _, qr := range replies {
		kb = append(kb, []telegram.Button{{
			Text: qr.Emoji + " " + qr.TextVI,
			Data: action.Encode(action.KindSendQR, strconv.FormatInt(qr.ID, 10), pageID, fbUserID, lang),
		}})
	}
	kb = append(kb, []telegram.Button{{Text: "✖️ Đóng", Data: action.Encode(action.KindClose)}})

	menuID, err := s.messenger.SendMessage(ctx, "⚡ <b>Chọn câu trả lời nhanh:</b>", cb.MessageID, kb)
	if err != nil {
		return fmt.Errorf("send quick reply menu: %w", err)
	}
	s.copyMapping(ctx, cb.MessageID, menuID)
	return nil
}

func (s *Service) handleSendQuickReply(ctx context.Context, cb telegram.Callback, args []string) (string, error) {
	qrID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse quick reply id: %w", err)
	}
	pageID, fbUserID, lang := args[1], args[2], args[3]

	qr, err := s.catalog.QuickReply(ctx, qrID)
	if err != nil {
		return "", fmt.Errorf("load quick reply: %w", err)
	}
	text := qr.Text(lang)

	if _, err := s.deliverer.SendText(ctx, pageID, fbUserID, text); err != nil {
		return "", fmt.Errorf("deliver quick reply: %w", err)
	}

	if mapping, err := s.threads.Mapping(ctx, int64(cb.MessageID)); err == nil && mapping.CustomerID != 0 {
		if err := s.ledger.Append(ctx, ledger.Entry{
			CustomerID: mapping.CustomerID,
			Sender:     ledger.SenderOperator,
			Text:       text,
		}); err != nil {
			s.log.Warn("append quick reply to ledger failed", slog.Any("error", err))
		}
	}

	if err := s.messenger.EditText(ctx, cb.MessageID, "⚡ <b>Đã gửi:</b> "+html.EscapeString(text), nil); err != nil {
		s.log.Warn("edit quick reply menu failed", slog.Any("error", err))
	}
	s.hub.Publish(event.Event{Type: event.TypeOperatorReply, PageID: pageID, Text: text})
	return "Đã gửi cho khách.", nil
}

// handleAddLabel shows the label picker on first press and attaches the
// chosen label on the second.
func (s *Service) handleAddLabel(ctx context.Context, cb telegram.Callback, args []string) (string, error) {
	customerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse customer id: %w", err)
	}

	labels, err := s.catalog.ListLabels(ctx)
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}

	if len(args) == 1 {
		if len(labels) == 0 {
			return "Chưa có nhãn nào.", nil
		}
		kb := make(telegram.Keyboard, 0, len(labels)+1)
		for _, l := range labels {
			kb = append(kb, []telegram.Button{{
				Text: l.Emoji + " " + l.Name,
				Data: action.Encode(action.KindAddLabel, args[0], strconv.FormatInt(l.ID, 10)),
			}})
		}
		kb = append(kb, []telegram.Button{{Text: "✖️ Đóng", Data: action.Encode(action.KindClose)}})
		menuID, err := s.messenger.SendMessage(ctx, "🏷 <b>Chọn nhãn:</b>", cb.MessageID, kb)
		if err != nil {
			return "", fmt.Errorf("send label menu: %w", err)
		}
		s.copyMapping(ctx, cb.MessageID, menuID)
		return "", nil
	}

	labelID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse label id: %w", err)
	}
	for _, l := range labels {
		if l.ID == labelID {
			if err := s.catalog.AttachLabel(ctx, customerID, l.Name); err != nil {
				return "", fmt.Errorf("attach label: %w", err)
			}
			edit := fmt.Sprintf("🏷 Đã gắn nhãn %s <b>%s</b>", l.Emoji, html.EscapeString(l.Name))
			if err := s.messenger.EditText(ctx, cb.MessageID, edit, nil); err != nil {
				s.log.Warn("edit label menu failed", slog.Any("error", err))
			}
			return "Đã gắn nhãn.", nil
		}
	}
	return "Nhãn không còn tồn tại.", nil
}

var historyRanges = []struct {
	Key   string
	Label string
	Span  time.Duration
}{
	{"24h", "24 giờ", 24 * time.Hour},
	{"7d", "7 ngày", 7 * 24 * time.Hour},
	{"30d", "30 ngày", 30 * 24 * time.Hour},
	{"all", "Tất cả", 0},
}

func (s *Service) handleHistoryMenu(ctx context.Context, cb telegram.Callback, customerID string) error {
	kb := make(telegram.Keyboard, 0, 2)
	row := make([]telegram.Button, 0, len(historyRanges))
	for _, r := range historyRanges {
		row = append(row, telegram.Button{
			Text: r.Label,
			Data: action.Encode(action.KindHistoryFilter, customerID, r.Key),
		})
	}
	kb = append(kb, row)
	kb = append(kb, []telegram.Button{{Text: "✖️ Đóng", Data: action.Encode(action.KindClose)}})

	menuID, err := s.messenger.SendMessage(ctx, "📜 <b>Xem lịch sử trong khoảng:</b>", cb.MessageID, kb)
	if err != nil {
		return fmt.Errorf("send history menu: %w", err)
	}
	s.copyMapping(ctx, cb.MessageID, menuID)
	return nil
}

func (s *Service) handleHistoryFilter(ctx context.Context, cb telegram.Callback, customerArg, rangeKey string) error {
	customerID, err := strconv.ParseInt(customerArg, 10, 64)
	if err != nil {
		return fmt.Errorf("parse customer id: %w", err)
	}

	var since time.Time
	rangeLabel := rangeKey
	for _, r := range historyRanges {
		if r.Key == rangeKey {
			rangeLabel = r.Label
			if r.Span > 0 {
				since = s.now().Add(-r.Span)
			}
			break
		}
	}

	entries, err := s.ledger.ListSince(ctx, customerID, since)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	name := "#" + customerArg
	if mapping, err := s.threads.Mapping(ctx, int64(cb.MessageID)); err == nil {
		if page, ok := s.cfg.Page(mapping.PageID); ok {
			if cust, err := s.customers.Resolve(ctx, mapping.PageID, mapping.FBUserID, page.Token); err == nil {
				name = cust.Name
			}
		}
	}

	kb := telegram.Keyboard{{{Text: "✖️ Đóng", Data: action.Encode(action.KindClose)}}}
	if err := s.messenger.EditText(ctx, cb.MessageID, historyCard(name, rangeLabel, entries), kb); err != nil {
		return fmt.Errorf("render history: %w", err)
	}
	return nil
}

// handleDone freezes the card's keyboard into a handled marker.
func (s *Service) handleDone(ctx context.Context, cb telegram.Callback) (string, error) {
	kb := telegram.Keyboard{{{Text: "✅ Đã xử lý", Data: action.Encode(action.KindNoop)}}}
	if err := s.messenger.EditKeyboard(ctx, cb.MessageID, kb); err != nil {
		return "", fmt.Errorf("mark done: %w", err)
	}
	return "Đã đánh dấu xong.", nil
}

// copyMapping threads a submenu message into the same conversation as its
// parent card, so presses on the submenu can find the customer.
func (s *Service) copyMapping(ctx context.Context, parentID, childID int) {
	mapping, err := s.threads.Mapping(ctx, int64(parentID))
	if err != nil {
		return
	}
	mapping.TelegramMessageID = int64(childID)
	if err := s.threads.RecordMapping(ctx, mapping); err != nil {
		s.log.Warn("record submenu mapping failed", slog.Any("error", err))
	}
}
