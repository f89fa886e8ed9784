// Package relay correlates customer messages from Facebook fanpages with
// operator activity in the Telegram group, in both directions.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pagebridge/pagebridge/internal/action"
	"github.com/pagebridge/pagebridge/internal/catalog"
	"github.com/pagebridge/pagebridge/internal/config"
	"github.com/pagebridge/pagebridge/internal/customer"
	"github.com/pagebridge/pagebridge/internal/event"
	"github.com/pagebridge/pagebridge/internal/ledger"
	"github.com/pagebridge/pagebridge/internal/pending"
	"github.com/pagebridge/pagebridge/internal/telegram"
	"github.com/pagebridge/pagebridge/internal/thread"
	"github.com/pagebridge/pagebridge/internal/translate"
)

// InboundMessage is one customer message received from a fanpage webhook.
type InboundMessage struct {
	PageID    string
	SenderID  string
	Text      string
	MediaKind string
	MediaRef  string
	At        time.Time
}

// Messenger posts and edits messages in the operator group.
type Messenger interface {
	SendMessage(ctx context.Context, text string, replyTo int, kb telegram.Keyboard) (int, error)
	EditText(ctx context.Context, messageID int, text string, kb telegram.Keyboard) error
	EditKeyboard(ctx context.Context, messageID int, kb telegram.Keyboard) error
	DeleteMessage(ctx context.Context, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Customers resolves durable customer identities.
type Customers interface {
	Resolve(ctx context.Context, pageID, fbUserID, pageToken string) (customer.Customer, error)
	Fallback(pageID, fbUserID string) customer.Customer
}

// Translators translates relay traffic toward the operators.
type Translators interface {
	ToOperator(ctx context.Context, text string) translate.Translation
}

// Threads owns anchor freshness and message-to-customer mappings.
type Threads interface {
	FindActiveAnchor(ctx context.Context, customerID int64, pageID string) (int64, time.Duration, bool, error)
	RecordAnchor(ctx context.Context, customerID int64, pageID string, messageID int64) error
	RecordMapping(ctx context.Context, m thread.Mapping) error
	Mapping(ctx context.Context, telegramMessageID int64) (thread.Mapping, error)
}

// Pendings stages and resolves replies awaiting confirmation.
type Pendings interface {
	Stage(ctx context.Context, pageID, fbUserID, text string) (pending.Reply, error)
	Confirm(ctx context.Context, token string, customerID int64) (pending.Reply, error)
	Cancel(ctx context.Context, token string) error
}

// Catalog serves labels and quick replies.
type Catalog interface {
	ListLabels(ctx context.Context) ([]catalog.Label, error)
	CustomerLabels(ctx context.Context, customerID int64) []catalog.Label
	AttachLabel(ctx context.Context, customerID int64, labelName string) error
	ListQuickReplies(ctx context.Context) ([]catalog.QuickReply, error)
	QuickReply(ctx context.Context, id int64) (catalog.QuickReply, error)
}

// Ledger records and lists relayed messages.
type Ledger interface {
	Append(ctx context.Context, e ledger.Entry) error
	ListSince(ctx context.Context, customerID int64, since time.Time) ([]ledger.Entry, error)
}

// Deliverer sends text to a customer over the fanpage channel.
type Deliverer interface {
	SendText(ctx context.Context, pageID, fbUserID, text string) (string, error)
}

// Service is the correlation core tying all relay concerns together.
type Service struct {
	log        *slog.Logger
	cfg        config.Config
	messenger  Messenger
	customers  Customers
	translator Translators
	threads    Threads
	pendings   Pendings
	catalog    Catalog
	ledger     Ledger
	deliverer  Deliverer
	hub        *event.Hub
	now        func() time.Time
}

func NewService(
	log *slog.Logger,
	cfg config.Config,
	messenger Messenger,
	customers Customers,
	translator Translators,
	threads Threads,
	pendings Pendings,
	cat Catalog,
	ledgerSvc Ledger,
	deliverer Deliverer,
	hub *event.Hub,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		log:        log.With(slog.String("service", "relay")),
		cfg:        cfg,
		messenger:  messenger,
		customers:  customers,
		translator: translator,
		threads:    threads,
		pendings:   pendings,
		catalog:    cat,
		ledger:     ledgerSvc,
		deliverer:  deliverer,
		hub:        hub,
		now:        time.Now,
	}
}

// HandleInbound relays one customer message into the operator group.
func (s *Service) HandleInbound(ctx context.Context, msg InboundMessage) error {
	page, ok := s.cfg.Page(msg.PageID)
	if !ok {
		s.log.Warn("message from unconfigured page dropped", slog.String("page_id", msg.PageID))
		return nil
	}

	cust, err := s.customers.Resolve(ctx, msg.PageID, msg.SenderID, page.Token)
	if err != nil {
		// Identity storage being down must not stop the relay. A synthetic
		// customer keeps the message flowing, without history or labels.
		s.log.Error("resolve customer failed, using fallback", slog.Any("error", err))
		cust = s.customers.Fallback(msg.PageID, msg.SenderID)
	}

	var labels []catalog.Label
	if cust.ID != 0 {
		labels = s.catalog.CustomerLabels(ctx, cust.ID)
	}

	tr := s.translator.ToOperator(ctx, msg.Text)

	var replyTo int
	var threadAge time.Duration
	if cust.ID != 0 {
		anchorID, age, active, err := s.threads.FindActiveAnchor(ctx, cust.ID, msg.PageID)
		if err != nil {
			s.log.Error("find anchor failed, starting new thread", slog.Any("error", err))
		} else if active {
			replyTo = int(anchorID)
			threadAge = age
		}
	}

	pageName := page.Name
	if pageName == "" {
		pageName = page.ID
	}
	text := customerCard(pageName, cust, labels, msg, tr, threadAge)
	kb := s.customerKeyboard(cust, msg.PageID, msg.SenderID, tr.SourceLang)

	messageID, err := s.messenger.SendMessage(ctx, text, replyTo, kb)
	if err != nil && replyTo > 0 {
		// The anchor may have been deleted in the group. Retry unthreaded.
		s.log.Warn("threaded send failed, retrying without reply", slog.Any("error", err))
		replyTo = 0
		messageID, err = s.messenger.SendMessage(ctx, text, 0, kb)
	}
	if err != nil {
		return fmt.Errorf("relay to operator group: %w", err)
	}

	if cust.ID != 0 && replyTo == 0 {
		if err := s.threads.RecordAnchor(ctx, cust.ID, msg.PageID, int64(messageID)); err != nil {
			s.log.Error("record anchor failed", slog.Any("error", err))
		}
	}

	// Mapping is recorded only after the group message exists, so a stored
	// mapping always points at a real message.
	if err := s.threads.RecordMapping(ctx, thread.Mapping{
		TelegramMessageID: int64(messageID),
		PageID:            msg.PageID,
		FBUserID:          msg.SenderID,
		CustomerID:        cust.ID,
		Language:          tr.SourceLang,
	}); err != nil {
		s.log.Error("record mapping failed", slog.Any("error", err))
	}

	if cust.ID != 0 {
		if err := s.ledger.Append(ctx, ledger.Entry{
			CustomerID:     cust.ID,
			Sender:         ledger.SenderCustomer,
			Text:           msg.Text,
			MediaKind:      msg.MediaKind,
			MediaRef:       msg.MediaRef,
			TranslatedText: tr.Text,
			CreatedAt:      msg.At,
		}); err != nil {
			s.log.Error("append ledger entry failed", slog.Any("error", err))
		}
	}

	s.hub.Publish(event.Event{
		Type:         event.TypeCustomerMessage,
		PageID:       msg.PageID,
		PageName:     pageName,
		CustomerName: cust.Name,
		Text:         tr.Text,
		Language:     tr.SourceLang,
		At:           msg.At,
	})
	return nil
}

// HandleOperatorReply stages an operator's group reply for confirmation.
func (s *Service) HandleOperatorReply(ctx context.Context, reply telegram.GroupReply) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mapping, err := s.threads.Mapping(ctx, int64(reply.RepliedToMessageID))
	if err != nil {
		s.log.Warn("operator replied to unmapped message",
			slog.Int("message_id", reply.RepliedToMessageID), slog.Any("error", err))
		if _, err := s.messenger.SendMessage(ctx, contextLostNotice, reply.MessageID, nil); err != nil {
			s.log.Error("send context notice failed", slog.Any("error", err))
		}
		return
	}

	staged, err := s.pendings.Stage(ctx, mapping.PageID, mapping.FBUserID, reply.Text)
	if err != nil {
		s.log.Error("stage reply failed", slog.Any("error", err))
		return
	}

	kb := telegram.Keyboard{{
		{Text: "✅ Gửi", Data: action.Encode(action.KindSend, staged.Token)},
		{Text: "❌ Hủy", Data: action.Encode(action.KindCancel, staged.Token)},
	}}
	confirmID, err := s.messenger.SendMessage(ctx, confirmCard(reply.Operator, staged.OriginalText, staged.TranslatedText), reply.MessageID, kb)
	if err != nil {
		s.log.Error("send confirm card failed", slog.Any("error", err))
		return
	}

	// The confirm card joins the same conversation so button presses on it
	// can find the customer again.
	if err := s.threads.RecordMapping(ctx, thread.Mapping{
		TelegramMessageID: int64(confirmID),
		PageID:            mapping.PageID,
		FBUserID:          mapping.FBUserID,
		CustomerID:        mapping.CustomerID,
		Language:          mapping.Language,
	}); err != nil {
		s.log.Error("record confirm mapping failed", slog.Any("error", err))
	}
}

func (s *Service) customerKeyboard(cust customer.Customer, pageID, fbUserID, lang string) telegram.Keyboard {
	if cust.ID == 0 {
		return nil
	}
	id := strconv.FormatInt(cust.ID, 10)
	return telegram.Keyboard{
		{
			{Text: "⚡ Trả lời nhanh", Data: action.Encode(action.KindQuickReply, pageID, fbUserID, lang)},
			{Text: "🏷 Gắn nhãn", Data: action.Encode(action.KindAddLabel, id)},
		},
		{
			{Text: "📜 Lịch sử", Data: action.Encode(action.KindHistory, id)},
			{Text: "✅ Xong", Data: action.Encode(action.KindDone)},
		},
	}
}
