package relay

import (
	"context"
	"errors"
	"sync"
	"time"

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

type sentMessage struct {
	Text    string
	ReplyTo int
	KB      telegram.Keyboard
	ID      int
}

type editedMessage struct {
	MessageID int
	Text      string
	KB        telegram.Keyboard
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	edits   []editedMessage
	kbEdits []editedMessage
	deleted []int
	acks    map[string]string
	sendErr error
	// failThreaded rejects sends with a reply-to, exercising the retry.
	failThreaded bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 100, acks: map[string]string{}}
}

func (f *fakeMessenger) SendMessage(_ context.Context, text string, replyTo int, kb telegram.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	if f.failThreaded && replyTo > 0 {
		return 0, errors.New("replied-to message not found")
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{Text: text, ReplyTo: replyTo, KB: kb, ID: f.nextID})
	return f.nextID, nil
}

func (f *fakeMessenger) EditText(_ context.Context, messageID int, text string, kb telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{MessageID: messageID, Text: text, KB: kb})
	return nil
}

func (f *fakeMessenger) EditKeyboard(_ context.Context, messageID int, kb telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kbEdits = append(f.kbEdits, editedMessage{MessageID: messageID, KB: kb})
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks[callbackID] = text
	return nil
}

func (f *fakeMessenger) lastSent() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeCustomers struct {
	customers  map[string]customer.Customer
	resolveErr error
}

func (f *fakeCustomers) Resolve(_ context.Context, pageID, fbUserID, _ string) (customer.Customer, error) {
	if f.resolveErr != nil {
		return customer.Customer{}, f.resolveErr
	}
	if c, ok := f.customers[pageID+"/"+fbUserID]; ok {
		return c, nil
	}
	return customer.Customer{ID: 1, PageID: pageID, FBUserID: fbUserID, Name: "Khách"}, nil
}

func (f *fakeCustomers) Fallback(pageID, fbUserID string) customer.Customer {
	return customer.Customer{
		PageID:    pageID,
		FBUserID:  fbUserID,
		Name:      customer.PlaceholderName(fbUserID),
		Synthetic: true,
	}
}

type fakeTranslator struct{}

func (fakeTranslator) ToOperator(_ context.Context, text string) translate.Translation {
	return translate.Translation{Text: "vi:" + text, SourceLang: translate.LangEnglish, Translated: true}
}

type fakeThreads struct {
	mu       sync.Mutex
	anchorID int64
	age      time.Duration
	active   bool
	findErr  error
	anchors  []int64
	mappings map[int64]thread.Mapping
}

func newFakeThreads() *fakeThreads {
	return &fakeThreads{mappings: map[int64]thread.Mapping{}}
}

func (f *fakeThreads) FindActiveAnchor(_ context.Context, _ int64, _ string) (int64, time.Duration, bool, error) {
	return f.anchorID, f.age, f.active, f.findErr
}

func (f *fakeThreads) RecordAnchor(_ context.Context, _ int64, _ string, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anchors = append(f.anchors, messageID)
	return nil
}

func (f *fakeThreads) RecordMapping(_ context.Context, m thread.Mapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mappings[m.TelegramMessageID] = m
	return nil
}

func (f *fakeThreads) Mapping(_ context.Context, telegramMessageID int64) (thread.Mapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.mappings[telegramMessageID]; ok {
		return m, nil
	}
	return thread.Mapping{}, thread.ErrMappingNotFound
}

type fakePendings struct {
	staged     []pending.Reply
	stageErr   error
	confirmErr error
	confirmed  []string
	cancelled  []string
	replies    map[string]pending.Reply
}

func newFakePendings() *fakePendings {
	return &fakePendings{replies: map[string]pending.Reply{}}
}

func (f *fakePendings) Stage(_ context.Context, pageID, fbUserID, text string) (pending.Reply, error) {
	if f.stageErr != nil {
		return pending.Reply{}, f.stageErr
	}
	r := pending.Reply{
		Token:          "1712345678000_" + fbUserID,
		PageID:         pageID,
		FBUserID:       fbUserID,
		OriginalText:   text,
		TranslatedText: "en:" + text,
	}
	f.staged = append(f.staged, r)
	f.replies[r.Token] = r
	return r, nil
}

func (f *fakePendings) Confirm(_ context.Context, token string, _ int64) (pending.Reply, error) {
	if f.confirmErr != nil {
		return pending.Reply{}, f.confirmErr
	}
	r, ok := f.replies[token]
	if !ok {
		return pending.Reply{}, pending.ErrNotFound
	}
	delete(f.replies, token)
	f.confirmed = append(f.confirmed, token)
	return r, nil
}

func (f *fakePendings) Cancel(_ context.Context, token string) error {
	delete(f.replies, token)
	f.cancelled = append(f.cancelled, token)
	return nil
}

type fakeCatalog struct {
	labels       []catalog.Label
	quickReplies []catalog.QuickReply
	attached     []string
}

func (f *fakeCatalog) ListLabels(_ context.Context) ([]catalog.Label, error) {
	return f.labels, nil
}

func (f *fakeCatalog) CustomerLabels(_ context.Context, _ int64) []catalog.Label {
	return f.labels
}

func (f *fakeCatalog) AttachLabel(_ context.Context, _ int64, labelName string) error {
	f.attached = append(f.attached, labelName)
	return nil
}

func (f *fakeCatalog) ListQuickReplies(_ context.Context) ([]catalog.QuickReply, error) {
	return f.quickReplies, nil
}

func (f *fakeCatalog) QuickReply(_ context.Context, id int64) (catalog.QuickReply, error) {
	for _, qr := range f.quickReplies {
		if qr.ID == id {
			return qr, nil
		}
	}
	return catalog.QuickReply{}, catalog.ErrNotFound
}

type fakeLedger struct {
	mu        sync.Mutex
	entries   []ledger.Entry
	lastSince time.Time
}

func (f *fakeLedger) Append(_ context.Context, e ledger.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLedger) ListSince(_ context.Context, customerID int64, since time.Time) ([]ledger.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSince = since
	var out []ledger.Entry
	for _, e := range f.entries {
		if e.CustomerID == customerID && (since.IsZero() || !e.CreatedAt.Before(since)) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeDeliverer struct {
	sent []string
	err  error
}

func (f *fakeDeliverer) SendText(_ context.Context, _, _, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, text)
	return "m.1", nil
}

func mappingFor(id int64) thread.Mapping {
	return thread.Mapping{
		TelegramMessageID: id,
		PageID:            "p1",
		FBUserID:          "u1",
		CustomerID:        7,
		Language:          translate.LangEnglish,
	}
}

type fixture struct {
	svc       *Service
	messenger *fakeMessenger
	customers *fakeCustomers
	threads   *fakeThreads
	pendings  *fakePendings
	catalog   *fakeCatalog
	ledger    *fakeLedger
	deliverer *fakeDeliverer
	hub       *event.Hub
}

func newFixture() *fixture {
	f := &fixture{
		messenger: newFakeMessenger(),
		customers: &fakeCustomers{customers: map[string]customer.Customer{}},
		threads:   newFakeThreads(),
		pendings:  newFakePendings(),
		catalog:   &fakeCatalog{},
		ledger:    &fakeLedger{},
		deliverer: &fakeDeliverer{},
		hub:       event.NewHub(nil),
	}
	cfg := config.Config{
		Pages: []config.PageConfig{
			{ID: "p1", Name: "Shop One", Token: "tok-one"},
		},
	}
	f.svc = NewService(nil, cfg, f.messenger, f.customers, fakeTranslator{}, f.threads,
		f.pendings, f.catalog, f.ledger, f.deliverer, f.hub)
	return f
}
