package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagebridge/pagebridge/internal/catalog"
	"github.com/pagebridge/pagebridge/internal/ledger"
	"github.com/pagebridge/pagebridge/internal/telegram"
)

func stagedReply(f *fixture, t *testing.T) string {
	t.Helper()
	r, err := f.pendings.Stage(context.Background(), "p1", "u1", "Cảm ơn bạn")
	require.NoError(t, err)
	return r.Token
}

func TestCallbackSendConfirmsAndEditsCard(t *testing.T) {
	t.Parallel()

	f := newFixture()
	token := stagedReply(f, t)
	f.threads.mappings[70] = mappingFor(70)

	f.svc.HandleCallback(context.Background(), telegram.Callback{
		ID: "cb1", Data: "send_" + token, MessageID: 70,
	})

	assert.Equal(t, []string{token}, f.pendings.confirmed,
		"the composite token is reassembled before confirming")
	require.Len(t, f.messenger.edits, 1)
	assert.Equal(t, 70, f.messenger.edits[0].MessageID)
	assert.Contains(t, f.messenger.edits[0].Text, "Đã gửi")
	assert.Equal(t, "Đã gửi cho khách.", f.messenger.acks["cb1"])
}

func TestCallbackSendConsumedTokenShowsToast(t *testing.T) {
	t.Parallel()

	f := newFixture()
	token := stagedReply(f, t)

	f.svc.HandleCallback(context.Background(), telegram.Callback{ID: "cb1", Data: "send_" + token, MessageID: 70})
	f.svc.HandleCallback(context.Background(), telegram.Callback{ID: "cb2", Data: "send_" + token, MessageID: 70})

	assert.Equal(t, []string{token}, f.pendings.confirmed, "second press confirms nothing")
	assert.Equal(t, "Tin nhắn đã được xử lý trước đó.", f.messenger.acks["cb2"])
}

func TestCallbackSendFailureAcksWithGenericToast(t *testing.T) {
	t.Parallel()

	f := newFixture()
	token := stagedReply(f, t)
	f.pendings.confirmErr = errors.New("graph api down")

	f.svc.HandleCallback(context.Background(), telegram.Callback{ID: "cb1", Data: "send_" + token, MessageID: 70})

	assert.Equal(t, genericFailureToast, f.messenger.acks["cb1"])
	assert.Empty(t, f.messenger.edits, "card untouched when delivery fails")
}

func TestCallbackCancel(t *testing.T) {
	t.Parallel()

	f := newFixture()
	token := stagedReply(f, t)

	f.svc.HandleCallback(context.Background(), telegram.Callback{ID: "cb1", Data: "cancel_" + token, MessageID: 70})

	assert.Equal(t, []string{token}, f.pendings.cancelled)
	require.Len(t, f.messenger.edits, 1)
	assert.Contains(t, f.messenger.edits[0].Text, "Đã hủy")
}

func TestCallbackQuickReplyMenu(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.catalog.quickReplies = []catalog.QuickReply{
		{ID: 7, Key: "thanks", Emoji: "🙏", TextVI: "Cảm ơn bạn!", TextEN: "Thank you!"},
	}
	f.threads.mappings[55] = mappingFor(55)

	f.svc.HandleCallback(context.Background(), telegram.Callback{
		ID: "cb1", Data: "quickreply_p1_u1_en", MessageID: 55,
	})

	menu := f.messenger.lastSent()
	assert.Equal(t, 55, menu.ReplyTo)
	require.Len(t, menu.KB, 2)
	assert.Equal(t, "sendqr_7_p1_u1_en", menu.KB[0][0].Data)
	assert.Equal(t, "close", menu.KB[1][0].Data)

	// The menu inherits the card's mapping.
	mapped, ok := f.threads.mappings[int64(menu.ID)]
	require.True(t, ok)
	assert.Equal(t, int64(7), mapped.CustomerID)
}

func TestCallbackSendQuickReplyDeliversCustomerLanguage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.catalog.quickReplies = []catalog.QuickReply{
		{ID: 7, Key: "thanks", Emoji: "🙏", TextVI: "Cảm ơn bạn!", TextEN: "Thank you!"},
	}
	f.threads.mappings[101] = mappingFor(101)

	f.svc.HandleCallback(context.Background(), telegram.Callback{
		ID: "cb1", Data: "sendqr_7_p1_u1_en", MessageID: 101,
	})

	assert.Equal(t, []string{"Thank you!"}, f.deliverer.sent)
	require.Len(t, f.ledger.entries, 1)
	assert.Equal(t, ledger.SenderOperator, f.ledger.entries[0].Sender)
	assert.Equal(t, int64(7), f.ledger.entries[0].CustomerID)
	require.Len(t, f.messenger.edits, 1)
	assert.Contains(t, f.messenger.edits[0].Text, "Thank you!")
}

func TestCallbackAddLabelMenuThenAttach(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.catalog.labels = []catalog.Label{
		{ID: 3, Name: "Khách VIP", Emoji: "⭐"},
		{ID: 4, Name: "Chờ thanh toán", Emoji: "💰"},
	}
	f.threads.mappings[55] = mappingFor(55)

	f.svc.HandleCallback(context.Background(), telegram.Callback{
		ID: "cb1", Data: "addlabel_7", MessageID: 55,
	})
	menu := f.messenger.lastSent()
	assert.Equal(t, "addlabel_7_3", menu.KB[0][0].Data)

	f.svc.HandleCallback(context.Background(), telegram.Callback{
		ID: "cb2", Data: "addlabel_7_4", MessageID: menu.ID,
	})
	assert.Equal(t, []string{"Chờ thanh toán"}, f.catalog.attached)
	assert.Equal(t, "Đã gắn nhãn.", f.messenger.acks["cb2"])
}

func TestCallbackHistoryFlow(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.threads.mappings[55] = mappingFor(55)
	require.NoError(t, f.ledger.Append(context.Background(), ledger.Entry{
		CustomerID: 7, Sender: ledger.SenderCustomer, Text: "first contact",
	}))

	f.svc.HandleCallback(context.Background(), telegram.Callback{
		ID: "cb1", Data: "history_7", MessageID: 55,
	})
	menu := f.messenger.lastSent()
	assert.Equal(t, "historyfilter_7_24h", menu.KB[0][0].Data)
	assert.Equal(t, "historyfilter_7_all", menu.KB[0][3].Data)

	f.svc.HandleCallback(context.Background(), telegram.Callback{
		ID: "cb2", Data: "historyfilter_7_all", MessageID: menu.ID,
	})
	require.Len(t, f.messenger.edits, 1)
	assert.Contains(t, f.messenger.edits[0].Text, "Lịch sử")
	assert.Contains(t, f.messenger.edits[0].Text, "first contact")
}

func TestCallbackHistoryFilterCutoffs(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 4, 5, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		key  string
		want time.Time
	}{
		{"24h", fixed.Add(-24 * time.Hour)},
		{"7d", fixed.Add(-7 * 24 * time.Hour)},
		{"30d", fixed.Add(-30 * 24 * time.Hour)},
		{"all", time.Time{}},
	}
	for _, tc := range cases {
		f := newFixture()
		f.svc.now = func() time.Time { return fixed }
		f.threads.mappings[55] = mappingFor(55)

		f.svc.HandleCallback(context.Background(), telegram.Callback{
			ID: "cb1", Data: "historyfilter_7_" + tc.key, MessageID: 55,
		})
		assert.Equal(t, tc.want, f.ledger.lastSince, "range %s", tc.key)
	}
}

func TestCallbackDoneFreezesKeyboard(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.svc.HandleCallback(context.Background(), telegram.Callback{ID: "cb1", Data: "done", MessageID: 55})

	require.Len(t, f.messenger.kbEdits, 1)
	assert.Equal(t, 55, f.messenger.kbEdits[0].MessageID)
	assert.Equal(t, "noop", f.messenger.kbEdits[0].KB[0][0].Data)
}

func TestCallbackCloseDeletesMessage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.svc.HandleCallback(context.Background(), telegram.Callback{ID: "cb1", Data: "close", MessageID: 88})
	assert.Equal(t, []int{88}, f.messenger.deleted)
}

func TestCallbackUnknownKindOnlyAcks(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.svc.HandleCallback(context.Background(), telegram.Callback{ID: "cb1", Data: "frobnicate_x", MessageID: 55})

	assert.Empty(t, f.messenger.sent)
	assert.Empty(t, f.messenger.edits)
	assert.Empty(t, f.messenger.deleted)
	_, acked := f.messenger.acks["cb1"]
	assert.True(t, acked, "every press is answered exactly once")
}
