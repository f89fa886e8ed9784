package relay

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pagebridge/pagebridge/internal/catalog"
	"github.com/pagebridge/pagebridge/internal/customer"
	"github.com/pagebridge/pagebridge/internal/ledger"
	"github.com/pagebridge/pagebridge/internal/translate"
)

// historyBudget bounds the rendered history body so the card stays well
// under the Telegram message limit after HTML markup is added.
const historyBudget = 3500

var languageNames = map[string]string{
	translate.LangVietnamese: "Tiếng Việt",
	translate.LangEnglish:    "English",
	translate.LangChinese:    "中文",
	translate.LangJapanese:   "日本語",
	translate.LangKorean:     "한국어",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// customerCard renders the operator-group message for one inbound customer
// message.
func customerCard(pageName string, cust customer.Customer, labels []catalog.Label, msg InboundMessage, tr translate.Translation, threadAge time.Duration) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📄 <b>%s</b>\n", html.EscapeString(pageName))
	fmt.Fprintf(&b, "👤 <b>%s</b> <code>#%s</code>\n", html.EscapeString(cust.Name), customer.TailID(cust.FBUserID))
	if len(labels) > 0 {
		tags := make([]string, 0, len(labels))
		for _, l := range labels {
			tags = append(tags, l.Emoji+" "+html.EscapeString(l.Name))
		}
		b.WriteString(strings.Join(tags, " · "))
		b.WriteString("\n")
	}
	if threadAge > 0 {
		fmt.Fprintf(&b, "🧵 Trong hội thoại (%s trước)\n", formatAge(threadAge))
	}
	b.WriteString("\n")

	if msg.MediaKind != "" {
		fmt.Fprintf(&b, "%s <i>[%s]</i>\n", mediaEmoji(msg.MediaKind), msg.MediaKind)
	}
	if msg.Text != "" {
		if tr.Translated {
			fmt.Fprintf(&b, "💬 %s\n", html.EscapeString(tr.Text))
			fmt.Fprintf(&b, "<i>(%s: %s)</i>\n", languageName(tr.SourceLang), html.EscapeString(msg.Text))
		} else {
			fmt.Fprintf(&b, "💬 %s\n", html.EscapeString(msg.Text))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// confirmCard renders the translate-then-confirm preview for a staged reply.
func confirmCard(operator, original, translated string) string {
	var b strings.Builder
	b.WriteString("📝 <b>Xác nhận gửi?</b>\n")
	if operator != "" {
		fmt.Fprintf(&b, "👤 %s\n", html.EscapeString(operator))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "💬 %s\n", html.EscapeString(original))
	if translated != original {
		fmt.Fprintf(&b, "🌐 <i>%s</i>", html.EscapeString(translated))
	}
	return strings.TrimRight(b.String(), "\n")
}

// sentCard replaces the confirm card once the reply has been delivered.
func sentCard(translated string) string {
	return fmt.Sprintf("✅ <b>Đã gửi</b>\n\n🌐 %s", html.EscapeString(translated))
}

// cancelledCard replaces the confirm card when the operator cancels.
func cancelledCard() string {
	return "🚫 <b>Đã hủy</b>"
}

// historyCard renders a customer's message history, eliding the oldest
// entries when the body would exceed the budget.
func historyCard(customerName, rangeLabel string, entries []ledger.Entry) string {
	header := fmt.Sprintf("📜 <b>Lịch sử: %s</b> (%s)\n\n", html.EscapeString(customerName), rangeLabel)
	if len(entries) == 0 {
		return header + "<i>Không có tin nhắn nào.</i>"
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, historyLine(e))
	}

	// Keep the newest lines; drop from the front until the body fits.
	omitted := 0
	body := strings.Join(lines, "\n")
	for len(body) > historyBudget && omitted < len(lines)-1 {
		omitted++
		body = strings.Join(lines[omitted:], "\n")
	}
	if omitted > 0 {
		body = fmt.Sprintf("<i>… %d tin nhắn cũ hơn đã được lược bỏ</i>\n", omitted) + body
	}
	return header + body
}

func historyLine(e ledger.Entry) string {
	who := "👤"
	if e.Sender == ledger.SenderOperator {
		who = "🧑‍💼"
	}
	text := e.Text
	if text == "" && e.MediaKind != "" {
		text = "[" + e.MediaKind + "]"
	}
	return fmt.Sprintf("%s <code>%s</code> %s", who, e.CreatedAt.Format("02/01 15:04"), html.EscapeString(text))
}

// contextLostNotice is posted when an operator replies to a message that has
// no recorded customer mapping.
const contextLostNotice = "⚠️ Không tìm thấy hội thoại khách hàng cho tin nhắn này. Hãy trả lời trực tiếp vào thẻ tin nhắn của khách."

func mediaEmoji(kind string) string {
	switch kind {
	case "image":
		return "🖼"
	case "video":
		return "🎬"
	case "audio":
		return "🎤"
	case "file":
		return "📎"
	default:
		return "📦"
	}
}

func formatAge(age time.Duration) string {
	if age < time.Minute {
		return "vài giây"
	}
	if age < time.Hour {
		return fmt.Sprintf("%d phút", int(age.Minutes()))
	}
	return fmt.Sprintf("%dh", int(age.Hours()))
}
