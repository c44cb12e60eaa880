package bridge

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

// networkKeywords maps a case-insensitive substring to a network. Order
// matters: the first keyword found wins.
var networkKeywords = []struct {
	keyword string
	network string
}{
	{"whatsapp", models.NetworkWhatsApp},
	{"telegram", models.NetworkTelegram},
	{"instagram", models.NetworkInstagram},
	{"messenger", models.NetworkFacebook},
	{"facebook", models.NetworkFacebook},
	{"signal", models.NetworkSignal},
	{"discord", models.NetworkDiscord},
	{"slack", models.NetworkSlack},
	{"linkedin", models.NetworkLinkedIn},
	{"twitter", models.NetworkTwitter},
	{"imessage", models.NetworkIMessage},
	{"googlemessages", models.NetworkSMS},
	{"gmessages", models.NetworkSMS},
	{"sms", models.NetworkSMS},
	{"gmail", models.NetworkEmail},
	{"email", models.NetworkEmail},
	{"matrix", models.NetworkMatrix},
}

// detectNetwork returns the network named by the first value that mentions
// a known one, or NetworkUnknown.
func detectNetwork(values ...string) string {
	for _, v := range values {
		lv := strings.ToLower(v)
		if lv == "" {
			continue
		}
		for _, k := range networkKeywords {
			if strings.Contains(lv, k.keyword) {
				return k.network
			}
		}
	}
	return models.NetworkUnknown
}

// normalizeConversation maps one chat record. index is the position in the
// overall listing and names untitled chats. ok is false when the record has
// no usable id.
func normalizeConversation(r gjson.Result, index int) (models.Conversation, bool) {
	id := firstString(r, "id", "chatID", "chat_id", "roomID", "guid")
	if id == "" {
		return models.Conversation{}, false
	}

	name := strings.TrimSpace(firstString(r, "title", "name", "displayName", "room_name"))
	if name == "" {
		name = fmt.Sprintf("Chat %d", index+1)
	}

	network := detectNetwork(
		r.Get("network").String(),
		r.Get("service").String(),
		r.Get("platform").String(),
		r.Get("accountID").String(),
		r.Get("account_id").String(),
		firstString(r, "guid", "id", "chatID"),
	)

	participants := participantCount(r)
	isGroup := strings.EqualFold(r.Get("type").String(), "group") ||
		r.Get("isGroup").Bool() ||
		r.Get("is_group").Bool() ||
		participants > 2

	unread, _ := firstInt(r, "unreadCount", "unread_count", "unread")

	return models.Conversation{
		ID:               id,
		Name:             name,
		Network:          network,
		IsGroup:          isGroup,
		ParticipantCount: participants,
		UnreadCount:      int(unread),
		LastMessage:      lastMessagePreview(r),
	}, true
}

func participantCount(r gjson.Result) int {
	if n, ok := firstInt(r, "participants.total", "participantCount", "participant_count"); ok {
		return int(n)
	}
	for _, p := range []string{"participants.items", "participants"} {
		if v := r.Get(p); v.IsArray() {
			return len(v.Array())
		}
	}
	return 0
}

func lastMessagePreview(r gjson.Result) *models.LastMessage {
	var lm gjson.Result
	for _, p := range []string{"preview", "lastMessage", "last_message"} {
		if v := r.Get(p); v.IsObject() {
			lm = v
			break
		}
	}

	if !lm.Exists() {
		text := firstString(r, "lastMessageText", "snippet")
		ts := firstTimestamp(r, "lastActivity", "last_activity", "timestamp")
		if text == "" && ts.IsZero() {
			return nil
		}
		return &models.LastMessage{Text: text, Timestamp: ts}
	}

	return &models.LastMessage{
		Text:      firstString(lm, "text", "body", "content"),
		Timestamp: firstTimestamp(lm, "timestamp", "ts", "time"),
		Sender:    firstString(lm, "senderName", "sender.displayName", "sender.name"),
		FromMe:    firstBool(lm, "isSender", "isFromMe", "fromMe", "is_from_me"),
	}
}
