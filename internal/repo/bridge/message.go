package bridge

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

// normalizeMessage maps one message record. Records that name a different
// chat are rejected; records without a chat id are attributed to chatID.
func (c *client) normalizeMessage(r gjson.Result, chatID string, index int) (models.Message, bool) {
	recordChat := firstString(r, "chatID", "chat_id", "roomID", "room_id")
	if recordChat != "" && recordChat != chatID {
		return models.Message{}, false
	}

	id := firstString(r, "id", "messageID", "eventID", "event_id")
	if id == "" {
		id = fmt.Sprintf("%s#%d", chatID, index)
	}

	senderID := firstString(r, "senderID", "sender_id", "sender.id", "sender")
	fromMe := firstBool(r, "isSender", "isFromMe", "fromMe", "is_from_me", "sender.isSelf")
	explicit := firstString(r, "senderName", "sender_name", "sender.displayName", "sender.fullName", "sender.name")

	msg := models.Message{
		ID:         id,
		ChatID:     chatID,
		SenderID:   senderID,
		SenderName: senderName(fromMe, c.selfName, explicit, senderID),
		Text:       firstString(r, "text", "body", "content"),
		Timestamp:  firstTimestamp(r, "timestamp", "ts", "time", "sortKey"),
		FromMe:     fromMe,
	}

	for _, a := range r.Get("attachments").Array() {
		msg.Attachments = append(msg.Attachments, c.normalizeAttachment(a))
	}
	if len(msg.Attachments) == 0 {
		// some bridge versions inline a single media item on the message
		if m := r.Get("media"); m.IsObject() {
			msg.Attachments = append(msg.Attachments, c.normalizeAttachment(m))
		}
	}
	return msg, true
}

// sortMessages orders a thread oldest first. Only timestamped messages move:
// they are sorted among the slots they occupy, and messages without a
// timestamp stay at their original index.
func sortMessages(msgs []models.Message) {
	slots := make([]int, 0, len(msgs))
	dated := make([]models.Message, 0, len(msgs))
	for i, m := range msgs {
		if !m.Timestamp.IsZero() {
			slots = append(slots, i)
			dated = append(dated, m)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Timestamp.Before(dated[j].Timestamp)
	})
	for k, i := range slots {
		msgs[i] = dated[k]
	}
}
