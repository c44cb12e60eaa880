package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Unix(1700000000, 0).UTC()

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"seconds", `1700000000`, want},
		{"milliseconds", `1700000000000`, want},
		{"microseconds", `1700000000000000`, want},
		{"fractional seconds", `1700000000.5`, want.Add(500 * time.Millisecond)},
		{"numeric string", `"1700000000"`, want},
		{"rfc3339", `"2023-11-14T22:13:20Z"`, want},
		{"empty string", `""`, time.Time{}},
		{"garbage", `"yesterday"`, time.Time{}},
		{"null", `null`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTimestamp(gjson.Parse(tt.raw))
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestExtractRecords_EquivalentShapes(t *testing.T) {
	payloads := map[string]string{
		"array":         `[{"id":"a"},{"id":"b"}]`,
		"items":         `{"items":[{"id":"a"},{"id":"b"}]}`,
		"chats":         `{"chats":[{"id":"a"},{"id":"b"}]}`,
		"rooms":         `{"rooms":[{"id":"a"},{"id":"b"}]}`,
		"conversations": `{"conversations":[{"id":"a"},{"id":"b"}]}`,
		"content.chats": `{"content":{"chats":[{"id":"a"},{"id":"b"}]}}`,
	}
	for shape, raw := range payloads {
		t.Run(shape, func(t *testing.T) {
			records, matched := extractRecords(gjson.Parse(raw))
			assert.Len(t, records, 2)
			assert.Equal(t, shape, matched)
		})
	}

	records, matched := extractRecords(gjson.Parse(`{"unexpected":{"x":1}}`))
	assert.Empty(t, records)
	assert.Empty(t, matched)
}

func TestParsePage_Cursor(t *testing.T) {
	p := parsePage(gjson.Parse(`{"items":[{"id":"a"}],"hasMore":true,"oldestCursor":"c-1"}`))
	assert.True(t, p.hasMore)
	assert.Equal(t, "c-1", p.cursor)

	p = parsePage(gjson.Parse(`[{"id":"a"}]`))
	assert.False(t, p.hasMore)
	assert.Empty(t, p.cursor)
}

func TestDetectNetwork(t *testing.T) {
	tests := []struct {
		values []string
		want   string
	}{
		{[]string{"WhatsApp"}, models.NetworkWhatsApp},
		{[]string{"", "telegramgo"}, models.NetworkTelegram},
		{[]string{"facebookgo"}, models.NetworkFacebook},
		{[]string{"Messenger"}, models.NetworkFacebook},
		{[]string{"local-instagram"}, models.NetworkInstagram},
		{[]string{"!abc:beeper.local"}, models.NetworkUnknown},
		{nil, models.NetworkUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectNetwork(tt.values...), "%v", tt.values)
	}
}

func TestNormalizeConversation(t *testing.T) {
	raw := `{
		"id": "!abc:beeper.local",
		"title": "Mario Rossi",
		"accountID": "whatsapp",
		"type": "single",
		"participants": {"items": [{"id": "a"}, {"id": "b"}], "total": 2},
		"unreadCount": 3,
		"preview": {"text": "Ciao", "timestamp": "2024-05-01T10:00:00Z", "senderName": "Mario", "isSender": false}
	}`
	conv, ok := normalizeConversation(gjson.Parse(raw), 0)
	require.True(t, ok)
	assert.Equal(t, "!abc:beeper.local", conv.ID)
	assert.Equal(t, "Mario Rossi", conv.Name)
	assert.Equal(t, models.NetworkWhatsApp, conv.Network)
	assert.False(t, conv.IsGroup)
	assert.Equal(t, 2, conv.ParticipantCount)
	assert.Equal(t, 3, conv.UnreadCount)
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, "Ciao", conv.LastMessage.Text)
	assert.Equal(t, "Mario", conv.LastMessage.Sender)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), conv.LastMessage.Timestamp)
}

func TestNormalizeConversation_Fallbacks(t *testing.T) {
	conv, ok := normalizeConversation(gjson.Parse(`{"chatID":"room-7","participants":["a","b","c"]}`), 6)
	require.True(t, ok)
	assert.Equal(t, "room-7", conv.ID)
	assert.Equal(t, "Chat 7", conv.Name)
	assert.True(t, conv.IsGroup)
	assert.Equal(t, models.NetworkUnknown, conv.Network)
	assert.Nil(t, conv.LastMessage)

	conv, ok = normalizeConversation(gjson.Parse(`{"name":"  ","displayName":"Shop","guid":"telegram_@shop"}`), 0)
	require.True(t, ok)
	assert.Equal(t, "Shop", conv.Name)
	assert.Equal(t, models.NetworkTelegram, conv.Network)

	_, ok = normalizeConversation(gjson.Parse(`{"title":"no id"}`), 0)
	assert.False(t, ok)
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"393401234567", "+39 340 123 4567", true},
		{"+393401234567", "+39 340 123 4567", true},
		{"14155550123", "+1 415 555 0123", true},
		{"123456789", "", false},
		{"39340abc4567", "", false},
	}
	for _, tt := range tests {
		got, ok := formatPhone(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		name     string
		fromMe   bool
		explicit string
		senderID string
		want     string
	}{
		{"from me wins", true, "Someone", "@whatsapp_393401234567:beeper.local", "Me"},
		{"explicit name", false, "Lucia Bianchi", "@telegram_12:beeper.local", "Lucia Bianchi"},
		{"phone from id", false, "", "@whatsapp_393401234567:beeper.local", "+39 340 123 4567"},
		{"explicit equal to id is ignored", false, "@whatsapp_393401234567:beeper.local", "@whatsapp_393401234567:beeper.local", "+39 340 123 4567"},
		{"handle from id", false, "", "@instagram_techgamer:beeper.local", "techgamer"},
		{"plain matrix user", false, "", "@alice:matrix.org", "alice"},
		{"nothing", false, "", "", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, senderName(tt.fromMe, "Me", tt.explicit, tt.senderID))
		})
	}
}

func TestNormalizeAttachment(t *testing.T) {
	c := &client{baseHost: "localhost:23373"}

	tests := []struct {
		name        string
		raw         string
		wantType    models.AttachmentType
		wantPreview string
		wantURL     string
	}{
		{
			name:        "voice note",
			raw:         `{"type":"audio","isVoiceNote":true,"duration":15,"srcURL":"mxc://beeper.local/v1"}`,
			wantType:    models.AttachmentVoice,
			wantPreview: "🎤 Voice message (0:15)",
			wantURL:     "/api/v1/media?url=mxc%3A%2F%2Fbeeper.local%2Fv1",
		},
		{
			name:        "audio",
			raw:         `{"mimeType":"audio/mpeg","durationMs":125000}`,
			wantType:    models.AttachmentAudio,
			wantPreview: "🎵 Audio (2:05)",
		},
		{
			name:        "photo on public host",
			raw:         `{"type":"img","srcURL":"https://cdn.example.com/a.jpg","size":{"width":640,"height":480}}`,
			wantType:    models.AttachmentImage,
			wantPreview: "📷 Photo",
			wantURL:     "https://cdn.example.com/a.jpg",
		},
		{
			name:        "gif",
			raw:         `{"type":"img","isGif":true}`,
			wantType:    models.AttachmentImage,
			wantPreview: "🎞️ GIF",
		},
		{
			name:        "video on bridge host",
			raw:         `{"type":"video","srcURL":"http://localhost:23373/assets/x.mp4"}`,
			wantType:    models.AttachmentVideo,
			wantPreview: "🎬 Video",
			wantURL:     "/api/v1/media?url=http%3A%2F%2Flocalhost%3A23373%2Fassets%2Fx.mp4",
		},
		{
			name:        "file",
			raw:         `{"type":"unknown","fileName":"fattura.pdf","fileSize":2048}`,
			wantType:    models.AttachmentFile,
			wantPreview: "📎 fattura.pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := c.normalizeAttachment(gjson.Parse(tt.raw))
			assert.Equal(t, tt.wantType, a.Type)
			assert.Equal(t, tt.wantPreview, a.Preview)
			assert.Equal(t, tt.wantURL, a.URL)
		})
	}
}

func TestMediaContentType(t *testing.T) {
	ogg := append([]byte("OggS"), make([]byte, 60)...)
	assert.Equal(t, "audio/ogg", mediaContentType("", ogg))
	assert.Equal(t, "audio/ogg", mediaContentType("application/octet-stream", ogg))
	assert.Equal(t, "image/png", mediaContentType("image/png; charset=binary", nil))
}

func TestSortMessages(t *testing.T) {
	at := func(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
	ids := func(msgs []models.Message) []string {
		out := make([]string, len(msgs))
		for i, m := range msgs {
			out[i] = m.ID
		}
		return out
	}

	t.Run("newest first with an undated message", func(t *testing.T) {
		msgs := []models.Message{
			{ID: "c", Timestamp: at(300)},
			{ID: "undated"},
			{ID: "a", Timestamp: at(100)},
		}
		sortMessages(msgs)
		assert.Equal(t, []string{"a", "undated", "c"}, ids(msgs))
	})

	t.Run("equal times keep input order", func(t *testing.T) {
		msgs := []models.Message{
			{ID: "d", Timestamp: at(400)},
			{ID: "b1", Timestamp: at(200)},
			{ID: "b2", Timestamp: at(200)},
			{ID: "undated"},
			{ID: "a", Timestamp: at(100)},
		}
		sortMessages(msgs)
		assert.Equal(t, []string{"a", "b1", "b2", "undated", "d"}, ids(msgs))
	})
}
