package models

import "time"

type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentVoice AttachmentType = "voice"
	AttachmentAudio AttachmentType = "audio"
	AttachmentVideo AttachmentType = "video"
	AttachmentFile  AttachmentType = "file"
)

type Message struct {
	ID          string       `json:"id"`
	ChatID      string       `json:"chat_id"`
	SenderID    string       `json:"sender_id"`
	SenderName  string       `json:"sender_name"`
	Text        string       `json:"text"`
	Timestamp   time.Time    `json:"timestamp"`
	FromMe      bool         `json:"from_me"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Type       AttachmentType `json:"type"`
	URL        string         `json:"url,omitempty"`
	FileName   string         `json:"file_name,omitempty"`
	MimeType   string         `json:"mime_type,omitempty"`
	Size       int64          `json:"size,omitempty"`
	IsVoice    bool           `json:"is_voice,omitempty"`
	IsGIF      bool           `json:"is_gif,omitempty"`
	IsSticker  bool           `json:"is_sticker,omitempty"`
	Width      int            `json:"width,omitempty"`
	Height     int            `json:"height,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Preview    string         `json:"preview"`
}

type SendMessageRequest struct {
	Text             string `json:"text" validate:"required,max=10000"`
	ReplyToMessageID string `json:"reply_to_message_id"`
}

// Media is a downloaded bridge asset.
type Media struct {
	Data        []byte
	ContentType string
	FileName    string
}
