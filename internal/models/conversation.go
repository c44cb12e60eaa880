package models

import "time"

// Networks the bridge is known to aggregate. Anything else is NetworkUnknown.
const (
	NetworkWhatsApp  = "whatsapp"
	NetworkTelegram  = "telegram"
	NetworkInstagram = "instagram"
	NetworkFacebook  = "facebook"
	NetworkSignal    = "signal"
	NetworkDiscord   = "discord"
	NetworkSlack     = "slack"
	NetworkLinkedIn  = "linkedin"
	NetworkTwitter   = "twitter"
	NetworkIMessage  = "imessage"
	NetworkSMS       = "sms"
	NetworkEmail     = "email"
	NetworkMatrix    = "matrix"
	NetworkUnknown   = "unknown"
)

// Conversation is a chat thread as normalized from the bridge.
type Conversation struct {
	ID               string       `json:"id" yaml:"id"`
	Name             string       `json:"name" yaml:"name"`
	Network          string       `json:"network" yaml:"network"`
	IsGroup          bool         `json:"is_group" yaml:"is_group"`
	ParticipantCount int          `json:"participant_count" yaml:"participant_count"`
	UnreadCount      int          `json:"unread_count" yaml:"unread_count"`
	LastMessage      *LastMessage `json:"last_message,omitempty" yaml:"last_message"`
}

type LastMessage struct {
	Text      string    `json:"text" yaml:"text"`
	Timestamp time.Time `json:"timestamp" yaml:"-"`
	Sender    string    `json:"sender" yaml:"sender"`
	FromMe    bool      `json:"from_me" yaml:"from_me"`
}

// ConversationView is a conversation merged with its CRM metadata, as
// served to the dashboard.
type ConversationView struct {
	Conversation
	Metadata *ChatMetadata `json:"metadata,omitempty"`
}
