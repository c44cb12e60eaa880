package bridge

import (
	"strings"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

const unknownSender = "Unknown"

// minPhoneDigits is the shortest identifier rendered as a phone number.
const minPhoneDigits = 10

// senderName picks a display label for a message author.
func senderName(fromMe bool, selfName, explicit, senderID string) string {
	if fromMe {
		return selfName
	}
	if name := strings.TrimSpace(explicit); name != "" && name != senderID {
		return name
	}
	if label := labelFromUserID(senderID); label != "" {
		return label
	}
	return unknownSender
}

// labelFromUserID derives a label from a bridged user id such as
// "@whatsapp_393401234567:beeper.local". Phone-shaped identifiers are
// formatted, anything else is returned as is.
func labelFromUserID(id string) string {
	local := strings.TrimPrefix(strings.TrimSpace(id), "@")
	if i := strings.IndexByte(local, ':'); i >= 0 {
		local = local[:i]
	}
	if local == "" {
		return ""
	}
	// drop the bridge prefix, e.g. "whatsapp_" or "telegram_"
	if i := strings.IndexByte(local, '_'); i > 0 && detectNetwork(local[:i]) != models.NetworkUnknown {
		local = local[i+1:]
	}
	if local == "" {
		return ""
	}
	if phone, ok := formatPhone(local); ok {
		return phone
	}
	return local
}

// formatPhone renders an international number as "+CC NNN NNN NNNN". The
// country code is one digit when the number starts with 1, two otherwise.
func formatPhone(s string) (string, bool) {
	digits := strings.TrimPrefix(s, "+")
	if len(digits) < minPhoneDigits {
		return "", false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}

	ccLen := 2
	if digits[0] == '1' {
		ccLen = 1
	}
	cc, rest := digits[:ccLen], digits[ccLen:]

	groups := make([]string, 0, 4)
	groups = append(groups, "+"+cc)
	for len(rest) > 4 && len(groups) < 3 {
		groups = append(groups, rest[:3])
		rest = rest[3:]
	}
	groups = append(groups, rest)
	return strings.Join(groups, " "), true
}
