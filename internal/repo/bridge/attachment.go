package bridge

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

// MediaProxyPath is the same-origin endpoint that serves bridge assets.
const MediaProxyPath = "/api/v1/media"

// attachmentKinds maps the raw type field, lowercased, to an attachment type.
var attachmentKinds = map[string]models.AttachmentType{
	"img":     models.AttachmentImage,
	"image":   models.AttachmentImage,
	"photo":   models.AttachmentImage,
	"gif":     models.AttachmentImage,
	"sticker": models.AttachmentImage,
	"voice":   models.AttachmentVoice,
	"ptt":     models.AttachmentVoice,
	"audio":   models.AttachmentAudio,
	"video":   models.AttachmentVideo,
	"file":    models.AttachmentFile,
}

func attachmentKind(rawType, mimeType string, isVoice bool) models.AttachmentType {
	if isVoice {
		return models.AttachmentVoice
	}
	if k, ok := attachmentKinds[strings.ToLower(rawType)]; ok {
		return k
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.AttachmentImage
	case strings.HasPrefix(mimeType, "audio/"):
		return models.AttachmentAudio
	case strings.HasPrefix(mimeType, "video/"):
		return models.AttachmentVideo
	}
	return models.AttachmentFile
}

func (c *client) normalizeAttachment(r gjson.Result) models.Attachment {
	rawType := strings.ToLower(firstString(r, "type", "kind", "msgtype"))
	mimeType := strings.ToLower(firstString(r, "mimeType", "mime_type", "mimetype"))
	isVoice := firstBool(r, "isVoiceNote", "isVoice", "is_voice") || rawType == "voice" || rawType == "ptt"
	isGIF := firstBool(r, "isGif", "is_gif") || rawType == "gif" || mimeType == "image/gif"
	isSticker := firstBool(r, "isSticker", "is_sticker") || rawType == "sticker"

	a := models.Attachment{
		Type:      attachmentKind(rawType, mimeType, isVoice),
		URL:       c.rewriteMediaURL(firstString(r, "srcURL", "url", "src", "downloadUrl")),
		FileName:  firstString(r, "fileName", "file_name", "filename", "name"),
		MimeType:  mimeType,
		IsVoice:   isVoice,
		IsGIF:     isGIF,
		IsSticker: isSticker,
	}
	if size, ok := firstInt(r, "fileSize", "file_size", "size"); ok {
		a.Size = size
	}
	if w, ok := firstInt(r, "size.width", "width"); ok {
		a.Width = int(w)
	}
	if h, ok := firstInt(r, "size.height", "height"); ok {
		a.Height = int(h)
	}
	if ms, ok := firstInt(r, "durationMs", "duration_ms"); ok {
		a.DurationMS = ms
	} else if d := r.Get("duration"); d.Type == gjson.Number {
		a.DurationMS = int64(d.Float() * 1000)
	}
	a.Preview = attachmentPreview(a)
	return a
}

func formatDuration(ms int64) string {
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// attachmentPreview is the one-line label shown in place of the media.
func attachmentPreview(a models.Attachment) string {
	switch a.Type {
	case models.AttachmentVoice:
		if a.DurationMS > 0 {
			return fmt.Sprintf("🎤 Voice message (%s)", formatDuration(a.DurationMS))
		}
		return "🎤 Voice message"
	case models.AttachmentAudio:
		if a.DurationMS > 0 {
			return fmt.Sprintf("🎵 Audio (%s)", formatDuration(a.DurationMS))
		}
		return "🎵 Audio"
	case models.AttachmentVideo:
		return "🎬 Video"
	case models.AttachmentImage:
		switch {
		case a.IsSticker:
			return "🏷️ Sticker"
		case a.IsGIF:
			return "🎞️ GIF"
		}
		return "📷 Photo"
	}
	if a.FileName != "" {
		return "📎 " + a.FileName
	}
	return "📎 File"
}

// rewriteMediaURL points bridge-scoped URLs at the media proxy. Public
// http(s) URLs on other hosts are returned unchanged and local file paths
// are dropped.
func (c *client) rewriteMediaURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err == nil && strings.EqualFold(u.Scheme, "file") {
		return ""
	}
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") && !c.isBridgeHost(u.Host) {
		return raw
	}
	return MediaProxyPath + "?url=" + url.QueryEscape(raw)
}

func (c *client) isBridgeHost(host string) bool {
	return host != "" && strings.EqualFold(host, c.baseHost)
}
