package bridge

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

// bridgeSchemes are URL schemes only the bridge can resolve. file:// is not
// among them: it is only honoured when the bridge itself answers with one.
var bridgeSchemes = map[string]bool{
	"mxc":        true,
	"localmxc":   true,
	"beeper-api": true,
}

// beeper-api://attachments/<chatID>/<messageID>/<index>
var attachmentRef = regexp.MustCompile(`^beeper-api://attachments/([^/]+)/([^/]+)/(\d+)$`)

type downloadAssetBody struct {
	URL string `json:"url"`
}

type downloadAttachmentBody struct {
	ChatID          string `json:"chatID"`
	MessageID       string `json:"messageID"`
	AttachmentIndex int    `json:"attachmentIndex"`
}

// IsBridgeMediaURL reports whether raw addresses an asset held by the bridge.
func (c *client) IsBridgeMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if bridgeSchemes[strings.ToLower(u.Scheme)] {
		return true
	}
	return (u.Scheme == "http" || u.Scheme == "https") && c.isBridgeHost(u.Host)
}

// DownloadMedia fetches an asset through the bridge. Only bridge-scoped URLs
// are accepted so the proxy cannot be pointed at arbitrary hosts.
func (c *client) DownloadMedia(ctx context.Context, rawURL string) (*models.Media, error) {
	if !c.IsBridgeMediaURL(rawURL) {
		return nil, ErrInvalidMedia
	}
	fam, err := c.ensureProbed(ctx)
	if err != nil {
		return nil, err
	}

	path := fam.DownloadAsset
	var body any = downloadAssetBody{URL: rawURL}
	if m := attachmentRef.FindStringSubmatch(rawURL); m != nil && fam.DownloadAttachment != "" {
		idx, _ := strconv.Atoi(m[3])
		chatID, _ := url.PathUnescape(m[1])
		path = fam.DownloadAttachment
		body = downloadAttachmentBody{ChatID: chatID, MessageID: m[2], AttachmentIndex: idx}
	}

	resp, err := c.doRaw(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		log.Warnw(ctx, "media download failed", "endpoint", path, "error", err)
		return nil, err
	}

	data := resp.Body()
	if isJSONObject(data) {
		return c.resolveAssetReference(ctx, path, resp.StatusCode(), gjson.ParseBytes(data))
	}
	return &models.Media{
		Data:        data,
		ContentType: mediaContentType(resp.Header().Get("Content-Type"), data),
		FileName:    fileNameFromDisposition(resp.Header().Get("Content-Disposition")),
	}, nil
}

// resolveAssetReference handles a JSON answer from the download endpoint:
// either an error, or the location where the bridge stored the asset.
func (c *client) resolveAssetReference(ctx context.Context, path string, status int, doc gjson.Result) (*models.Media, error) {
	if e := doc.Get("error"); e.Exists() && e.String() != "" {
		return nil, &APIError{Endpoint: path, StatusCode: status, Body: truncate(doc.Raw, 512)}
	}
	src := firstString(doc, "srcURL", "url", "downloadUrl")
	if src == "" {
		return nil, &APIError{Endpoint: path, StatusCode: status, Body: truncate(doc.Raw, 512), Err: ErrInvalidMedia}
	}

	u, err := url.Parse(src)
	if err != nil {
		return nil, &APIError{Endpoint: path, StatusCode: status, Err: err}
	}
	switch u.Scheme {
	case "file":
		// the bridge runs on this host and caches assets on local disk
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, fmt.Errorf("read cached asset: %w", err)
		}
		return &models.Media{
			Data:        data,
			ContentType: mediaContentType(mime.TypeByExtension(extOf(u.Path)), data),
			FileName:    baseName(u.Path),
		}, nil
	case "http", "https":
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req := c.http.R().SetContext(ctx)
		if c.isBridgeHost(u.Host) {
			req = c.request(ctx)
		}
		resp, err := req.Get(src)
		if err != nil {
			return nil, classifyTransport(src, c.timeout, err)
		}
		if !resp.IsSuccess() {
			return nil, &APIError{Endpoint: src, StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 256)}
		}
		log.Debugw(ctx, "media resolved via asset url", "endpoint", path)
		return &models.Media{
			Data:        resp.Body(),
			ContentType: mediaContentType(resp.Header().Get("Content-Type"), resp.Body()),
			FileName:    baseName(u.Path),
		}, nil
	}
	return nil, &APIError{Endpoint: path, StatusCode: status, Err: ErrInvalidMedia}
}

func isJSONObject(data []byte) bool {
	trimmed := strings.TrimSpace(string(data[:min(len(data), 64)]))
	return strings.HasPrefix(trimmed, "{") && gjson.ValidBytes(data)
}

// mediaContentType prefers a specific declared type and otherwise sniffs the
// bytes. Ogg containers from the bridge are voice notes.
func mediaContentType(declared string, data []byte) string {
	ct := strings.TrimSpace(strings.Split(declared, ";")[0])
	if ct == "" || ct == "application/octet-stream" || ct == "application/json" {
		ct = http.DetectContentType(data)
		ct = strings.TrimSpace(strings.Split(ct, ";")[0])
	}
	if ct == "application/ogg" {
		return "audio/ogg"
	}
	return ct
}

func fileNameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func extOf(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 && !strings.ContainsRune(p[i:], '/') {
		return p[i:]
	}
	return ""
}

func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
