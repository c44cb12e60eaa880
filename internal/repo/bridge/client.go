package bridge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
	"github.com/nguyentranbao-ct/chat-crm/pkg/util"
)

// Client talks to the chat bridge. Discovery runs on first use and its
// outcome, success or failure, is kept until Reprobe.
type Client interface {
	Status(ctx context.Context) models.BridgeStatus
	Reprobe(ctx context.Context) models.BridgeStatus
	ListConversations(ctx context.Context, limit int) ([]models.Conversation, error)
	ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID, text, replyTo string) (bool, error)
	DownloadMedia(ctx context.Context, rawURL string) (*models.Media, error)
}

type client struct {
	http     *resty.Client
	token    string
	baseURL  string
	baseHost string
	timeout  time.Duration
	pageSize int
	maxPages int
	selfName string
	metrics  *prometheus.HistogramVec

	mu       sync.Mutex
	probed   bool
	active   *family
	probeErr error
	status   models.BridgeStatus
}

func NewClient(conf *config.Config) (Client, error) {
	u, err := url.Parse(conf.Bridge.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid bridge base url %q", conf.Bridge.BaseURL)
	}
	metrics, err := util.GetHistogramVec("bridge_request_duration_seconds", "endpoint", "code")
	if err != nil {
		return nil, fmt.Errorf("bridge metrics: %w", err)
	}
	pageSize := conf.Bridge.PageSize
	if pageSize <= 0 || pageSize > config.MaxBridgePageSize {
		pageSize = config.MaxBridgePageSize
	}
	maxPages := conf.Bridge.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &client{
		http:     util.NewRestyClient(conf.Bridge.BaseURL, conf.Bridge.Timeout),
		token:    conf.Bridge.Token,
		baseURL:  conf.Bridge.BaseURL,
		baseHost: u.Host,
		timeout:  conf.Bridge.Timeout,
		pageSize: pageSize,
		maxPages: maxPages,
		selfName: conf.Bridge.SelfName,
		metrics:  metrics,
	}, nil
}

func (c *client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	return req
}

// doRaw performs one attempt and returns the raw 2xx response.
func (c *client) doRaw(ctx context.Context, method, path string, query url.Values, body any) (*resty.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.request(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	code := "error"
	if resp != nil && resp.StatusCode() != 0 {
		code = strconv.Itoa(resp.StatusCode())
	}
	c.metrics.WithLabelValues(path, code).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, classifyTransport(path, c.timeout, err)
	}
	if !resp.IsSuccess() {
		return nil, &APIError{Endpoint: path, StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 512)}
	}
	return resp, nil
}

// do performs one attempt and parses the JSON body.
func (c *client) do(ctx context.Context, method, path string, query url.Values, body any) (gjson.Result, error) {
	resp, err := c.doRaw(ctx, method, path, query, body)
	if err != nil {
		return gjson.Result{}, err
	}
	raw := resp.Body()
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode(),
			Body:       truncate(string(raw), 512),
			Err:        ErrInvalidBody,
		}
	}
	return gjson.ParseBytes(raw), nil
}

// paginate follows cursors on a list endpoint. visit returns true when it
// kept the record; paging stops once limit records were kept, the service
// reports no more pages, the cursor is missing or repeats, or maxPages
// requests were made.
func (c *client) paginate(ctx context.Context, path string, base url.Values, limit int, visit func(r gjson.Result) bool) error {
	kept := 0
	seen := make(map[string]struct{})
	cursor := ""

	for n := 0; n < c.maxPages && kept < limit; n++ {
		q := url.Values{}
		for k, v := range base {
			q[k] = v
		}
		q.Set("limit", strconv.Itoa(min(c.pageSize, limit-kept)))
		if cursor != "" {
			q.Set("cursor", cursor)
			q.Set("direction", "before")
		}

		doc, err := c.do(ctx, "GET", path, q, nil)
		if err != nil {
			return err
		}
		p := parsePage(doc)
		if p.shape == "" {
			log.Warnw(ctx, "unrecognized bridge response shape", "endpoint", path, "page", n)
			return nil
		}
		for _, r := range p.records {
			if kept >= limit {
				break
			}
			if visit(r) {
				kept++
			}
		}

		if !p.hasMore || p.cursor == "" {
			return nil
		}
		if _, dup := seen[p.cursor]; dup {
			log.Warnw(ctx, "bridge returned a repeated cursor", "endpoint", path, "cursor", p.cursor)
			return nil
		}
		seen[p.cursor] = struct{}{}
		cursor = p.cursor
	}
	return nil
}

func (c *client) ListConversations(ctx context.Context, limit int) ([]models.Conversation, error) {
	fam, err := c.ensureProbed(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = c.pageSize * c.maxPages
	}

	convs := make([]models.Conversation, 0, min(limit, c.pageSize))
	ids := make(map[string]struct{})
	err = c.paginate(ctx, fam.SearchChats, nil, limit, func(r gjson.Result) bool {
		conv, ok := normalizeConversation(r, len(convs))
		if !ok {
			return false
		}
		if _, dup := ids[conv.ID]; dup {
			return false
		}
		ids[conv.ID] = struct{}{}
		convs = append(convs, conv)
		return true
	})
	if err != nil {
		log.Warnw(ctx, "list conversations failed", "endpoint", fam.SearchChats, "error", err)
		return nil, err
	}
	return convs, nil
}

func (c *client) ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	fam, err := c.ensureProbed(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = c.pageSize
	}

	q := url.Values{}
	q.Set("chatIDs", chatID)
	q.Set("chatID", chatID)

	msgs := make([]models.Message, 0, min(limit, c.pageSize))
	err = c.paginate(ctx, fam.SearchMessages, q, limit, func(r gjson.Result) bool {
		msg, ok := c.normalizeMessage(r, chatID, len(msgs))
		if !ok {
			return false
		}
		msgs = append(msgs, msg)
		return true
	})
	if err != nil {
		log.Warnw(ctx, "list messages failed", "endpoint", fam.SearchMessages, "chat_id", chatID, "error", err)
		return nil, err
	}
	sortMessages(msgs)
	return msgs, nil
}

type sendMessageBody struct {
	ChatID           string `json:"chatID"`
	Text             string `json:"text"`
	ReplyToMessageID string `json:"replyToMessageID,omitempty"`
}

// SendMessage makes a single attempt. It reports false without an error when
// the bridge answers but declines the message.
func (c *client) SendMessage(ctx context.Context, chatID, text, replyTo string) (bool, error) {
	fam, err := c.ensureProbed(ctx)
	if err != nil {
		return false, err
	}
	doc, err := c.do(ctx, "POST", fam.SendMessage, nil, sendMessageBody{
		ChatID:           chatID,
		Text:             text,
		ReplyToMessageID: replyTo,
	})
	if err != nil {
		log.Warnw(ctx, "send message failed", "endpoint", fam.SendMessage, "chat_id", chatID, "error", err)
		return false, err
	}
	if s := doc.Get("success"); s.Exists() && !s.Bool() {
		log.Warnw(ctx, "bridge declined message", "chat_id", chatID, "response", truncate(doc.Raw, 256))
		return false, nil
	}
	if e := doc.Get("error"); e.Exists() && e.String() != "" {
		log.Warnw(ctx, "bridge declined message", "chat_id", chatID, "error", e.String())
		return false, nil
	}
	return true, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
