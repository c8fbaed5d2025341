// Package content wraps the content API: fetching posts due for
// publication and reporting delivery outcomes back.
//
// Every operation returns a typed error (*TransportError or *APIError)
// and never panics; callers decide whether a failure aborts anything.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pubbot/internal/post"
	logx "pubbot/pkg/logx"
)

type Config struct {
	BaseURL string
	// Timeout bounds every request. Defaults to 10s.
	Timeout time.Duration
}

type Client struct {
	base string
	http *http.Client
	log  logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// ---- Wire types ----

// ChatID tolerates the API emitting Telegram chat ids either as JSON
// numbers or as quoted strings ("-1001234...").
type ChatID int64

func (c *ChatID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*c = ChatID(v)
	return nil
}

// Record is one raw post row from GET /api/post. Fields the publisher
// does not consume are dropped at decode time.
type Record struct {
	ID              int64             `json:"id"`
	Publication     RecordPublication `json:"publication"`
	GroupTelegramID ChatID            `json:"groupTelegramId"`
	MessageID       int               `json:"messageId"`
	WithPin         bool              `json:"withPin"`
}

type RecordPublication struct {
	Type   string        `json:"type"`
	Text   string        `json:"text"`
	FileID string        `json:"fileId"`
	Button *RecordButton `json:"button"`
}

type RecordButton struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// responseList entries stay raw so one malformed row cannot fail the
// whole envelope decode; FetchDue decodes them one by one.
type envelope struct {
	Result *struct {
		Total        int               `json:"total"`
		ResponseList []json.RawMessage `json:"responseList"`
	} `json:"result"`
	Error string `json:"error"`
}

// ---- Operations ----

// FetchDue queries posts with status AWAITS scheduled for now, truncated
// to the minute (the API's scheduling granularity). Zero matches is a
// success with an empty slice.
func (c *Client) FetchDue(ctx context.Context, now time.Time) ([]Record, error) {
	const op = "fetch due posts"

	now = now.Truncate(time.Minute)
	restrict, err := json.Marshal(map[string]string{
		"publishDate": now.Format("2006-01-02"),
		"publishTime": now.Format("15:04:05"),
		"status":      string(post.StatusAwaits),
	})
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	u := c.base + "/api/post?restrict=" + url.QueryEscape(string(restrict))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	env, status, err := c.do(req, op)
	if err != nil {
		return nil, err
	}
	if env.Result == nil {
		return nil, &APIError{Op: op, StatusCode: status, Message: env.Error}
	}

	// A row that fails to decode is skipped, not fatal: the rest of the
	// batch still gets its delivery attempt this minute.
	records := make([]Record, 0, len(env.Result.ResponseList))
	for i, raw := range env.Result.ResponseList {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.log.Warn("skipping malformed post record",
				logx.Int("index", i),
				logx.Err(err))
			continue
		}
		records = append(records, rec)
	}

	c.log.Debug("due posts fetched",
		logx.Int("total", env.Result.Total),
		logx.Int("decoded", len(records)),
		logx.String("at", now.Format("2006-01-02 15:04")))
	return records, nil
}

// SetStatus records a post's terminal delivery outcome.
func (c *Client) SetStatus(ctx context.Context, id int64, status post.Status) error {
	return c.put(ctx, "update post status", map[string]any{
		"id":     id,
		"status": string(status),
	})
}

// SetMessageID persists the general-channel message id after a
// successful send. Bookkeeping only; the post is already visible to
// users when this runs.
func (c *Client) SetMessageID(ctx context.Context, id int64, messageID int) error {
	return c.put(ctx, "update post message id", map[string]any{
		"id":        id,
		"messageId": messageID,
	})
}

func (c *Client) put(ctx context.Context, op string, body map[string]any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.base+"/api/post", bytes.NewReader(b))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	env, status, err := c.do(req, op)
	if err != nil {
		return err
	}
	if env.Result == nil {
		return &APIError{Op: op, StatusCode: status, Message: env.Error}
	}
	return nil
}

func (c *Client) do(req *http.Request, op string) (envelope, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusOK {
		// Body is best-effort on non-200; keep whatever error text decodes.
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return envelope{}, resp.StatusCode, &APIError{Op: op, StatusCode: resp.StatusCode, Message: env.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, resp.StatusCode, &TransportError{Op: op, Err: err}
	}
	if env.Error != "" {
		return envelope{}, resp.StatusCode, &APIError{Op: op, StatusCode: resp.StatusCode, Message: env.Error}
	}
	return env, resp.StatusCode, nil
}
