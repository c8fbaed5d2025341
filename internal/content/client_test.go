package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pubbot/internal/post"
)

func testClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, nopLogger()), srv
}

func TestFetchDueRestrictQuery(t *testing.T) {
	t.Parallel()

	var gotRestrict string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRestrict = r.URL.Query().Get("restrict")
		_, _ = w.Write([]byte(`{"result":{"total":0,"responseList":[]}}`))
	})

	now := time.Date(2024, 1, 1, 10, 30, 45, 0, time.UTC)
	if _, err := c.FetchDue(context.Background(), now); err != nil {
		t.Fatalf("FetchDue error: %v", err)
	}

	var restrict map[string]string
	if err := json.Unmarshal([]byte(gotRestrict), &restrict); err != nil {
		t.Fatalf("restrict is not JSON: %q", gotRestrict)
	}
	if restrict["publishDate"] != "2024-01-01" {
		t.Fatalf("publishDate = %q", restrict["publishDate"])
	}
	// Seconds must be zeroed: the API schedules at minute granularity.
	if restrict["publishTime"] != "10:30:00" {
		t.Fatalf("publishTime = %q", restrict["publishTime"])
	}
	if restrict["status"] != "AWAITS" {
		t.Fatalf("status = %q", restrict["status"])
	}
}

func TestFetchDueDecodesRecords(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"total":1,"responseList":[
			{"id":7,
			 "publication":{"type":"PHOTO","text":"caption","fileId":"f-1","button":{"name":"Open","url":"https://example.com"}},
			 "groupTelegramId":"-100123",
			 "messageId":42,
			 "withPin":true}
		]}}`))
	})

	records, err := c.FetchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchDue error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.ID != 7 || r.Publication.Type != "PHOTO" || r.Publication.FileID != "f-1" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if int64(r.GroupTelegramID) != -100123 {
		t.Fatalf("GroupTelegramID = %d", r.GroupTelegramID)
	}
	if r.Publication.Button == nil || r.Publication.Button.Name != "Open" {
		t.Fatalf("button not decoded: %+v", r.Publication.Button)
	}
	if !r.WithPin || r.MessageID != 42 {
		t.Fatalf("withPin/messageId not decoded: %+v", r)
	}
}

func TestFetchDueSkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"total":2,"responseList":[
			{"id":1,
			 "publication":{"type":"TEXT","text":"bad row"},
			 "groupTelegramId":"abc"},
			{"id":2,
			 "publication":{"type":"TEXT","text":"good row"},
			 "groupTelegramId":"-100123"}
		]}}`))
	})

	records, err := c.FetchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchDue error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ID != 2 {
		t.Fatalf("kept record id = %d, want the well-formed one", records[0].ID)
	}
}

func TestFetchDueZeroMatchesIsNotAnError(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"total":0,"responseList":[]}}`))
	})

	records, err := c.FetchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchDue error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}

func TestFetchDueErrorTaxonomy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantAPI bool
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			},
			wantAPI: true,
		},
		{
			name: "application error payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":"bad restrict"}`))
			},
			wantAPI: true,
		},
		{
			name: "missing result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			wantAPI: true,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			wantAPI: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := testClient(t, tt.handler)
			_, err := c.FetchDue(context.Background(), time.Now())
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *APIError
			var trErr *TransportError
			if tt.wantAPI {
				if !errors.As(err, &apiErr) {
					t.Fatalf("want *APIError, got %T: %v", err, err)
				}
			} else {
				if !errors.As(err, &trErr) {
					t.Fatalf("want *TransportError, got %T: %v", err, err)
				}
			}
		})
	}
}

func TestFetchDueConnectionRefusedIsTransport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url, Timeout: time.Second}, nopLogger())
	_, err := c.FetchDue(context.Background(), time.Now())
	var trErr *TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("want *TransportError, got %T: %v", err, err)
	}
}

func TestSetStatusBody(t *testing.T) {
	t.Parallel()

	var method string
	var body map[string]any
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"result":{"total":1,"responseList":[]}}`))
	})

	if err := c.SetStatus(context.Background(), 1, post.StatusPublished); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if method != http.MethodPut {
		t.Fatalf("method = %s, want PUT", method)
	}
	if body["id"] != float64(1) || body["status"] != "PUBLISHED" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["messageId"]; ok {
		t.Fatal("status update must not carry messageId")
	}
}

func TestSetMessageIDBody(t *testing.T) {
	t.Parallel()

	var body map[string]any
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"result":{"total":1,"responseList":[]}}`))
	})

	if err := c.SetMessageID(context.Background(), 3, 99); err != nil {
		t.Fatalf("SetMessageID error: %v", err)
	}
	if body["id"] != float64(3) || body["messageId"] != float64(99) {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["status"]; ok {
		t.Fatal("message id update must not carry status")
	}
}

func TestSetStatusAPIError(t *testing.T) {
	t.Parallel()

	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"no such post"}`))
	})

	err := c.SetStatus(context.Background(), 404, post.StatusError)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "no such post" {
		t.Fatalf("Message = %q", apiErr.Message)
	}
}

func TestChatIDUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want int64
	}{
		{`"-100123"`, -100123},
		{`-100123`, -100123},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tt := range tests {
		var c ChatID
		if err := json.Unmarshal([]byte(tt.raw), &c); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if int64(c) != tt.want {
			t.Fatalf("ChatID(%s) = %d, want %d", tt.raw, c, tt.want)
		}
	}

	var c ChatID
	if err := json.Unmarshal([]byte(`"abc"`), &c); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}
