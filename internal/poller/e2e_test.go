package poller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pubbot/internal/content"
	"pubbot/internal/publisher"
	kit "pubbot/internal/transport"
	logx "pubbot/pkg/logx"
)

// contentAPI is a scripted stand-in for the content API: it serves one
// fetch response and records every PUT body.
type contentAPI struct {
	mu       sync.Mutex
	fetch    string
	fetchErr bool
	puts     []map[string]any
}

func (a *contentAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if a.fetchErr {
				// Simulate a transport-level failure by hijacking and
				// dropping the connection.
				hj, ok := w.(http.Hijacker)
				if !ok {
					panic("hijack unsupported")
				}
				conn, _, _ := hj.Hijack()
				_ = conn.Close()
				return
			}
			_, _ = w.Write([]byte(a.fetch))
		case http.MethodPut:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			a.mu.Lock()
			a.puts = append(a.puts, body)
			a.mu.Unlock()
			_, _ = w.Write([]byte(`{"result":{"total":1,"responseList":[]}}`))
		}
	}
}

func (a *contentAPI) putBodies() []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]map[string]any(nil), a.puts...)
}

// scriptSender implements kit.Sender with per-step failures.
type scriptSender struct {
	mu         sync.Mutex
	calls      []string
	forwardErr error
	nextID     int
}

func (s *scriptSender) note(kind string) {
	s.mu.Lock()
	s.calls = append(s.calls, kind)
	s.mu.Unlock()
}

func (s *scriptSender) send(kind string) (kit.MessageRef, error) {
	s.note(kind)
	s.nextID++
	return kit.MessageRef{ChatID: -1, MessageID: s.nextID}, nil
}

func (s *scriptSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return s.send("text")
}
func (s *scriptSender) SendPhoto(ctx context.Context, to kit.ChatTarget, fileID, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return s.send("photo")
}
func (s *scriptSender) SendVideo(ctx context.Context, to kit.ChatTarget, fileID, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return s.send("video")
}
func (s *scriptSender) SendAnimation(ctx context.Context, to kit.ChatTarget, fileID, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return s.send("animation")
}
func (s *scriptSender) Forward(ctx context.Context, to kit.ChatTarget, ref kit.MessageRef) (kit.MessageRef, error) {
	s.note("forward")
	if s.forwardErr != nil {
		return kit.MessageRef{}, s.forwardErr
	}
	return kit.MessageRef{ChatID: to.ChatID, MessageID: ref.MessageID + 1000}, nil
}
func (s *scriptSender) Pin(ctx context.Context, ref kit.MessageRef) error {
	s.note("pin")
	return nil
}

func (s *scriptSender) callKinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

const onePinnedTextPost = `{"result":{"total":1,"responseList":[
	{"id":1,
	 "publication":{"type":"TEXT","text":"hi"},
	 "groupTelegramId":"-100",
	 "withPin":true}
]}}`

func e2eService(t *testing.T, api *contentAPI, sender kit.Sender) *Service {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	client := content.NewClient(content.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, logx.Nop())
	pub := publisher.New(publisher.Config{
		GeneralChannel: kit.ChatTarget{ChatID: -1},
		SendRate:       1000,
	}, sender, logx.Nop())

	return New(Config{Enabled: true}, client, pub, nil, logx.Nop())
}

func TestEndToEndSuccessWithPin(t *testing.T) {
	t.Parallel()

	api := &contentAPI{fetch: onePinnedTextPost}
	sender := &scriptSender{}
	s := e2eService(t, api, sender)

	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	s.runCycle(context.Background(), now)

	wantCalls := []string{"text", "forward", "pin"}
	got := sender.callKinds()
	if len(got) != len(wantCalls) {
		t.Fatalf("platform calls = %v, want %v", got, wantCalls)
	}
	for i := range wantCalls {
		if got[i] != wantCalls[i] {
			t.Fatalf("platform calls = %v, want %v", got, wantCalls)
		}
	}

	puts := api.putBodies()
	if len(puts) != 2 {
		t.Fatalf("got %d PUTs, want messageId + status", len(puts))
	}
	if puts[0]["id"] != float64(1) || puts[0]["messageId"] == nil {
		t.Fatalf("first PUT should persist the message id: %v", puts[0])
	}
	if puts[1]["id"] != float64(1) || puts[1]["status"] != "PUBLISHED" {
		t.Fatalf("second PUT should set PUBLISHED: %v", puts[1])
	}
}

func TestEndToEndForwardFailure(t *testing.T) {
	t.Parallel()

	api := &contentAPI{fetch: onePinnedTextPost}
	sender := &scriptSender{forwardErr: errors.New("chat not found")}
	s := e2eService(t, api, sender)

	s.runCycle(context.Background(), time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC))

	for _, kind := range sender.callKinds() {
		if kind == "pin" {
			t.Fatal("no pin call expected after a failed forward")
		}
	}

	puts := api.putBodies()
	if len(puts) != 1 {
		t.Fatalf("got %d PUTs, want exactly the ERROR status", len(puts))
	}
	if puts[0]["id"] != float64(1) || puts[0]["status"] != "ERROR" {
		t.Fatalf("PUT should set ERROR: %v", puts[0])
	}
}

func TestEndToEndFetchTransportError(t *testing.T) {
	t.Parallel()

	api := &contentAPI{fetchErr: true}
	sender := &scriptSender{}
	s := e2eService(t, api, sender)

	s.runCycle(context.Background(), time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC))

	if calls := sender.callKinds(); len(calls) != 0 {
		t.Fatalf("expected zero platform calls, got %v", calls)
	}
	if puts := api.putBodies(); len(puts) != 0 {
		t.Fatalf("expected zero status writes, got %v", puts)
	}
}
