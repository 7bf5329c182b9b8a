package popup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ClipTranslator/internal/app/orchestrator"
	"ClipTranslator/internal/config"
	"ClipTranslator/internal/service/history"
	"ClipTranslator/internal/service/translate"
)

func newTestBridge(t *testing.T, controls Controls, clip *fakeClipboard, hist *history.Log) (*Server, *httptest.Server) {
	t.Helper()
	if hist == nil {
		hist = history.New(10)
	}
	s := NewServer(config.PopupConfig{AutoClose: 10 * time.Second}, controls, clip, hist, zap.NewNop().Sugar())
	ts := httptest.NewServer(http.HandlerFunc(s.handleEvents))
	t.Cleanup(ts.Close)
	return s, ts
}

func dialBridge(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readPayload(t *testing.T, conn *websocket.Conn) payload {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return p
}

func sendAction(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write action: %v", err)
	}
}

func TestHelloCarriesLanguagesAndAutoClose(t *testing.T) {
	controls := &fakeControls{src: "auto", dst: "ja"}
	_, ts := newTestBridge(t, controls, &fakeClipboard{}, nil)

	conn := dialBridge(t, ts)
	hello := readPayload(t, conn)
	if hello.Type != "hello" {
		t.Fatalf("first payload type = %q, want hello", hello.Type)
	}
	if hello.SourceLang != "auto" || hello.TargetLang != "ja" {
		t.Fatalf("hello languages = %q/%q, want auto/ja", hello.SourceLang, hello.TargetLang)
	}
	if hello.AutoCloseMs != 10000 {
		t.Fatalf("hello auto_close_ms = %d, want 10000", hello.AutoCloseMs)
	}
}

func TestPublishBroadcastsEvents(t *testing.T) {
	s, ts := newTestBridge(t, &fakeControls{src: "auto", dst: "ja"}, &fakeClipboard{}, nil)

	conn := dialBridge(t, ts)
	readPayload(t, conn) // hello

	s.Publish(orchestrator.Event{
		Type:      orchestrator.EventWorking,
		RequestID: 7,
		Phase:     orchestrator.PhaseDetecting,
		At:        time.Now(),
	})
	working := readPayload(t, conn)
	if working.Type != "working" || working.RequestID != 7 {
		t.Fatalf("got %q/%d, want working/7", working.Type, working.RequestID)
	}
	if working.Phase != "detecting" {
		t.Fatalf("working phase = %q, want detecting", working.Phase)
	}
	if working.AutoCloseMs != 0 {
		t.Fatalf("working auto_close_ms = %d, want 0: статус не должен прятать попап", working.AutoCloseMs)
	}

	s.Publish(orchestrator.Event{
		Type:       orchestrator.EventSucceeded,
		RequestID:  7,
		SourceText: "Hello",
		Result:     translate.Result{Text: "こんにちは", DetectedLang: "en", TargetLang: "ja"},
		At:         time.Now(),
	})
	done := readPayload(t, conn)
	if done.Type != "succeeded" || done.RequestID != 7 {
		t.Fatalf("got %q/%d, want succeeded/7", done.Type, done.RequestID)
	}
	if done.Translated != "こんにちは" || done.DetectedLang != "en" || done.TargetLang != "ja" {
		t.Fatalf("unexpected result payload: %+v", done)
	}
	if done.SourceText != "Hello" {
		t.Fatalf("source_text = %q, want Hello", done.SourceText)
	}
	if done.AutoCloseMs != 10000 {
		t.Fatalf("succeeded auto_close_ms = %d, want 10000", done.AutoCloseMs)
	}
}

func TestFailedEventCarriesReason(t *testing.T) {
	s, ts := newTestBridge(t, &fakeControls{}, &fakeClipboard{}, nil)

	conn := dialBridge(t, ts)
	readPayload(t, conn) // hello

	s.Publish(orchestrator.Event{
		Type:      orchestrator.EventFailed,
		RequestID: 3,
		Reason:    orchestrator.ReasonService,
		Err:       &translate.APIError{StatusCode: 503},
		At:        time.Now(),
	})
	failed := readPayload(t, conn)
	if failed.Type != "failed" || failed.Reason != "service" {
		t.Fatalf("got %q/%q, want failed/service", failed.Type, failed.Reason)
	}
	if failed.Error == "" {
		t.Fatal("failed payload has empty error text")
	}
}

func TestLateClientReceivesLastEvent(t *testing.T) {
	s, ts := newTestBridge(t, &fakeControls{}, &fakeClipboard{}, nil)

	// Событие публикуется до подключения клиента.
	s.Publish(orchestrator.Event{
		Type:      orchestrator.EventSucceeded,
		RequestID: 11,
		Result:    translate.Result{Text: "done", TargetLang: "ja"},
		At:        time.Now(),
	})

	conn := dialBridge(t, ts)
	readPayload(t, conn) // hello
	last := readPayload(t, conn)
	if last.Type != "succeeded" || last.RequestID != 11 {
		t.Fatalf("late client got %q/%d, want succeeded/11", last.Type, last.RequestID)
	}
}

func TestCopyActionWritesClipboard(t *testing.T) {
	controls := &fakeControls{
		snap: orchestrator.Snapshot{
			RequestID: 5,
			Result:    translate.Result{Text: "перевод"},
		},
		hasSnap: true,
	}
	clip := &fakeClipboard{}
	_, ts := newTestBridge(t, controls, clip, nil)

	conn := dialBridge(t, ts)
	readPayload(t, conn) // hello

	sendAction(t, conn, `{"action":"copy"}`)
	reply := readPayload(t, conn)
	if reply.Type != "copied" || reply.RequestID != 5 {
		t.Fatalf("got %q/%d, want copied/5", reply.Type, reply.RequestID)
	}
	if got := clip.written(); got != "перевод" {
		t.Fatalf("clipboard = %q, want перевод", got)
	}
}

func TestCopyActionWithoutResult(t *testing.T) {
	clip := &fakeClipboard{}
	_, ts := newTestBridge(t, &fakeControls{}, clip, nil)

	conn := dialBridge(t, ts)
	readPayload(t, conn) // hello

	sendAction(t, conn, `{"action":"copy"}`)
	reply := readPayload(t, conn)
	if reply.Type != "error" {
		t.Fatalf("got %q, want error", reply.Type)
	}
	if got := clip.written(); got != "" {
		t.Fatalf("clipboard unexpectedly written: %q", got)
	}
}

func TestToggleActionBroadcastsLanguages(t *testing.T) {
	controls := &fakeControls{src: "en", dst: "ja"}
	_, ts := newTestBridge(t, controls, &fakeClipboard{}, nil)

	first := dialBridge(t, ts)
	readPayload(t, first) // hello
	second := dialBridge(t, ts)
	readPayload(t, second) // hello

	sendAction(t, first, `{"action":"toggle"}`)

	for _, conn := range []*websocket.Conn{first, second} {
		p := readPayload(t, conn)
		if p.Type != "languages" {
			t.Fatalf("got %q, want languages", p.Type)
		}
		if p.SourceLang != "ja" || p.TargetLang != "en" {
			t.Fatalf("languages = %q/%q, want ja/en", p.SourceLang, p.TargetLang)
		}
	}
}

func TestHistoryActionReturnsRecentEntries(t *testing.T) {
	hist := history.New(10)
	hist.Add(history.Entry{Source: "1", Translated: "one"})
	hist.Add(history.Entry{Source: "2", Translated: "two"})
	hist.Add(history.Entry{Source: "3", Translated: "three"})
	_, ts := newTestBridge(t, &fakeControls{}, &fakeClipboard{}, hist)

	conn := dialBridge(t, ts)
	readPayload(t, conn) // hello

	sendAction(t, conn, `{"action":"history","n":2}`)
	reply := readPayload(t, conn)
	if reply.Type != "history" {
		t.Fatalf("got %q, want history", reply.Type)
	}
	if len(reply.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(reply.History))
	}
	if reply.History[0].Translated != "three" || reply.History[1].Translated != "two" {
		t.Fatalf("history order wrong: %+v", reply.History)
	}
}

func TestMalformedActionReturnsError(t *testing.T) {
	_, ts := newTestBridge(t, &fakeControls{}, &fakeClipboard{}, nil)

	conn := dialBridge(t, ts)
	readPayload(t, conn) // hello

	sendAction(t, conn, `not json at all`)
	reply := readPayload(t, conn)
	if reply.Type != "error" {
		t.Fatalf("got %q, want error", reply.Type)
	}
}

type fakeControls struct {
	mu      sync.Mutex
	snap    orchestrator.Snapshot
	hasSnap bool
	src     string
	dst     string
}

func (f *fakeControls) LastResult() (orchestrator.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.hasSnap
}

func (f *fakeControls) Languages() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src, f.dst
}

func (f *fakeControls) ToggleLanguages() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src, f.dst = f.dst, f.src
	return f.src, f.dst
}

type fakeClipboard struct {
	mu   sync.Mutex
	text string
}

func (f *fakeClipboard) ReadText() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakeClipboard) WriteText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	return nil
}

func (f *fakeClipboard) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}
