package google

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ClipTranslator/internal/config"
	"ClipTranslator/internal/service/translate"
)

func newTestClient(endpoint string) *Client {
	return New(config.GoogleWebConfig{Endpoint: endpoint, UserAgent: "ClipTranslator/1.0"}, nil)
}

func TestTranslateParsesSentences(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		for key, want := range map[string]string{
			"client": "gtx",
			"sl":     "auto",
			"tl":     "ja",
			"dt":     "t",
			"dj":     "1",
			"source": "input",
			"q":      "Hello world",
		} {
			if got := q.Get(key); got != want {
				t.Fatalf("query %s: got %q, want %q", key, got, want)
			}
		}
		if got := r.Header.Get("User-Agent"); got != "ClipTranslator/1.0" {
			t.Fatalf("unexpected user agent: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"sentences":[{"trans":"こんにちは"},{"trans":"世界"}],"src":"en"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	res, err := c.Translate(context.Background(), translate.Request{Text: "Hello world", SourceLang: "auto", TargetLang: "ja"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if res.Text != "こんにちは世界" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if res.DetectedLang != "en" {
		t.Fatalf("unexpected detected lang: %q", res.DetectedLang)
	}
	if res.TargetLang != "ja" {
		t.Fatalf("unexpected target lang: %q", res.TargetLang)
	}
}

func TestTranslatePassesExplicitSourceLang(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sl"); got != "ru" {
			t.Fatalf("unexpected sl: %q", got)
		}
		_, _ = io.WriteString(w, `{"sentences":[{"trans":"hi"}],"src":"ru"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	res, err := c.Translate(context.Background(), translate.Request{Text: "привет", SourceLang: "ru", TargetLang: "en"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if res.DetectedLang != "ru" {
		t.Fatalf("unexpected detected lang: %q", res.DetectedLang)
	}
}

func TestTranslateEmptySourceLangBecomesAuto(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sl"); got != "auto" {
			t.Fatalf("unexpected sl: %q", got)
		}
		_, _ = io.WriteString(w, `{"sentences":[{"trans":"x"}],"src":"en"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	if _, err := c.Translate(context.Background(), translate.Request{Text: "x", TargetLang: "ja"}); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
}

func TestTranslateUpstreamErrorIsServiceFault(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.Translate(context.Background(), translate.Request{Text: "x", TargetLang: "ja"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *translate.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *translate.APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected status code: %d", apiErr.StatusCode)
	}
	if !translate.ServiceFault(err) {
		t.Fatal("expected service fault classification")
	}
}

func TestTranslateEmptyResultIsServiceFault(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"sentences":[],"src":"en"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.Translate(context.Background(), translate.Request{Text: "x", TargetLang: "ja"})
	if !errors.Is(err, translate.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if !translate.ServiceFault(err) {
		t.Fatal("expected service fault classification")
	}
}

func TestTranslateMalformedResponseIsServiceFault(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `]]not json[[`)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.Translate(context.Background(), translate.Request{Text: "x", TargetLang: "ja"})
	if !errors.Is(err, translate.ErrBadResponse) {
		t.Fatalf("expected ErrBadResponse, got %v", err)
	}
	if !translate.ServiceFault(err) {
		t.Fatal("expected service fault classification")
	}
}

func TestTranslateTransportFailureIsNotServiceFault(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // соединение откажет на уровне транспорта

	c := newTestClient(ts.URL)
	_, err := c.Translate(context.Background(), translate.Request{Text: "x", TargetLang: "ja"})
	if err == nil {
		t.Fatal("expected error")
	}
	if translate.ServiceFault(err) {
		t.Fatalf("transport failure misclassified as service fault: %v", err)
	}
}
