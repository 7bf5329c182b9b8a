package openai

import (
	"errors"
	"testing"

	"ClipTranslator/internal/service/translate"
)

func TestParseOutputStrictJSON(t *testing.T) {
	t.Parallel()

	res, err := parseOutput(`{"lang":"en","text":"こんにちは"}`, "auto", "ja")
	if err != nil {
		t.Fatalf("parseOutput error = %v", err)
	}
	if res.Text != "こんにちは" || res.DetectedLang != "en" || res.TargetLang != "ja" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestParseOutputFencedJSON(t *testing.T) {
	t.Parallel()

	out := "```json\n{\"lang\":\"ru\",\"text\":\"hello\"}\n```"
	res, err := parseOutput(out, "auto", "en")
	if err != nil {
		t.Fatalf("parseOutput error = %v", err)
	}
	if res.Text != "hello" || res.DetectedLang != "ru" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestParseOutputPlainTextFallback(t *testing.T) {
	t.Parallel()

	res, err := parseOutput("  просто перевод  ", "en", "ru")
	if err != nil {
		t.Fatalf("parseOutput error = %v", err)
	}
	if res.Text != "просто перевод" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if res.DetectedLang != "en" {
		t.Fatalf("unexpected detected lang: %q", res.DetectedLang)
	}
}

func TestParseOutputMissingLangFallsBackToSource(t *testing.T) {
	t.Parallel()

	res, err := parseOutput(`{"text":"hi"}`, "de", "en")
	if err != nil {
		t.Fatalf("parseOutput error = %v", err)
	}
	if res.DetectedLang != "de" {
		t.Fatalf("unexpected detected lang: %q", res.DetectedLang)
	}
}

func TestParseOutputEmptyIsServiceFault(t *testing.T) {
	t.Parallel()

	_, err := parseOutput("   ", "auto", "ja")
	if !errors.Is(err, translate.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if !translate.ServiceFault(err) {
		t.Fatal("expected service fault classification")
	}
}
