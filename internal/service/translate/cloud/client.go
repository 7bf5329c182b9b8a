package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ClipTranslator/internal/config"
	"ClipTranslator/internal/service/translate"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
)

// Client — официальный Cloud Translation v2 (REST). Авторизация только через
// ADC/metadata, API Key не используется.
type Client struct {
	// nil — клиент с ADC создаётся на каждый вызов
	http   *http.Client
	cfg    config.CloudTranslateConfig
	logger *zap.SugaredLogger
}

func New(cfg config.CloudTranslateConfig, logger *zap.SugaredLogger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

type requestPayload struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source string   `json:"source,omitempty"`
	Format string   `json:"format"`
}

type responsePayload struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
}

func (c *Client) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	rp := requestPayload{
		Q:      []string{req.Text},
		Target: req.TargetLang,
		Format: "text",
	}
	// source не отправляем при автоопределении: его отсутствие и включает детекцию
	if sl := strings.TrimSpace(req.SourceLang); sl != "" && !strings.EqualFold(sl, "auto") {
		rp.Source = sl
	}

	body, err := json.Marshal(&rp)
	if err != nil {
		return translate.Result{}, err
	}

	httpClient := c.http
	if httpClient == nil {
		httpClient, err = google.DefaultClient(ctx, "https://www.googleapis.com/auth/cloud-translation")
		if err != nil {
			return translate.Result{}, errors.New("cloud translate: ADC credentials not found. Set GOOGLE_APPLICATION_CREDENTIALS to a service account JSON or run in GCE/GKE with default credentials")
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return translate.Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return translate.Result{}, err
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debugw("Cloud translate request completed", "status", resp.StatusCode, "took", time.Since(started).String())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return translate.Result{}, &translate.APIError{StatusCode: resp.StatusCode, Body: translate.TruncateBody(b)}
	}

	var jr responsePayload
	dec := json.NewDecoder(io.LimitReader(resp.Body, 5<<20))
	if err := dec.Decode(&jr); err != nil {
		return translate.Result{}, fmt.Errorf("%w: %v", translate.ErrBadResponse, err)
	}
	if len(jr.Data.Translations) == 0 || strings.TrimSpace(jr.Data.Translations[0].TranslatedText) == "" {
		return translate.Result{}, translate.ErrEmptyResult
	}

	tr := jr.Data.Translations[0]
	detected := strings.TrimSpace(tr.DetectedSourceLanguage)
	if detected == "" {
		detected = strings.TrimSpace(req.SourceLang)
	}
	return translate.Result{Text: tr.TranslatedText, DetectedLang: detected, TargetLang: req.TargetLang}, nil
}
