package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ClipTranslator/internal/config"
	"ClipTranslator/internal/service/translate"

	"go.uber.org/zap"
)

// Client ходит на неофициальный веб-эндпоинт Google Translate (client=gtx).
// Ключ не нужен, но формат ответа не задокументирован и может поменяться.
type Client struct {
	http   *http.Client
	cfg    config.GoogleWebConfig
	logger *zap.SugaredLogger
}

func New(cfg config.GoogleWebConfig, logger *zap.SugaredLogger) *Client {
	return &Client{http: http.DefaultClient, cfg: cfg, logger: logger}
}

// Ответ эндпоинта при dj=1: перевод разбит на предложения, src — определённый
// исходный язык.
type webResponse struct {
	Sentences []struct {
		Trans string `json:"trans"`
	} `json:"sentences"`
	Src string `json:"src"`
}

func (c *Client) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	sl := strings.TrimSpace(req.SourceLang)
	if sl == "" {
		sl = "auto"
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sl)
	q.Set("tl", req.TargetLang)
	q.Set("dt", "t")
	q.Set("dj", "1")
	q.Set("source", "input")
	q.Set("q", req.Text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return translate.Result{}, err
	}
	if ua := strings.TrimSpace(c.cfg.UserAgent); ua != "" {
		httpReq.Header.Set("User-Agent", ua)
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return translate.Result{}, err
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debugw("Google web request completed", "status", resp.StatusCode, "took", time.Since(started).String())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return translate.Result{}, &translate.APIError{StatusCode: resp.StatusCode, Body: translate.TruncateBody(b)}
	}

	var jr webResponse
	dec := json.NewDecoder(io.LimitReader(resp.Body, 5<<20)) // до 5 МБ JSON
	if err := dec.Decode(&jr); err != nil {
		return translate.Result{}, fmt.Errorf("%w: %v", translate.ErrBadResponse, err)
	}

	var sb strings.Builder
	for _, s := range jr.Sentences {
		sb.WriteString(s.Trans)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return translate.Result{}, translate.ErrEmptyResult
	}

	detected := strings.TrimSpace(jr.Src)
	if detected == "" {
		detected = sl
	}
	return translate.Result{Text: text, DetectedLang: detected, TargetLang: req.TargetLang}, nil
}
