package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ClipTranslator/internal/config"
	"ClipTranslator/internal/service/translate"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"go.uber.org/zap"
)

// Client переводит через OpenAI Responses API. Ключ SDK берёт из окружения
// (OPENAI_API_KEY). Модель просят ответить строгим JSON, но на практике она
// может вернуть и голый текст, и JSON в код-блоке, поэтому разбор терпимый.
type Client struct {
	client *openai.Client
	model  openai.ChatModel
	logger *zap.SugaredLogger
}

func New(client *openai.Client, cfg config.OpenAIConfig, logger *zap.SugaredLogger) *Client {
	model := openai.ChatModel(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &Client{client: client, model: model, logger: logger}
}

const instructionsTemplate = "You are a translation engine. Translate the user text into %q. " +
	"Source language: %s. Reply with a single JSON object {\"lang\":\"<detected source language code>\",\"text\":\"<translation>\"} and nothing else."

// Ожидаемая форма ответа модели.
type modelReply struct {
	Lang string `json:"lang"`
	Text string `json:"text"`
}

func (c *Client) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	sl := strings.TrimSpace(req.SourceLang)
	if sl == "" {
		sl = "auto"
	}
	srcHint := sl
	if strings.EqualFold(sl, "auto") {
		srcHint = "detect automatically"
	}

	sys := responses.ResponseInputMessageContentListParam{
		{
			OfInputText: &responses.ResponseInputTextParam{
				Text: fmt.Sprintf(instructionsTemplate, req.TargetLang, srcHint),
			},
		},
	}
	user := responses.ResponseInputMessageContentListParam{
		{
			OfInputText: &responses.ResponseInputTextParam{Text: req.Text},
		},
	}

	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(sys, responses.EasyInputMessageRoleSystem),
				responses.ResponseInputItemParamOfMessage(user, responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		return translate.Result{}, err
	}

	out := resp.OutputText()
	if c.logger != nil {
		c.logger.Debugw("OpenAI translate completed", "chars", len(out))
	}
	return parseOutput(out, sl, req.TargetLang)
}

// parseOutput разбирает ответ модели: строгий JSON, JSON в код-блоке или
// голый текст как последний рубеж.
func parseOutput(out, sourceLang, targetLang string) (translate.Result, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return translate.Result{}, translate.ErrEmptyResult
	}

	candidate := trimmed
	if strings.HasPrefix(candidate, "```") {
		candidate = strings.TrimPrefix(candidate, "```json")
		candidate = strings.TrimPrefix(candidate, "```")
		candidate = strings.TrimSuffix(strings.TrimSpace(candidate), "```")
		candidate = strings.TrimSpace(candidate)
	}

	var mr modelReply
	if err := json.Unmarshal([]byte(candidate), &mr); err == nil && strings.TrimSpace(mr.Text) != "" {
		lang := strings.TrimSpace(mr.Lang)
		if lang == "" {
			lang = sourceLang
		}
		return translate.Result{Text: mr.Text, DetectedLang: lang, TargetLang: targetLang}, nil
	}

	// не JSON — модель ответила просто переводом
	return translate.Result{Text: trimmed, DetectedLang: sourceLang, TargetLang: targetLang}, nil
}
