package google

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"

	"ClipTranslator/internal/config"
	"ClipTranslator/internal/service/tts/player"
)

// Client озвучивает перевод через Google Cloud Text-to-Speech.
// Авторизация — Application Default Credentials (GOOGLE_APPLICATION_CREDENTIALS).
type Client struct {
	player player.Player
	cfg    config.SpeakConfig
	logger *zap.SugaredLogger
}

func New(p player.Player, cfg config.SpeakConfig, logger *zap.SugaredLogger) *Client {
	if cfg.SpeakingRate == 0 {
		cfg.SpeakingRate = 1.0
	}
	return &Client{player: p, cfg: cfg, logger: logger}
}

// Speak синтезирует речь и блокируется до конца воспроизведения.
func (c *Client) Speak(ctx context.Context, text, lang string) error {
	ttsClient, err := gctts.NewClient(ctx)
	if err != nil {
		return err
	}
	defer ttsClient.Close()

	req := &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{
			InputSource: &ttspb.SynthesisInput_Text{Text: text},
		},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: voiceLanguage(lang),
			Name:         c.cfg.Voice, // пусто — стандартный голос для языка
		},
		// Только MP3, его умеет плеер.
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding: ttspb.AudioEncoding_MP3,
			SpeakingRate:  c.cfg.SpeakingRate,
		},
	}

	started := time.Now()
	resp, err := ttsClient.SynthesizeSpeech(ctx, req)
	if err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Infow("Google TTS synthesize completed", "lang", lang, "took", time.Since(started).String())
	}

	r := io.NopCloser(bytes.NewReader(resp.GetAudioContent()))
	return c.player.Play("mp3", r)
}

// voiceLanguage переводит двухбуквенный код перевода в BCP-47 код голоса.
// Полные коды с регионом пропускаются как есть; неизвестные тоже, пусть
// сервис вернёт внятную ошибку.
func voiceLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if strings.Contains(lang, "-") {
		return lang
	}
	switch lang {
	case "en":
		return "en-US"
	case "ja":
		return "ja-JP"
	case "ru":
		return "ru-RU"
	case "de":
		return "de-DE"
	case "fr":
		return "fr-FR"
	case "es":
		return "es-ES"
	case "it":
		return "it-IT"
	case "pt":
		return "pt-BR"
	case "ko":
		return "ko-KR"
	case "zh":
		return "cmn-CN"
	default:
		return lang
	}
}
