package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"ClipTranslator/internal/app/orchestrator"
	"ClipTranslator/internal/app/single"
	"ClipTranslator/internal/config"
	"ClipTranslator/internal/service/clipboard"
	"ClipTranslator/internal/service/history"
	"ClipTranslator/internal/service/hotkey"
	"ClipTranslator/internal/service/notify"
	"ClipTranslator/internal/service/popup"
	"ClipTranslator/internal/service/translate"
	cloudtr "ClipTranslator/internal/service/translate/cloud"
	googletr "ClipTranslator/internal/service/translate/google"
	openaitr "ClipTranslator/internal/service/translate/openai"
	"ClipTranslator/internal/service/tts"
	googletts "ClipTranslator/internal/service/tts/google"
	ttsplayer "ClipTranslator/internal/service/tts/player"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	var logger *zap.Logger
	var err error
	if cfg.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	clip, err := clipboard.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tr := buildTranslator(cfg, sugar)

	// Разовый режим: перевести текущий буфер в stdout и выйти.
	if cfg.RunOnce {
		code := runOnce(cfg, clip, tr)
		_ = logger.Sync()
		os.Exit(code)
	}

	// Резидентный режим: один экземпляр на имя.
	guard, err := single.Acquire(cfg.InstanceName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer guard.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sugar.Infow(
		"Starting app",
		"DebugMode", cfg.DebugMode,
		"service", cfg.TranslateService,
		"source", cfg.SourceLang,
		"target", cfg.TargetLang,
	)

	hk := hotkey.New(hotkey.Config{
		Interval:   cfg.DoubleCopyInterval,
		MaxFaults:  cfg.MaxHookFaults,
		FaultReset: cfg.HookFaultReset,
	}, sugar)

	orch := orchestrator.New(orchestrator.Config{
		SourceLang:     cfg.SourceLang,
		TargetLang:     cfg.TargetLang,
		Deadline:       cfg.TranslationDeadline,
		RequestTimeout: cfg.RequestTimeout,
	}, clip, tr, sugar)

	hist := history.New(cfg.HistoryMax)
	sound := notify.NewSoundNotifier(sugar, cfg.NotifySoundPath)

	var speaker tts.Speaker
	if cfg.Speak.Enabled {
		speaker = googletts.New(ttsplayer.New(), cfg.Speak, sugar)
	}

	var bridge *popup.Server
	if cfg.Popup.Enabled {
		bridge = popup.NewServer(cfg.Popup, orch, clip, hist, sugar)
		if err := bridge.Start(ctx); err != nil {
			sugar.Errorw("Не удалось запустить попап-мост", "error", err)
		}
	}

	// Потребитель событий оркестратора: мост, история, звук, озвучивание.
	go consumeEvents(ctx, orch, bridge, hist, sound, speaker, sugar)

	// Оркестратор подписан на триггеры двойного копирования.
	go func() {
		if err := orch.Run(ctx, hk.Events()); err != nil && !errors.Is(err, context.Canceled) {
			sugar.Errorw("Оркестратор завершился с ошибкой", "error", err)
		}
	}()

	if err := hk.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("Слушатель клавиатуры завершился с ошибкой", "error", err)
	}
}

// buildTranslator выбирает провайдера перевода.
func buildTranslator(cfg *config.Config, sugar *zap.SugaredLogger) translate.Translator {
	service := strings.ToLower(strings.TrimSpace(cfg.TranslateService))
	var tr translate.Translator
	switch service {
	case "cloud":
		tr = cloudtr.New(cfg.Cloud, sugar)
	case "openai":
		// ключ SDK берёт из окружения (OPENAI_API_KEY)
		oClient := openai.NewClient()
		tr = openaitr.New(&oClient, cfg.OpenAI, sugar)
	default: // неофициальный веб-эндпоинт Google, без ключа
		if service == "" {
			service = "google"
		}
		tr = googletr.New(cfg.GoogleWeb, sugar)
	}
	sugar.Infow("Translate service selected", "service", service)
	return tr
}

// consumeEvents раздаёт события перевода по потребителям. Звук и озвучивание
// выполняются в отдельной горутине последовательно, чтобы долгий плейбек не
// задерживал рассылку событий мосту.
func consumeEvents(ctx context.Context, orch *orchestrator.Orchestrator, bridge *popup.Server, hist *history.Log, sound *notify.SoundNotifier, speaker tts.Speaker, sugar *zap.SugaredLogger) {
	sideFx := make(chan orchestrator.Event, 8)
	defer close(sideFx)
	go func() {
		for ev := range sideFx {
			if sound.Enabled() {
				_ = sound.Play(ctx)
			}
			if speaker != nil {
				if err := speaker.Speak(ctx, ev.Result.Text, ev.Result.TargetLang); err != nil {
					sugar.Warnw("Озвучивание перевода не удалось", "error", err)
				}
			}
		}
	}()

	for ev := range orch.Events() {
		if bridge != nil {
			bridge.Publish(ev)
		}
		if ev.Type != orchestrator.EventSucceeded {
			continue
		}
		hist.Add(history.Entry{
			Source:       ev.SourceText,
			Translated:   ev.Result.Text,
			DetectedLang: ev.Result.DetectedLang,
			TargetLang:   ev.Result.TargetLang,
			At:           ev.At,
		})
		select {
		case sideFx <- ev:
		default:
			// плейбек не поспевает — пропускаем, переводу это не мешает
		}
	}
}

// runOnce выполняет разовый перевод текущего буфера: результат в stdout,
// ошибки в stderr. Возвращает код выхода процесса.
func runOnce(cfg *config.Config, clip clipboard.Clipboard, tr translate.Translator) int {
	text, err := clip.ReadText()
	if err != nil {
		fmt.Fprintf(os.Stderr, "не удалось прочитать буфер обмена: %v\n", err)
		return 1
	}
	text = strings.TrimSpace(text)
	if text == "" {
		fmt.Fprintln(os.Stderr, "буфер обмена пуст, переводить нечего")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	// Статусная заметка, если перевод не уложился в дедлайн.
	notice := time.AfterFunc(cfg.TranslationDeadline, func() {
		fmt.Fprintln(os.Stderr, "ещё переводим…")
	})
	defer notice.Stop()

	res, err := tr.Translate(ctx, translate.Request{
		Text:       text,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "перевод не удался: %v\n", err)
		return 1
	}

	fmt.Printf("Detected: %s\n%s\n", res.DetectedLang, res.Text)
	return 0
}
