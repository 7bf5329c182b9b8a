package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode    bool   `env:"DEBUG_MODE"`    // Режим дебага
	InstanceName string `env:"INSTANCE_NAME"` // Имя замка от повторного запуска

	// Перевод
	TargetLang          string        `env:"TARGET_LANG"`          // Язык перевода по умолчанию
	SourceLang          string        `env:"SOURCE_LANG"`          // Исходный язык; auto — автоопределение
	TranslateService    string        `env:"TRANSLATE_SERVICE"`    // Выбор провайдера: google|cloud|openai
	TranslationDeadline time.Duration `env:"TRANSLATION_DEADLINE"` // Срок, после которого показываем статус «ещё переводим»
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`      // Таймаут одного запроса к сервису перевода

	// Хоткей
	DoubleCopyInterval time.Duration `env:"DOUBLE_COPY_INTERVAL"` // Окно двойного Ctrl+C
	MaxHookFaults      int           `env:"MAX_HOOK_FAULTS"`      // Сколько сбоев классификации подряд до паузы
	HookFaultReset     time.Duration `env:"HOOK_FAULT_RESET"`     // Через сколько после паузы сбрасывать счётчик сбоев

	HistoryMax      int    `env:"HISTORY_MAX"`       // Максимум хранимых записей истории переводов
	NotifySoundPath string `env:"NOTIFY_SOUND_PATH"` // Путь к звуку уведомления; пусто — без звука

	// Запустить разовый перевод буфера и выйти (только флаг, без ENV)
	RunOnce bool

	GoogleWeb GoogleWebConfig
	Cloud     CloudTranslateConfig
	OpenAI    OpenAIConfig
	Popup     PopupConfig
	Speak     SpeakConfig
}

// GoogleWebConfig — неофициальный веб-эндпоинт Google Translate (без ключа).
type GoogleWebConfig struct {
	Endpoint  string `env:"GOOGLE_WEB_ENDPOINT"`   // Переопределение эндпоинта (тесты, прокси)
	UserAgent string `env:"GOOGLE_WEB_USER_AGENT"` // User-Agent запросов
}

// CloudTranslateConfig — официальный Cloud Translation v2 (REST поверх ADC).
type CloudTranslateConfig struct {
	Endpoint string `env:"CLOUD_TRANSLATE_ENDPOINT"` // Переопределение эндпоинта
	// Путь к ключу сервисного аккаунта; фактически читается из ENV
	// GOOGLE_APPLICATION_CREDENTIALS, здесь храним дефолт для удобства.
	CredentialsPath string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// OpenAIConfig — перевод через OpenAI (ключ берёт SDK из OPENAI_API_KEY).
type OpenAIConfig struct {
	Model string `env:"OPENAI_TRANSLATE_MODEL"` // Имя модели
}

// PopupConfig — локальный WebSocket-мост для попап-фронтенда.
type PopupConfig struct {
	Enabled   bool          `env:"POPUP_ENABLED"`    // Главный флаг включения
	BindAddr  string        `env:"POPUP_BIND_ADDR"`  // Адрес слушателя, напр. 127.0.0.1:3210
	Path      string        `env:"POPUP_PATH"`       // HTTP-путь апгрейда, напр. /events
	AutoClose time.Duration `env:"POPUP_AUTO_CLOSE"` // Подсказка фронтенду: когда прятать попап
}

// SpeakConfig — озвучивание готового перевода (Google Cloud TTS).
type SpeakConfig struct {
	Enabled      bool    `env:"SPEAK_RESULT"` // Проговаривать перевод после успеха
	Voice        string  `env:"SPEAK_VOICE"`  // Имя голоса; пусто — стандартный для языка
	SpeakingRate float64 `env:"SPEAK_RATE"`   // Скорость речи (1.0 по умолчанию)
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:    false,
		InstanceName: "ClipTranslator",
		// Перевод
		TargetLang:          "ja",
		SourceLang:          "auto",
		TranslateService:    "google", // google|cloud|openai
		TranslationDeadline: 3 * time.Second,
		RequestTimeout:      10 * time.Second,
		// Хоткей
		DoubleCopyInterval: 500 * time.Millisecond,
		MaxHookFaults:      5,
		HookFaultReset:     10 * time.Second,
		HistoryMax:         100,
		NotifySoundPath:    "", // по умолчанию без звука
		GoogleWeb: GoogleWebConfig{
			Endpoint:  "https://translate.googleapis.com/translate_a/single",
			UserAgent: "ClipTranslator/1.0",
		},
		Cloud: CloudTranslateConfig{
			Endpoint:        "https://translation.googleapis.com/language/translate/v2",
			CredentialsPath: "service-account.json",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Popup: PopupConfig{
			Enabled:   false,
			BindAddr:  "127.0.0.1:3210",
			Path:      "/events",
			AutoClose: 10 * time.Second,
		},
		Speak: SpeakConfig{
			Enabled:      false,
			Voice:        "",
			SpeakingRate: 1.0,
		},
	}
}

// NewConfig загружает конфигурацию приложения.
func NewConfig() *Config {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	_ = env.Parse(cfg)

	flag.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	flag.StringVar(&cfg.InstanceName, "instance-name", cfg.InstanceName, "имя замка от повторного запуска")
	flag.BoolVar(&cfg.RunOnce, "once", false, "разовый перевод текущего буфера в stdout и выход")
	// Перевод
	flag.StringVar(&cfg.TargetLang, "target-lang", cfg.TargetLang, "язык перевода, напр. ja или en")
	flag.StringVar(&cfg.SourceLang, "source-lang", cfg.SourceLang, "исходный язык; auto — автоопределение")
	flag.StringVar(&cfg.TranslateService, "translate-service", cfg.TranslateService, "провайдер перевода: google|cloud|openai")
	flag.DurationVar(&cfg.TranslationDeadline, "translation-deadline", cfg.TranslationDeadline, "срок показа статуса «ещё переводим», напр. 3s")
	flag.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "таймаут запроса к сервису перевода, напр. 10s")
	// Хоткей
	flag.DurationVar(&cfg.DoubleCopyInterval, "double-copy-interval", cfg.DoubleCopyInterval, "окно двойного Ctrl+C, напр. 500ms")
	flag.IntVar(&cfg.MaxHookFaults, "max-hook-faults", cfg.MaxHookFaults, "сбоев классификации подряд до паузы")
	flag.DurationVar(&cfg.HookFaultReset, "hook-fault-reset", cfg.HookFaultReset, "пауза до сброса счётчика сбоев, напр. 10s")
	flag.IntVar(&cfg.HistoryMax, "history-max", cfg.HistoryMax, "максимум записей истории переводов")
	flag.StringVar(&cfg.NotifySoundPath, "notify-sound-path", cfg.NotifySoundPath, "путь к звуку уведомления (mp3 или wav); пусто — без звука")
	// Веб-эндпоинт Google
	flag.StringVar(&cfg.GoogleWeb.Endpoint, "google-web-endpoint", cfg.GoogleWeb.Endpoint, "эндпоинт неофициального Google Translate")
	flag.StringVar(&cfg.GoogleWeb.UserAgent, "google-web-user-agent", cfg.GoogleWeb.UserAgent, "User-Agent запросов к веб-эндпоинту")
	// Cloud Translation
	flag.StringVar(&cfg.Cloud.Endpoint, "cloud-translate-endpoint", cfg.Cloud.Endpoint, "эндпоинт Cloud Translation v2")
	flag.StringVar(&cfg.Cloud.CredentialsPath, "cloud-translate-credentials", cfg.Cloud.CredentialsPath, "путь к service-account.json (также читается из ENV GOOGLE_APPLICATION_CREDENTIALS)")
	// OpenAI
	flag.StringVar(&cfg.OpenAI.Model, "openai-translate-model", cfg.OpenAI.Model, "модель OpenAI для перевода")
	// Popup
	flag.BoolVar(&cfg.Popup.Enabled, "popup-enabled", cfg.Popup.Enabled, "включить WebSocket-мост для попапа")
	flag.StringVar(&cfg.Popup.BindAddr, "popup-bind-addr", cfg.Popup.BindAddr, "адрес моста (напр. 127.0.0.1:3210)")
	flag.StringVar(&cfg.Popup.Path, "popup-path", cfg.Popup.Path, "HTTP-путь моста (напр. /events)")
	flag.DurationVar(&cfg.Popup.AutoClose, "popup-auto-close", cfg.Popup.AutoClose, "подсказка фронтенду: когда прятать попап, напр. 10s")
	// Озвучивание
	flag.BoolVar(&cfg.Speak.Enabled, "speak-result", cfg.Speak.Enabled, "проговаривать перевод после успеха (Google Cloud TTS)")
	flag.StringVar(&cfg.Speak.Voice, "speak-voice", cfg.Speak.Voice, "имя голоса TTS; пусто — стандартный для языка")
	flag.Float64Var(&cfg.Speak.SpeakingRate, "speak-rate", cfg.Speak.SpeakingRate, "скорость речи (1.0 по умолчанию)")
	flag.Parse()

	// Валидация и подготовка окружения для сервисов Google Cloud.
	// Если выбран провайдер cloud или включено озвучивание, убеждаемся, что
	// задан путь к cred-файлу и он существует. Если ENV пуст, но в конфиге
	// указан путь — устанавливаем ENV.
	if strings.EqualFold(cfg.TranslateService, "cloud") || cfg.Speak.Enabled {
		cred := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		if cred == "" {
			if cp := strings.TrimSpace(cfg.Cloud.CredentialsPath); cp != "" {
				_ = os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cp)
				cred = cp
			}
		}
		if cred == "" {
			panic(fmt.Errorf("google cloud: переменная окружения GOOGLE_APPLICATION_CREDENTIALS не задана; укажите ENV или флаг -cloud-translate-credentials"))
		}
		if _, err := os.Stat(cred); err != nil {
			panic(fmt.Errorf("google cloud: файл ключа не найден: %s", cred))
		}
	}

	return cfg
}
