package hotkey

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventType описывает типы событий, публикуемых сервисом.
type EventType int

const (
	// EventDoubleCopy — пара Ctrl+C в пределах окна, пора переводить буфер.
	EventDoubleCopy EventType = iota + 1
)

// Event универсальное событие сервиса наблюдения за клавиатурой.
type Event struct {
	Type EventType
	At   time.Time
}

// Service минимальный интерфейс сервиса наблюдения за двойным копированием.
type Service interface {
	Run(ctx context.Context) error
	Events() <-chan Event
}

// RawSource поставляет сырые события клавиатуры координатору.
// Платформенная реализация живёт в windows_listener_windows.go; для тестов
// и отладки есть ScriptedSource.
type RawSource interface {
	Run(ctx context.Context, out chan<- KeyEvent)
}

// Config параметры распознавания.
type Config struct {
	// Окно двойного Ctrl+C
	Interval time.Duration
	// Сколько сбоев классификации подряд терпим до паузы
	MaxFaults int
	// Через сколько после паузы сбрасывать счётчик сбоев
	FaultReset time.Duration
}

// New создает сервис с координатором и платформенным источником событий (Windows).
func New(cfg Config, logger *zap.SugaredLogger) Service {
	return newCoordinator(cfg, nil, logger)
}

// NewWithSource создает сервис с заданным источником сырых событий.
func NewWithSource(cfg Config, src RawSource, logger *zap.SugaredLogger) Service {
	return newCoordinator(cfg, src, logger)
}

// ScriptedSource — синтетический источник: проигрывает заранее заданную
// последовательность событий с паузами между ними.
type ScriptedSource struct {
	Steps []ScriptedKey
}

// ScriptedKey один шаг сценария: задержка перед событием и само событие.
type ScriptedKey struct {
	After time.Duration
	Event KeyEvent
}

func (s *ScriptedSource) Run(ctx context.Context, out chan<- KeyEvent) {
	for _, step := range s.Steps {
		if step.After > 0 {
			t := time.NewTimer(step.After)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		ev := step.Event
		if ev.At.IsZero() {
			ev.At = time.Now()
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
