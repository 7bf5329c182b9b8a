package hotkey

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type coordinator struct {
	cfg    Config
	logger *zap.SugaredLogger

	// источник сырых событий; nil — платформенный слушатель
	src RawSource
	raw chan KeyEvent

	// исходящие для потребителей
	out chan Event

	filter   *Filter
	detector *DoubleCopyDetector

	// деградация при сбоях классификации
	faults      int
	lastFaultAt time.Time
}

func newCoordinator(cfg Config, src RawSource, logger *zap.SugaredLogger) *coordinator {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.MaxFaults <= 0 {
		cfg.MaxFaults = 5
	}
	if cfg.FaultReset <= 0 {
		cfg.FaultReset = 10 * time.Second
	}
	return &coordinator{
		cfg:      cfg,
		logger:   logger,
		src:      src,
		raw:      make(chan KeyEvent, 64),
		out:      make(chan Event, 64),
		filter:   NewFilter(),
		detector: NewDoubleCopyDetector(cfg.Interval),
	}
}

func (c *coordinator) Events() <-chan Event { return c.out }

func (c *coordinator) Run(ctx context.Context) error {
	src := c.src
	if src == nil {
		// платформенный слушатель (Windows)
		s, err := newWinSource()
		if err != nil {
			return err
		}
		src = s
	}

	// слушатель живёт в отдельной горутине и никогда не блокируется:
	// на переполненном канале события теряются, а не задерживают хук
	go src.Run(ctx, c.raw)

	defer close(c.out)

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case ev := <-c.raw:
			c.handle(ev)
		}
	}
}

// handle прогоняет событие через фильтр и детектор. После MaxFaults сбоев
// подряд классификация замирает до истечения FaultReset, затем счётчик
// сбрасывается; сами события система уже получила, им ничего не грозит.
func (c *coordinator) handle(ev KeyEvent) {
	if c.faults >= c.cfg.MaxFaults {
		if time.Since(c.lastFaultAt) < c.cfg.FaultReset {
			return
		}
		c.faults = 0
		c.detector.Reset()
		c.logger.Infow("Счётчик сбоев классификации сброшен")
	}

	if c.classify(ev) != ClassCopy {
		return
	}
	if c.detector.OnSignal(ev.At) {
		c.logger.Debugw("Двойное копирование", "at", ev.At)
		c.safeSend(Event{Type: EventDoubleCopy, At: ev.At})
	}
}

// classify не даёт панике на пути классификации уронить цикл наблюдения:
// сбой считается как Pass.
func (c *coordinator) classify(ev KeyEvent) (cls Classification) {
	defer func() {
		if r := recover(); r != nil {
			c.faults++
			c.lastFaultAt = time.Now()
			cls = ClassPass
			c.logger.Errorw("Сбой классификации события", "fault", c.faults, "panic", r)
		}
	}()
	return c.filter.Classify(ev)
}

func (c *coordinator) safeSend(ev Event) {
	select {
	case c.out <- ev:
	default:
		// в случае переполнения — дроп, чтобы не блокировать
	}
}
