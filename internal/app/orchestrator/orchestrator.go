package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ClipTranslator/internal/service/clipboard"
	"ClipTranslator/internal/service/hotkey"
	"ClipTranslator/internal/service/translate"

	"go.uber.org/zap"
)

var errRequestTimeout = errors.New("translate request timeout")

// Config — параметры оркестратора.
type Config struct {
	SourceLang string
	TargetLang string
	// Дедлайн показа статуса «ещё переводим»; сам запрос НЕ прерывает
	Deadline time.Duration
	// Жёсткий таймаут самого запроса к сервису
	RequestTimeout time.Duration
}

// Orchestrator принимает сигналы двойного копирования, читает буфер обмена и
// ведёт ровно один актуальный запрос перевода. Новый сигнал вытесняет
// предыдущий запрос: его результат, когда доедет, отбрасывается по id.
type Orchestrator struct {
	cfg    Config
	clip   clipboard.Clipboard
	tr     translate.Translator
	logger *zap.SugaredLogger

	out chan Event

	mu         sync.Mutex
	seq        int64 // id последнего созданного запроса
	current    int64 // id актуального запроса
	done       bool  // актуальный запрос получил терминальный исход
	delayed    bool  // по актуальному запросу уже было EventDelayed
	phase      Phase
	cancelPrev context.CancelFunc
	deadline   *time.Timer
	srcLang    string
	dstLang    string
	lastDone   string // исходник последнего успешного перевода
	last       *Snapshot

	sendMu sync.Mutex
	closed bool
}

func New(cfg Config, clip clipboard.Clipboard, tr translate.Translator, logger *zap.SugaredLogger) *Orchestrator {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 3 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	src := strings.TrimSpace(cfg.SourceLang)
	if src == "" {
		src = "auto"
	}
	return &Orchestrator{
		cfg:     cfg,
		clip:    clip,
		tr:      tr,
		logger:  logger,
		out:     make(chan Event, 64),
		srcLang: src,
		dstLang: cfg.TargetLang,
	}
}

// Events отдаёт события запросов. Канал закрывается после Run.
func (o *Orchestrator) Events() <-chan Event { return o.out }

// Run обрабатывает сигналы до отмены контекста или закрытия канала сигналов.
func (o *Orchestrator) Run(ctx context.Context, triggers <-chan hotkey.Event) error {
	defer func() {
		o.stopPrev()
		o.closeOut()
	}()

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case _, ok := <-triggers:
			if !ok {
				return nil
			}
			o.Trigger(ctx)
		}
	}
}

// Trigger — один сигнал двойного копирования: синхронно читает буфер и, если
// есть что переводить, вытесняет предыдущий запрос новым. Путь обработки
// сигнала не блокируется: сетевой вызов уходит в отдельную горутину.
func (o *Orchestrator) Trigger(ctx context.Context) {
	raw, err := o.clip.ReadText()
	if err != nil {
		// нечитаемый буфер приравнен к пустому
		o.logger.Warnw("Буфер обмена недоступен", "error", err)
		return
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		o.logger.Debugw("Буфер пуст, пропускаем")
		return
	}

	o.mu.Lock()
	if text == o.lastDone {
		o.mu.Unlock()
		o.logger.Debugw("Текст не менялся после последнего перевода, пропускаем")
		return
	}

	o.seq++
	id := o.seq
	o.current = id
	o.done = false
	o.delayed = false
	o.phase = PhaseTranslating
	if strings.EqualFold(o.srcLang, "auto") {
		o.phase = PhaseDetecting
	}
	phase := o.phase

	// вытесняем предыдущий запрос: результат его больше не интересует,
	// а оборвать сам вызов — дешёвая оптимизация
	if o.cancelPrev != nil {
		o.cancelPrev()
	}
	if o.deadline != nil {
		o.deadline.Stop()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	o.cancelPrev = cancel

	req := translate.Request{Text: text, SourceLang: o.srcLang, TargetLang: o.dstLang}
	o.deadline = time.AfterFunc(o.cfg.Deadline, func() { o.onDeadline(id) })
	o.mu.Unlock()

	o.logger.Infow("Новый запрос перевода", "id", id, "chars", len(text), "target", req.TargetLang)
	o.safeSend(Event{Type: EventWorking, RequestID: id, Phase: phase, At: time.Now()})

	go o.work(reqCtx, id, req)
}

func (o *Orchestrator) work(ctx context.Context, id int64, req translate.Request) {
	reqCtx, cancel := context.WithTimeoutCause(ctx, o.cfg.RequestTimeout, errRequestTimeout)
	defer cancel()

	started := time.Now()
	res, err := o.tr.Translate(reqCtx, req)
	o.onOutcome(id, req, res, err, time.Since(started))
}

// onOutcome применяет исход запроса. Исход устаревшего id отбрасывается и
// никогда не перетирает более новое состояние.
func (o *Orchestrator) onOutcome(id int64, req translate.Request, res translate.Result, err error, took time.Duration) {
	o.mu.Lock()
	if id != o.current || o.done {
		o.mu.Unlock()
		o.logger.Debugw("Просроченный исход отброшен", "id", id)
		return
	}
	if err != nil && errors.Is(err, context.Canceled) {
		// остановка приложения, наружу ничего не публикуем
		o.done = true
		o.mu.Unlock()
		return
	}
	o.done = true
	if o.deadline != nil {
		o.deadline.Stop()
		o.deadline = nil
	}
	if err == nil {
		o.lastDone = req.Text
		o.last = &Snapshot{RequestID: id, SourceText: req.Text, Result: res, At: time.Now()}
	}
	o.mu.Unlock()

	if err != nil {
		reason := ReasonTransport
		if translate.ServiceFault(err) {
			reason = ReasonService
		}
		o.logger.Errorw("Перевод не удался", "id", id, "reason", reason, "error", err, "took", took.String())
		o.safeSend(Event{Type: EventFailed, RequestID: id, SourceText: req.Text, Reason: reason, Err: err, At: time.Now()})
		return
	}

	o.logger.Infow("Перевод готов", "id", id, "detected", res.DetectedLang, "took", took.String())
	o.safeSend(Event{Type: EventSucceeded, RequestID: id, SourceText: req.Text, Result: res, At: time.Now()})
}

// onDeadline срабатывает по таймеру запроса. Статусное событие уходит только
// если запрос всё ещё актуален и не завершён, и только один раз.
func (o *Orchestrator) onDeadline(id int64) {
	o.mu.Lock()
	if id != o.current || o.done || o.delayed {
		o.mu.Unlock()
		return
	}
	o.delayed = true
	phase := o.phase
	o.mu.Unlock()

	o.logger.Infow("Перевод дольше дедлайна, показываем статус", "id", id, "phase", phase)
	o.safeSend(Event{Type: EventDelayed, RequestID: id, Phase: phase, At: time.Now()})
}

// LastResult возвращает последний успешный перевод, если он был.
func (o *Orchestrator) LastResult() (Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Snapshot{}, false
	}
	return *o.last, true
}

// Languages возвращает текущую пару языков.
func (o *Orchestrator) Languages() (source, target string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.srcLang, o.dstLang
}

// ToggleLanguages разворачивает направление перевода. При автоопределении
// источником становится целевой язык, а новым целевым — последний
// определённый язык (или en, если переводов ещё не было).
func (o *Orchestrator) ToggleLanguages() (source, target string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if strings.EqualFold(o.srcLang, "auto") {
		detected := "en"
		if o.last != nil && o.last.Result.DetectedLang != "" {
			detected = o.last.Result.DetectedLang
		}
		o.srcLang, o.dstLang = o.dstLang, detected
	} else {
		o.srcLang, o.dstLang = o.dstLang, o.srcLang
	}
	// смена направления делает прежний «последний исходник» неактуальным
	o.lastDone = ""
	o.logger.Infow("Направление перевода изменено", "source", o.srcLang, "target", o.dstLang)
	return o.srcLang, o.dstLang
}

func (o *Orchestrator) stopPrev() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelPrev != nil {
		o.cancelPrev()
		o.cancelPrev = nil
	}
	if o.deadline != nil {
		o.deadline.Stop()
		o.deadline = nil
	}
}

func (o *Orchestrator) safeSend(ev Event) {
	o.sendMu.Lock()
	defer o.sendMu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.out <- ev:
	default:
		o.logger.Warnw("Потребитель событий не успевает, событие отброшено", "type", ev.Type, "id", ev.RequestID)
	}
}

func (o *Orchestrator) closeOut() {
	o.sendMu.Lock()
	defer o.sendMu.Unlock()
	o.closed = true
	close(o.out)
}
